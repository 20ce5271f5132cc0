package sessions

import (
	"context"
	"errors"
	"net/http"
)

type tokenSetsContextKey struct{}
type instancesContextKey struct{}

// Protect returns middleware that guards a route with the given provider
// requirements. Each requirement is resolved to a namespace, validated, and
// silently refreshed when expired. Only when every provider holds a valid
// session does the wrapped handler run, with the token sets injected into the
// request context.
//
// Failures short-circuit: the first provider that cannot produce a valid
// session stops the chain. Its OnFailure hook may take over the response;
// otherwise a structured JSON error is written.
//
// Refreshed cookies are flushed onto the response before the wrapped handler
// runs, so handlers are free to write the body immediately.
func (s *Sessions) Protect(requirements ...ProviderRequirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := NewHTTPContext(w, r, s.cookies)

			tokenSets := make(map[string]*TokenSet, len(requirements))
			instances := make(map[string]string, len(requirements))

			for _, req := range requirements {
				res, err := s.resolveAndValidate(rc, r, req)
				if err != nil {
					s.failProvider(w, r, ProviderKey{Provider: req.Provider, Instance: req.InstanceKey}, req.OnFailure, err)
					return
				}

				ts, err := s.ensureValid(rc, r, res)
				if err != nil {
					s.failProvider(w, r, res.key, req.OnFailure, err)
					return
				}

				tokenSets[res.key.Namespace()] = ts
				instances[res.key.Provider] = res.key.Instance
			}

			ctx := context.WithValue(r.Context(), tokenSetsContextKey{}, tokenSets)
			ctx = context.WithValue(ctx, instancesContextKey{}, instances)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ensureValid turns a validation result into a usable token set, refreshing
// expired sessions in place.
func (s *Sessions) ensureValid(rc RequestContext, r *http.Request, res *resolution) (*TokenSet, error) {
	ns := res.key.Namespace()
	s.recordValidation(r.Context(), res.key.Provider, res.result.Status.String())

	switch res.result.Status {
	case StatusValid:
		return res.result.TokenSet, nil

	case StatusExpired:
		if res.result.TokenSet.RefreshToken == "" {
			return nil, NewSessionError(ErrorCodeMissingTokens,
				"Session expired and no refresh token is available",
				http.StatusUnauthorized)
		}
		return s.refreshAndPersist(rc, r, res)

	default:
		if res.result.Corrupted {
			return nil, ErrCorruptedSession(ns)
		}
		return nil, ErrMissingOrInvalidTokens(ns)
	}
}

// refreshAndPersist exchanges the refresh token for fresh credentials and
// rewrites the namespace's cookies.
func (s *Sessions) refreshAndPersist(rc RequestContext, r *http.Request, res *resolution) (*TokenSet, error) {
	ctx := r.Context()
	ns := res.key.Namespace()
	clientIP := s.clientIP(r)

	ctx, span := s.startSpan(ctx, "sessions.refresh", res.key)
	refreshed, err := s.refresher.refresh(ctx, ns, res.cfg, res.result.TokenSet)
	if err != nil {
		s.endSpan(span, err)
		s.recordRefresh(ctx, res.key.Provider, false)
		if s.auditor != nil {
			s.auditor.LogRefreshFailed(res.key.Provider, res.key.Instance, clientIP, err.Error())
		}
		s.logger.Warn("Failed to refresh session tokens",
			"namespace", ns,
			"error", err)
		return nil, err
	}
	s.endSpan(span, nil)

	if err := s.writeTokenSet(rc, ns, refreshed, res.cfg); err != nil {
		return nil, err
	}

	if hook := res.cfg.Hooks.OnTokenRefresh; hook != nil {
		if err := hook(ctx, res.key, refreshed.Clone()); err != nil {
			s.logger.Warn("Failed to run token refresh hook",
				"namespace", ns,
				"error", err)
		}
	}

	s.recordRefresh(ctx, res.key.Provider, true)
	if s.auditor != nil {
		s.auditor.LogTokenRefreshed(res.key.Provider, res.key.Instance, clientIP)
	}
	s.logger.Debug("Session tokens refreshed", "namespace", ns)

	return refreshed, nil
}

// failProvider reports a failed provider check, giving the requirement's
// failure hook first shot at the response.
func (s *Sessions) failProvider(w http.ResponseWriter, r *http.Request, key ProviderKey, hook FailureHook, err error) {
	reason := failureReasonFor(err)

	s.logger.Warn("Protected route check failed",
		"provider", key.Provider,
		"instance", key.Instance,
		"reason", string(reason),
		"error", err)

	if hook != nil && hook(w, r, ProviderFailure{Key: key, Reason: reason, Err: err}) {
		return
	}

	s.writeError(w, r, err)
}

// failureReasonFor maps an error onto the coarse reason vocabulary hooks see.
func failureReasonFor(err error) FailureReason {
	var se *SessionError
	if !errors.As(err, &se) {
		return FailureErrorOccurred
	}
	switch se.Code {
	case ErrorCodeMissingTokens, ErrorCodeCorruptedSession:
		return FailureMissingTokens
	case ErrorCodeRefreshFailed:
		return FailureRefreshFailed
	default:
		return FailureErrorOccurred
	}
}

// TokenSetsFromContext returns every token set Protect injected, keyed by
// namespace. The map is shared; treat it as read-only.
func TokenSetsFromContext(ctx context.Context) (map[string]*TokenSet, bool) {
	m, ok := ctx.Value(tokenSetsContextKey{}).(map[string]*TokenSet)
	return m, ok
}

// TokenSetFromContext returns the token set for a provider key string
// ("clio" or "clio:acme"). Bare provider names follow whatever instance the
// middleware resolved for that provider.
func TokenSetFromContext(ctx context.Context, provider string) (*TokenSet, bool) {
	sets, ok := ctx.Value(tokenSetsContextKey{}).(map[string]*TokenSet)
	if !ok {
		return nil, false
	}

	key, err := ParseProviderKey(provider)
	if err != nil {
		return nil, false
	}
	if key.Instance == "" {
		if instance, ok := ResolvedInstanceFromContext(ctx, key.Provider); ok {
			key.Instance = instance
		}
	}

	ts, ok := sets[key.Namespace()]
	return ts, ok
}

// AccessTokenFromContext returns the access token for a provider key string.
// Convenience over TokenSetFromContext for the common case.
func AccessTokenFromContext(ctx context.Context, provider string) (string, bool) {
	ts, ok := TokenSetFromContext(ctx, provider)
	if !ok || ts.AccessToken == "" {
		return "", false
	}
	return ts.AccessToken, true
}

// ResolvedInstanceFromContext reports which instance the middleware picked
// for a provider. An empty string with ok=true means the global namespace.
func ResolvedInstanceFromContext(ctx context.Context, provider string) (string, bool) {
	m, ok := ctx.Value(instancesContextKey{}).(map[string]string)
	if !ok {
		return "", false
	}
	instance, ok := m[provider]
	return instance, ok
}
