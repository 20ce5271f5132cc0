package sessions

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/giantswarm/oauth-sessions/security"
)

// stateFieldReturnTo is the caller state field the bundled handlers use to
// round-trip the post-login destination.
const stateFieldReturnTo = "returnTo"

// LoginOptions customizes one login redirect.
type LoginOptions struct {
	// State is caller data to round-trip through the provider. It comes back
	// in CallbackResult.Fields. Keep it small: the whole state rides in a URL
	// parameter.
	State map[string]any

	// Scopes overrides the provider config's scopes for this login.
	Scopes []string

	// ExtraParams are added verbatim to the authorization URL
	// (e.g. "prompt": "consent", "access_type": "offline").
	ExtraParams map[string]string
}

// CallbackResult is what a completed callback hands back to the caller.
type CallbackResult struct {
	// Key identifies the provider the session was established for.
	Key ProviderKey

	// TokenSet holds the freshly persisted tokens.
	TokenSet *TokenSet

	// Fields is the caller state from LoginOptions.State.
	Fields map[string]any
}

// HandleLogin starts the authorization code flow: it binds a CSRF cookie,
// encodes the state parameter, and redirects to the provider's authorization
// endpoint. Errors are returned unwritten so callers control the response;
// LoginHandler wires them to writeError.
func (s *Sessions) HandleLogin(w http.ResponseWriter, r *http.Request, key ProviderKey, opts *LoginOptions) error {
	ctx := r.Context()
	clientIP := s.clientIP(r)

	if err := s.allowFlow(ctx, clientIP, "login"); err != nil {
		return err
	}

	cfg, err := s.providers.Get(key)
	if err != nil {
		return err
	}

	if opts == nil {
		opts = &LoginOptions{}
	}

	rc := NewHTTPContext(w, r, s.cookies)
	state, err := s.encodeState(rc, key, opts.State)
	if err != nil {
		se := ErrServerError("Failed to encode login state")
		se.Err = err
		return se
	}

	scopes := cfg.Scopes
	if len(opts.Scopes) > 0 {
		scopes = opts.Scopes
	}

	s.recordLogin(ctx, key.Provider)
	if s.auditor != nil {
		s.auditor.LogLoginStarted(key.Provider, key.Instance, clientIP, strings.Join(scopes, " "))
	}
	s.logger.Debug("Login flow started",
		"provider", key.Provider,
		"instance", key.Instance)

	s.secureHeaders(w)
	http.Redirect(w, r, authCodeURL(cfg, state, scopes, opts.ExtraParams), http.StatusFound)
	return nil
}

// LoginHandler adapts HandleLogin into an http.Handler. A returnTo query
// parameter, when present, is folded into the state so CallbackHandler can
// send the user back where they started.
func (s *Sessions) LoginHandler(key ProviderKey, opts *LoginOptions) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perRequest := LoginOptions{}
		if opts != nil {
			perRequest = *opts
		}
		if returnTo := r.URL.Query().Get(stateFieldReturnTo); returnTo != "" {
			fields := make(map[string]any, len(perRequest.State)+1)
			for k, v := range perRequest.State {
				fields[k] = v
			}
			fields[stateFieldReturnTo] = returnTo
			perRequest.State = fields
		}

		if err := s.HandleLogin(w, r, key, &perRequest); err != nil {
			s.writeError(w, r, err)
		}
	})
}

// HandleCallback completes the authorization code flow: it verifies the
// state, exchanges the code, and persists the resulting session cookies.
// The response is left to the caller except for the Set-Cookie headers.
func (s *Sessions) HandleCallback(w http.ResponseWriter, r *http.Request) (*CallbackResult, error) {
	ctx := r.Context()
	clientIP := s.clientIP(r)

	if err := s.allowFlow(ctx, clientIP, "callback"); err != nil {
		return nil, err
	}

	rc := NewHTTPContext(w, r, s.cookies)

	if errCode := rc.Query("error"); errCode != "" {
		desc := rc.Query("error_description")
		if desc == "" {
			desc = "The provider denied the authorization request"
		}
		if s.auditor != nil {
			s.auditor.LogEvent(security.Event{
				Type:      security.EventAccessDenied,
				IPAddress: clientIP,
				RequestID: security.GetRequestID(ctx),
				Details:   map[string]any{"error": errCode},
			})
		}
		s.logger.Warn("Provider returned an authorization error",
			"error", errCode,
			"description", desc)
		if errCode == "access_denied" {
			return nil, ErrAccessDenied(desc)
		}
		return nil, ErrAccessDenied(fmt.Sprintf("%s: %s", errCode, desc))
	}

	rawState := rc.Query("state")
	if rawState == "" {
		return nil, ErrMalformedState("State parameter is missing")
	}
	st, err := decodeState(rawState)
	if err != nil {
		if s.auditor != nil {
			s.auditor.LogEvent(security.Event{
				Type:      security.EventMalformedState,
				IPAddress: clientIP,
				RequestID: security.GetRequestID(ctx),
			})
		}
		return nil, err
	}

	if err := s.verifyState(rc, st); err != nil {
		s.recordCSRF(ctx, st.Key.Provider)
		if s.auditor != nil {
			s.auditor.LogStateMismatch(st.Key.Provider, clientIP)
		}
		s.logger.Warn("State verification failed", "provider", st.Key.Provider)
		return nil, err
	}

	code := rc.Query("code")
	if code == "" {
		return nil, ErrMalformedState("Authorization code is missing")
	}

	cfg, err := s.providers.Get(st.Key)
	if err != nil {
		return nil, err
	}

	key := st.Key.WithoutPreserve()
	ns := key.Namespace()

	exchangeCtx, span := s.startSpan(ctx, "sessions.exchange", key)
	start := time.Now()
	ts, err := s.exchanger.Exchange(exchangeCtx, cfg, code)
	s.recordProviderCall(ctx, key.Provider, "exchange", providerStatusOf(err), time.Since(start), err)
	if err != nil {
		s.endSpan(span, err)
		s.recordCallback(ctx, key.Provider, false)
		if s.auditor != nil {
			s.auditor.LogExchangeFailed(key.Provider, key.Instance, clientIP, err.Error())
		}
		s.logger.Warn("Failed to exchange authorization code",
			"namespace", ns,
			"error", err)
		return nil, err
	}
	s.endSpan(span, nil)
	s.recordExchange(ctx, key.Provider)

	// Pre-clean before the write. A preserving login clears only its own
	// namespace, leaving sibling instance sessions alone; the default clears
	// every namespace of the provider so switching accounts cannot leave
	// stale cookies behind.
	if st.Key.Preserve {
		clearTokenSet(rc, ns, cfg.Schema)
	} else {
		s.sweepProviderCookies(rc, key.Provider)
	}

	if err := s.writeTokenSet(rc, ns, ts, cfg); err != nil {
		se := ErrServerError("Failed to persist session tokens")
		se.Err = err
		return nil, se
	}

	if hook := cfg.Hooks.OnTokenExchange; hook != nil {
		if err := hook(ctx, key, ts.Clone()); err != nil {
			s.logger.Warn("Failed to run token exchange hook",
				"namespace", ns,
				"error", err)
		}
	}

	s.recordCallback(ctx, key.Provider, true)
	if s.auditor != nil {
		s.auditor.LogCallbackCompleted(key.Provider, key.Instance, clientIP)
	}
	s.logger.Info("Session established", "namespace", ns)

	return &CallbackResult{Key: key, TokenSet: ts, Fields: st.Fields}, nil
}

// CallbackHandler adapts HandleCallback into an http.Handler that finishes
// with a redirect: to the state's returnTo field when it names a local path,
// to defaultReturnTo otherwise.
func (s *Sessions) CallbackHandler(defaultReturnTo string) http.Handler {
	if defaultReturnTo == "" {
		defaultReturnTo = "/"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := s.HandleCallback(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		target := defaultReturnTo
		if returnTo, ok := result.Fields[stateFieldReturnTo].(string); ok && isLocalPath(returnTo) {
			target = returnTo
		}

		s.secureHeaders(w)
		http.Redirect(w, r, target, http.StatusFound)
	})
}

// HandleLogout tears down the sessions for the given provider keys: tokens
// are revoked at the provider when a revocation endpoint is configured (best
// effort), then each namespace's cookies are deleted. Keys without a
// registered config still get their base cookies cleared, so deregistering a
// provider cannot strand its sessions.
func (s *Sessions) HandleLogout(w http.ResponseWriter, r *http.Request, keys ...ProviderKey) error {
	ctx := r.Context()
	clientIP := s.clientIP(r)
	rc := NewHTTPContext(w, r, s.cookies)

	for _, key := range keys {
		ns := key.Namespace()
		cfg, err := s.providers.Get(key)
		if err != nil {
			s.logger.Warn("Clearing session for unregistered provider", "namespace", ns)
			clearTokenSet(rc, ns, FieldSchema{})
			continue
		}

		s.revokeBestEffort(ctx, rc, key, cfg, clientIP)
		clearTokenSet(rc, ns, cfg.Schema)

		if hook := cfg.Hooks.OnSessionCleared; hook != nil {
			if err := hook(ctx, key); err != nil {
				s.logger.Warn("Failed to run session cleared hook",
					"namespace", ns,
					"error", err)
			}
		}

		s.recordCleared(ctx, key.Provider)
		if s.auditor != nil {
			s.auditor.LogSessionCleared(key.Provider, key.Instance, clientIP)
		}
		s.logger.Debug("Session cleared", "namespace", ns)
	}

	return nil
}

// LogoutHandler adapts HandleLogout into an http.Handler that redirects to
// returnTo (default "/") once the cookies are gone.
func (s *Sessions) LogoutHandler(returnTo string, keys ...ProviderKey) http.Handler {
	if returnTo == "" {
		returnTo = "/"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.HandleLogout(w, r, keys...); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.secureHeaders(w)
		http.Redirect(w, r, returnTo, http.StatusFound)
	})
}

// revokeBestEffort revokes the session's tokens at the provider, preferring
// the refresh token (providers typically cascade to its access tokens).
// Failures are logged and audited, never surfaced: logout must always end
// with the cookies gone.
func (s *Sessions) revokeBestEffort(ctx context.Context, rc RequestContext, key ProviderKey, cfg *ProviderConfig, clientIP string) {
	if cfg.RevocationEndpoint == "" {
		return
	}
	ns := key.Namespace()

	token, hint := "", ""
	if refresh, ok := s.readRefreshToken(rc, ns, cfg); ok {
		token, hint = refresh, "refresh_token"
	} else if access, ok := rc.Cookie(baseCookieName(ns, suffixAccessToken)); ok && access != "" {
		token, hint = access, "access_token"
	}
	if token == "" {
		return
	}

	revokeCtx, span := s.startSpan(ctx, "sessions.revoke", key)
	start := time.Now()
	err := s.exchanger.Revoke(revokeCtx, cfg, token, hint)
	s.recordProviderCall(ctx, key.Provider, "revoke", providerStatusOf(err), time.Since(start), err)
	s.endSpan(span, err)
	if err != nil {
		s.logger.Warn("Failed to revoke token at provider",
			"namespace", ns,
			"error", err)
		if s.auditor != nil {
			s.auditor.LogRevocationFailed(key.Provider, key.Instance, clientIP, err.Error())
		}
		return
	}
	s.recordRevoked(ctx, key.Provider)
}

// allowFlow applies the per-IP limiter to a flow endpoint.
func (s *Sessions) allowFlow(ctx context.Context, clientIP, endpoint string) error {
	if s.limiter == nil || s.limiter.Allow(clientIP) {
		return nil
	}
	s.recordRateLimited(ctx)
	if s.auditor != nil {
		s.auditor.LogRateLimitExceeded(clientIP, endpoint)
	}
	s.logger.Warn("Rate limit exceeded", "ip", clientIP, "endpoint", endpoint)
	return ErrRateLimitExceeded()
}

// authCodeURL builds the provider authorization URL for one login.
func authCodeURL(cfg *ProviderConfig, state string, scopes []string, extraParams map[string]string) string {
	ocfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthorizeEndpoint,
			TokenURL:  cfg.TokenEndpoint,
			AuthStyle: cfg.AuthStyle,
		},
	}

	opts := make([]oauth2.AuthCodeOption, 0, len(extraParams))
	for k, v := range extraParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return ocfg.AuthCodeURL(state, opts...)
}

// isLocalPath guards redirect targets read from state: same-origin paths
// only, no scheme-relative ("//evil.example") or backslash-escaped URLs.
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, "\\")
}

// providerStatusOf extracts the upstream status a provider call ended with.
func providerStatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	se := asSessionError(err)
	return se.ProviderStatus
}
