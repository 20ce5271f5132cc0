package sessions

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// FailureReason classifies why a protected-route provider check failed.
type FailureReason string

const (
	// FailureMissingTokens: no usable session exists (or it is corrupted).
	FailureMissingTokens FailureReason = "missing-or-invalid-tokens"

	// FailureRefreshFailed: the provider rejected the refresh token.
	FailureRefreshFailed FailureReason = "refresh-failed"

	// FailureErrorOccurred: an unexpected error interrupted the check.
	FailureErrorOccurred FailureReason = "error-occurred"
)

// ProviderFailure is handed to failure hooks.
type ProviderFailure struct {
	Key    ProviderKey
	Reason FailureReason
	Err    error
}

// FailureHook lets a route substitute its own response for a provider
// failure (redirect to a login page, render HTML, ...). Returning true means
// the hook wrote the response; false falls through to the library's
// structured JSON error.
type FailureHook func(w http.ResponseWriter, r *http.Request, failure ProviderFailure) bool

// ProviderRequirement declares one provider a protected route needs.
//
// Instance selection, in order: InstanceKey pins one instance;
// ResolveInstance computes one per request (returning "" selects the global
// namespace); with neither set, the global namespace is validated and, when
// it holds no session, cookies are scanned for an instance session
// ({provider}:{instance}_refresh_token). The scan takes the first match in
// Cookie-header order; with several live instance sessions the choice is
// inherently ambiguous, so routes that must be exact should resolve
// explicitly.
type ProviderRequirement struct {
	Provider string

	// InstanceKey pins the requirement to one registered instance.
	InstanceKey string

	// ResolveInstance selects the instance per request, e.g. from the
	// authenticated tenant. It may block; the request context applies.
	ResolveInstance func(ctx context.Context, r *http.Request) (string, error)

	// OnFailure runs before the structured error would be written.
	OnFailure FailureHook
}

// Require builds a requirement from a provider key string ("clio",
// "clio:acme"). Strings that do not parse are kept verbatim as the provider
// name so the failure surfaces loudly as provider_not_registered.
func Require(key string) ProviderRequirement {
	pk, err := ParseProviderKey(key)
	if err != nil {
		return ProviderRequirement{Provider: key}
	}
	return ProviderRequirement{Provider: pk.Provider, InstanceKey: pk.Instance}
}

// resolution is one provider requirement resolved against a request.
type resolution struct {
	key    ProviderKey
	cfg    *ProviderConfig
	result *ValidationResult
}

// resolveAndValidate picks the namespace for a requirement and validates it.
func (s *Sessions) resolveAndValidate(rc RequestContext, r *http.Request, req ProviderRequirement) (*resolution, error) {
	if req.Provider == "" {
		return nil, fmt.Errorf("provider requirement has no provider")
	}

	switch {
	case req.InstanceKey != "":
		return s.validateFor(rc, ProviderKey{Provider: req.Provider, Instance: req.InstanceKey})

	case req.ResolveInstance != nil:
		instance, err := req.ResolveInstance(r.Context(), r)
		if err != nil {
			return nil, fmt.Errorf("resolve instance for provider %q: %w", req.Provider, err)
		}
		return s.validateFor(rc, ProviderKey{Provider: req.Provider, Instance: instance})

	default:
		globalKey := ProviderKey{Provider: req.Provider}
		var global *resolution
		if s.providers.Has(globalKey) {
			res, err := s.validateFor(rc, globalKey)
			if err != nil {
				return nil, err
			}
			if res.result.Status != StatusAbsent {
				return res, nil
			}
			global = res
		}

		if instance, ok := discoverInstance(rc, req.Provider); ok {
			return s.validateFor(rc, ProviderKey{Provider: req.Provider, Instance: instance})
		}
		if global != nil {
			return global, nil
		}
		return nil, ErrNotRegistered(req.Provider)
	}
}

func (s *Sessions) validateFor(rc RequestContext, key ProviderKey) (*resolution, error) {
	cfg, err := s.providers.Get(key)
	if err != nil {
		return nil, err
	}
	return &resolution{
		key:    key,
		cfg:    cfg,
		result: s.validateTokens(rc, key.Namespace(), cfg),
	}, nil
}

// discoverInstance scans cookie names for an instance-scoped refresh token
// of the provider. First match in header order wins.
func discoverInstance(rc RequestContext, provider string) (string, bool) {
	prefix := provider + ":"
	suffix := "_" + suffixRefreshToken
	for _, name := range rc.CookieNames() {
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		instance := name[len(prefix) : len(name)-len(suffix)]
		if instance != "" {
			return instance, true
		}
	}
	return "", false
}
