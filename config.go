package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/giantswarm/oauth-sessions/instrumentation"
)

// Default lifetimes applied when the corresponding config field is zero.
const (
	// DefaultAccessTokenCookieMaxAge is the fixed lifetime of the access
	// token cookie. Deliberately long: the cookie must outlive the access
	// token itself so an expired token is still there to be refreshed.
	DefaultAccessTokenCookieMaxAge = 30 * 24 * time.Hour

	// DefaultRefreshTokenCookieMaxAge is the refresh token cookie lifetime
	// used when neither the provider schema nor the config declares one.
	DefaultRefreshTokenCookieMaxAge = 30 * 24 * time.Hour

	// DefaultStateTTL bounds the login redirect to callback round trip.
	DefaultStateTTL = 5 * time.Minute

	// DefaultAccessTokenLifetime is assumed when a provider's token response
	// carries no expires_in at all.
	DefaultAccessTokenLifetime = time.Hour
)

// Config holds the toolkit configuration.
// Zero values get secure defaults from New.
type Config struct {
	// EncryptionKey is the AES-256 master key (32 bytes) for refresh token
	// encryption at rest. Per-provider keys are derived from it, so two
	// providers never share a cookie cipher. Nil disables encryption.
	// Generate with sessions.GenerateEncryptionKey().
	EncryptionKey []byte

	// Providers overrides the default in-memory registry.
	Providers ProviderStore

	// Exchanger overrides the token endpoint client. Mostly a test seam.
	Exchanger Exchanger

	// HTTPClient is used for token endpoint and revocation calls.
	// If not provided, a client with a 30s timeout is used.
	HTTPClient *http.Client

	// Cookies sets library-wide cookie defaults.
	Cookies CookieDefaults

	// StateTTL is the CSRF cookie lifetime. Default: 5 minutes.
	StateTTL time.Duration

	// RateLimit configures per-IP limiting of login and callback requests.
	RateLimit RateLimitConfig

	// EnableAuditLogging enables security audit logging.
	// Logs flow events and violations (sensitive data hashed).
	EnableAuditLogging bool

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger

	// Instrumentation enables OpenTelemetry metrics and tracing when set.
	Instrumentation *instrumentation.Instrumentation
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Rate is requests per second allowed per IP. Zero disables limiting.
	Rate int

	// Burst is the maximum burst size allowed per IP.
	Burst int

	// CleanupInterval is how often to cleanup inactive rate limiters.
	CleanupInterval time.Duration

	// TrustProxy enables trusting X-Forwarded-For and X-Real-IP headers.
	// Only enable behind a trusted reverse proxy.
	TrustProxy bool

	// TrustedProxyCount is how many proxies sit in front of the service,
	// counted from the right of X-Forwarded-For. Zero means one.
	TrustedProxyCount int
}

// CookieDefaults holds the attributes applied to every cookie the library
// writes. All cookies are HttpOnly and Path-scoped to "/" unless overridden.
type CookieDefaults struct {
	// Path defaults to "/".
	Path string

	// Domain is optional; empty means host-only cookies.
	Domain string

	// AllowInsecure drops the Secure attribute.
	// WARNING: Only for local development over plain HTTP.
	AllowInsecure bool

	// SameSite defaults to Lax. SameSiteNoneMode (cross-site embedding)
	// forces Secure regardless of AllowInsecure.
	SameSite http.SameSite

	// AccessTokenMaxAge is the fixed access token cookie lifetime.
	// Default: 30 days, independent of the token's own expiry.
	AccessTokenMaxAge time.Duration

	// RefreshTokenMaxAge is the fallback refresh token cookie lifetime.
	// Default: 30 days.
	RefreshTokenMaxAge time.Duration
}

func (d CookieDefaults) withDefaults() CookieDefaults {
	if d.Path == "" {
		d.Path = "/"
	}
	if d.SameSite == 0 {
		d.SameSite = http.SameSiteLaxMode
	}
	if d.AccessTokenMaxAge == 0 {
		d.AccessTokenMaxAge = DefaultAccessTokenCookieMaxAge
	}
	if d.RefreshTokenMaxAge == 0 {
		d.RefreshTokenMaxAge = DefaultRefreshTokenCookieMaxAge
	}
	return d
}

// ProviderConfig describes one OAuth provider, or one logical instance of
// one. Configs are owned by the registry after Register; the registry hands
// out shared references, so callers must not mutate them.
type ProviderConfig struct {
	// ClientID is the OAuth client identifier (required).
	ClientID string

	// ClientSecret is the OAuth client secret. Empty for public clients.
	ClientSecret string

	// AuthorizeEndpoint is the provider's authorization URL (required).
	AuthorizeEndpoint string

	// TokenEndpoint is the provider's token URL (required).
	TokenEndpoint string

	// RedirectURI is where the provider sends the user back (required).
	RedirectURI string

	// Scopes requested at login. LoginOptions can override per login.
	Scopes []string

	// Optional provider endpoints.
	UserInfoEndpoint      string
	RevocationEndpoint    string
	IntrospectionEndpoint string
	DeviceAuthEndpoint    string

	// AuthStyle selects how client credentials reach the token endpoint.
	// Default: auto-detect.
	AuthStyle oauth2.AuthStyle

	// Schema declares provider-specific token response fields to persist.
	Schema FieldSchema

	// Hooks are optional callback slots invoked by the flows.
	Hooks Hooks

	// Encrypt and Decrypt protect the refresh token cookie. The registry
	// installs a pair derived from the master key when both are nil.
	Encrypt func(plaintext string) (string, error)
	Decrypt func(ciphertext string) (string, error)

	// RefreshTokenMaxAge overrides the refresh cookie lifetime for this
	// provider. A declared refresh-expiry schema field wins over it.
	RefreshTokenMaxAge time.Duration
}

// Validate checks that the config can drive an authorization code flow.
func (c *ProviderConfig) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("provider config: ClientID is required")
	}
	if c.AuthorizeEndpoint == "" {
		return fmt.Errorf("provider config: AuthorizeEndpoint is required")
	}
	if c.TokenEndpoint == "" {
		return fmt.Errorf("provider config: TokenEndpoint is required")
	}
	if c.RedirectURI == "" {
		return fmt.Errorf("provider config: RedirectURI is required")
	}
	if c.Schema.EnforceRefreshExpiry {
		if c.Schema.RefreshExpiryField == "" {
			return fmt.Errorf("provider config: EnforceRefreshExpiry requires RefreshExpiryField")
		}
	}
	if c.Schema.RefreshExpiryField != "" {
		if _, ok := c.Schema.FieldByKey(c.Schema.RefreshExpiryField); !ok {
			return fmt.Errorf("provider config: refresh expiry field %q is not declared in the schema", c.Schema.RefreshExpiryField)
		}
	}
	for _, f := range c.Schema.Fields {
		if f.Key == "" {
			return fmt.Errorf("provider config: schema field with empty key")
		}
	}
	return nil
}

// Hooks are the named callback slots a provider config can fill. All hooks
// run synchronously in request order; their errors are logged, never fatal.
type Hooks struct {
	// OnTokenExchange runs after a successful code exchange, once the token
	// set is persisted.
	OnTokenExchange func(ctx context.Context, key ProviderKey, ts *TokenSet) error

	// OnTokenRefresh runs after a successful silent refresh, once the
	// normalized token set is re-persisted.
	OnTokenRefresh func(ctx context.Context, key ProviderKey, ts *TokenSet) error

	// OnSessionCleared runs after a logout removed a namespace's cookies.
	OnSessionCleared func(ctx context.Context, key ProviderKey) error
}
