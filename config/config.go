package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"

	sessions "github.com/giantswarm/oauth-sessions"
	"github.com/giantswarm/oauth-sessions/providers/oidc"
	"github.com/giantswarm/oauth-sessions/security"
)

// Manifest is the YAML configuration file. Durations are Go duration
// strings ("45m", "720h").
type Manifest struct {
	// EncryptionKey is the base64-encoded AES-256 master key for refresh
	// token encryption. Usually an environment reference:
	// ${OAUTH_SESSIONS_ENCRYPTION_KEY}.
	EncryptionKey string `yaml:"encryption_key"`

	// StateTTL bounds the login to callback round trip. Default: 5m.
	StateTTL string `yaml:"state_ttl"`

	// AuditLogging enables the security audit log.
	AuditLogging bool `yaml:"audit_logging"`

	Cookies   Cookies    `yaml:"cookies"`
	RateLimit RateLimit  `yaml:"rate_limit"`
	Providers []Provider `yaml:"providers"`
}

// Cookies sets the library-wide cookie attributes.
type Cookies struct {
	Path               string `yaml:"path"`
	Domain             string `yaml:"domain"`
	SameSite           string `yaml:"same_site"`
	AllowInsecure      bool   `yaml:"allow_insecure"`
	AccessTokenMaxAge  string `yaml:"access_token_max_age"`
	RefreshTokenMaxAge string `yaml:"refresh_token_max_age"`
}

// RateLimit configures per-IP limiting of login and callback requests.
type RateLimit struct {
	Rate              int  `yaml:"rate"`
	Burst             int  `yaml:"burst"`
	TrustProxy        bool `yaml:"trust_proxy"`
	TrustedProxyCount int  `yaml:"trusted_proxy_count"`
}

// Provider declares one registration, keyed "provider" or
// "provider:instance". An entry either names an issuer, completed through
// OIDC discovery, or spells out its endpoints.
type Provider struct {
	Key string `yaml:"key"`

	// Issuer switches the entry to OIDC discovery. Mutually exclusive
	// with explicit endpoints.
	Issuer string `yaml:"issuer"`

	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURI  string   `yaml:"redirect_uri"`
	Scopes       []string `yaml:"scopes"`

	AuthorizeEndpoint  string `yaml:"authorize_endpoint"`
	TokenEndpoint      string `yaml:"token_endpoint"`
	UserInfoEndpoint   string `yaml:"userinfo_endpoint"`
	RevocationEndpoint string `yaml:"revocation_endpoint"`

	// AuthStyle is how the token endpoint takes client credentials:
	// "params", "header", or empty for auto-detection.
	AuthStyle string `yaml:"auth_style"`

	// Fields are extra token response fields persisted alongside the
	// tokens.
	Fields []Field `yaml:"fields"`

	// RefreshExpiryField names the schema field carrying the refresh token
	// lifetime. With enforce_refresh_expiry an elapsed lifetime forces
	// re-authentication instead of a refresh attempt.
	RefreshExpiryField   string `yaml:"refresh_expiry_field"`
	EnforceRefreshExpiry bool   `yaml:"enforce_refresh_expiry"`

	RefreshTokenMaxAge string `yaml:"refresh_token_max_age"`
}

// Field declares one schema field.
type Field struct {
	Key        string `yaml:"key"`
	CookieName string `yaml:"cookie_name"`

	// AbsoluteFromSeconds converts a relative seconds value from the token
	// response into an absolute UNIX timestamp at persist time.
	AbsoluteFromSeconds bool `yaml:"absolute_from_seconds"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references from the environment and parses the
// manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	seen := make(map[string]bool, len(m.Providers))
	for i, p := range m.Providers {
		key, err := sessions.ParseProviderKey(p.Key)
		if err != nil {
			return fmt.Errorf("provider %d: %w", i, err)
		}
		if key.Preserve {
			return fmt.Errorf("provider %q: registration keys must not carry the preserve flag", p.Key)
		}
		ns := key.Namespace()
		if seen[ns] {
			return fmt.Errorf("provider %q declared twice", ns)
		}
		seen[ns] = true

		if p.Issuer == "" && (p.AuthorizeEndpoint == "" || p.TokenEndpoint == "") {
			return fmt.Errorf("provider %q: needs an issuer or explicit authorize and token endpoints", ns)
		}
		if p.Issuer != "" && (p.AuthorizeEndpoint != "" || p.TokenEndpoint != "") {
			return fmt.Errorf("provider %q: issuer and explicit endpoints are mutually exclusive", ns)
		}
	}
	return nil
}

// SessionsConfig converts the manifest into a sessions.Config. Provider
// entries are not part of the result; Apply registers them once the
// Sessions exists.
func (m *Manifest) SessionsConfig(logger *slog.Logger) (*sessions.Config, error) {
	stateTTL, err := parseDuration(m.StateTTL, "state_ttl")
	if err != nil {
		return nil, err
	}
	accessMaxAge, err := parseDuration(m.Cookies.AccessTokenMaxAge, "cookies.access_token_max_age")
	if err != nil {
		return nil, err
	}
	refreshMaxAge, err := parseDuration(m.Cookies.RefreshTokenMaxAge, "cookies.refresh_token_max_age")
	if err != nil {
		return nil, err
	}

	cfg := &sessions.Config{
		StateTTL:           stateTTL,
		EnableAuditLogging: m.AuditLogging,
		Logger:             logger,
		Cookies: sessions.CookieDefaults{
			Path:               m.Cookies.Path,
			Domain:             m.Cookies.Domain,
			AllowInsecure:      m.Cookies.AllowInsecure,
			SameSite:           sessions.ParseSameSite(m.Cookies.SameSite),
			AccessTokenMaxAge:  accessMaxAge,
			RefreshTokenMaxAge: refreshMaxAge,
		},
		RateLimit: sessions.RateLimitConfig{
			Rate:              m.RateLimit.Rate,
			Burst:             m.RateLimit.Burst,
			TrustProxy:        m.RateLimit.TrustProxy,
			TrustedProxyCount: m.RateLimit.TrustedProxyCount,
		},
	}

	if m.EncryptionKey != "" {
		key, err := security.KeyFromBase64(strings.TrimSpace(m.EncryptionKey))
		if err != nil {
			return nil, fmt.Errorf("encryption_key: %w", err)
		}
		cfg.EncryptionKey = key
	}
	return cfg, nil
}

// Apply registers every manifest provider into s. Entries with an issuer
// go through discovery; a nil discovery client gets default settings.
func (m *Manifest) Apply(ctx context.Context, s *sessions.Sessions, discovery *oidc.Client) error {
	for _, p := range m.Providers {
		if p.Issuer != "" && discovery == nil {
			discovery = oidc.NewClient(nil, 0, nil)
		}
		cfg, err := p.providerConfig(ctx, discovery)
		if err != nil {
			return fmt.Errorf("provider %q: %w", p.Key, err)
		}
		if err := s.Register(p.Key, cfg); err != nil {
			return err
		}
	}
	return nil
}

// Build is the one-call path from configuration to a ready Sessions: load
// .env if present, read the environment settings, load the manifest, lay
// the environment over it, construct the Sessions and register every
// provider. An empty path falls back to the OAUTH_SESSIONS_MANIFEST
// setting.
func Build(ctx context.Context, path string, logger *slog.Logger) (*sessions.Sessions, error) {
	_ = godotenv.Load()

	settings, err := LoadSettings()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = settings.Manifest
	}

	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	settings.Merge(m)

	cfg, err := m.SessionsConfig(logger)
	if err != nil {
		return nil, err
	}
	s, err := sessions.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := m.Apply(ctx, s, nil); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (p Provider) providerConfig(ctx context.Context, discovery *oidc.Client) (*sessions.ProviderConfig, error) {
	refreshMaxAge, err := parseDuration(p.RefreshTokenMaxAge, "refresh_token_max_age")
	if err != nil {
		return nil, err
	}

	var cfg *sessions.ProviderConfig
	if p.Issuer != "" {
		cfg, err = discovery.ProviderConfig(ctx, oidc.Config{
			Issuer:       p.Issuer,
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURI:  p.RedirectURI,
			Scopes:       p.Scopes,
		})
		if err != nil {
			return nil, err
		}
	} else {
		cfg = &sessions.ProviderConfig{
			ClientID:           p.ClientID,
			ClientSecret:       p.ClientSecret,
			RedirectURI:        p.RedirectURI,
			Scopes:             p.Scopes,
			AuthorizeEndpoint:  p.AuthorizeEndpoint,
			TokenEndpoint:      p.TokenEndpoint,
			UserInfoEndpoint:   p.UserInfoEndpoint,
			RevocationEndpoint: p.RevocationEndpoint,
		}
	}

	cfg.AuthStyle = authStyle(p.AuthStyle)
	cfg.RefreshTokenMaxAge = refreshMaxAge
	cfg.Schema = p.schema()
	return cfg, nil
}

func (p Provider) schema() sessions.FieldSchema {
	s := sessions.FieldSchema{
		RefreshExpiryField:   p.RefreshExpiryField,
		EnforceRefreshExpiry: p.EnforceRefreshExpiry,
	}
	for _, f := range p.Fields {
		field := sessions.Field{Key: f.Key, CookieName: f.CookieName}
		if f.AbsoluteFromSeconds {
			field.Transform = sessions.AbsoluteFromSeconds
		}
		s.Fields = append(s.Fields, field)
	}
	return s
}

// authStyle maps the manifest's auth style names onto oauth2's.
func authStyle(s string) oauth2.AuthStyle {
	switch strings.ToLower(s) {
	case "params":
		return oauth2.AuthStyleInParams
	case "header":
		return oauth2.AuthStyleInHeader
	default:
		return oauth2.AuthStyleAutoDetect
	}
}

// parseDuration parses a manifest duration, treating "" as zero so the
// library defaults apply.
func parseDuration(s, name string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
