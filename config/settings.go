package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings are the process-environment knobs: the secrets and deployment
// toggles that do not belong in a manifest file. Where a setting overlaps
// a manifest field, Merge lets the environment win.
type Settings struct {
	// EncryptionKey is the base64-encoded AES-256 master key.
	EncryptionKey string `env:"OAUTH_SESSIONS_ENCRYPTION_KEY"`

	// Manifest is the manifest path Build falls back to.
	Manifest string `env:"OAUTH_SESSIONS_MANIFEST" envDefault:"oauth-sessions.yaml"`

	// StateTTL overrides the manifest's state_ttl.
	StateTTL time.Duration `env:"OAUTH_SESSIONS_STATE_TTL"`

	// CookieDomain overrides cookies.domain.
	CookieDomain string `env:"OAUTH_SESSIONS_COOKIE_DOMAIN"`

	// AllowInsecureCookies drops the Secure cookie attribute. Development
	// only.
	AllowInsecureCookies bool `env:"OAUTH_SESSIONS_ALLOW_INSECURE_COOKIES"`

	// AuditLogging enables the security audit log.
	AuditLogging bool `env:"OAUTH_SESSIONS_AUDIT_LOGGING"`

	// RateLimit and RateBurst override the manifest's rate_limit.
	RateLimit int `env:"OAUTH_SESSIONS_RATE_LIMIT"`
	RateBurst int `env:"OAUTH_SESSIONS_RATE_BURST"`

	// TrustProxy enables client IP extraction from proxy headers.
	TrustProxy        bool `env:"OAUTH_SESSIONS_TRUST_PROXY"`
	TrustedProxyCount int  `env:"OAUTH_SESSIONS_TRUSTED_PROXY_COUNT"`
}

// LoadSettings reads Settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse environment: %w", err)
	}
	return s, nil
}

// Merge lays the settings over the manifest. Strings and numbers win when
// non-zero; booleans can only switch features on, never off.
func (s Settings) Merge(m *Manifest) {
	if s.EncryptionKey != "" {
		m.EncryptionKey = s.EncryptionKey
	}
	if s.StateTTL > 0 {
		m.StateTTL = s.StateTTL.String()
	}
	if s.CookieDomain != "" {
		m.Cookies.Domain = s.CookieDomain
	}
	if s.AllowInsecureCookies {
		m.Cookies.AllowInsecure = true
	}
	if s.AuditLogging {
		m.AuditLogging = true
	}
	if s.RateLimit > 0 {
		m.RateLimit.Rate = s.RateLimit
	}
	if s.RateBurst > 0 {
		m.RateLimit.Burst = s.RateBurst
	}
	if s.TrustProxy {
		m.RateLimit.TrustProxy = true
	}
	if s.TrustedProxyCount > 0 {
		m.RateLimit.TrustedProxyCount = s.TrustedProxyCount
	}
}
