package azuread

import (
	sessions "github.com/giantswarm/oauth-sessions"
)

// FieldExtExpiresIn is the Azure AD extended expiry field. It is persisted
// as an absolute UNIX timestamp.
const FieldExtExpiresIn = "ext_expires_in"

// Config holds the Azure AD application settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// Tenant is the directory tenant: a tenant ID, a verified domain, or
	// one of the pseudo-tenants "common", "organizations" and "consumers".
	// Default: "common".
	Tenant string

	// Scopes requested at login.
	// Default: openid, profile, email, offline_access.
	Scopes []string
}

// New builds a provider configuration for the tenant's v2.0 endpoints.
func New(cfg Config) *sessions.ProviderConfig {
	tenant := cfg.Tenant
	if tenant == "" {
		tenant = "common"
	}
	base := "https://login.microsoftonline.com/" + tenant + "/oauth2/v2.0"

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email", "offline_access"}
	}

	return &sessions.ProviderConfig{
		ClientID:          cfg.ClientID,
		ClientSecret:      cfg.ClientSecret,
		RedirectURI:       cfg.RedirectURI,
		Scopes:            scopes,
		AuthorizeEndpoint: base + "/authorize",
		TokenEndpoint:     base + "/token",
		Schema: sessions.FieldSchema{
			Fields: []sessions.Field{
				{Key: FieldExtExpiresIn, Transform: sessions.AbsoluteFromSeconds},
			},
		},
	}
}
