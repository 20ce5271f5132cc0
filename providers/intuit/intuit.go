package intuit

import (
	"golang.org/x/oauth2"

	sessions "github.com/giantswarm/oauth-sessions"
)

// FieldRefreshTokenExpiresIn is Intuit's refresh token lifetime field. It is
// persisted as an absolute UNIX timestamp and enforced during validation.
const FieldRefreshTokenExpiresIn = "x_refresh_token_expires_in"

// Config holds the Intuit application settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// Scopes requested at login.
	// Default: com.intuit.quickbooks.accounting.
	Scopes []string
}

// New builds a provider configuration for Intuit's OAuth endpoints.
func New(cfg Config) *sessions.ProviderConfig {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"com.intuit.quickbooks.accounting"}
	}

	return &sessions.ProviderConfig{
		ClientID:           cfg.ClientID,
		ClientSecret:       cfg.ClientSecret,
		RedirectURI:        cfg.RedirectURI,
		Scopes:             scopes,
		AuthorizeEndpoint:  "https://appcenter.intuit.com/connect/oauth2",
		TokenEndpoint:      "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer",
		RevocationEndpoint: "https://developer.api.intuit.com/v2/oauth2/tokens/revoke",
		AuthStyle:          oauth2.AuthStyleInHeader,
		Schema: sessions.FieldSchema{
			Fields: []sessions.Field{
				{Key: FieldRefreshTokenExpiresIn, Transform: sessions.AbsoluteFromSeconds},
			},
			RefreshExpiryField:   FieldRefreshTokenExpiresIn,
			EnforceRefreshExpiry: true,
		},
	}
}
