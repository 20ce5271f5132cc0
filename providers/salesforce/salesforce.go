package salesforce

import (
	sessions "github.com/giantswarm/oauth-sessions"
)

// Schema field keys persisted from Salesforce token responses.
const (
	// FieldInstanceURL is the org's API host, for example
	// https://acme.my.salesforce.com.
	FieldInstanceURL = "instance_url"

	// FieldIssuedAt is the token issue time in epoch milliseconds.
	FieldIssuedAt = "issued_at"

	// FieldID is the identity URL of the authenticated user.
	FieldID = "id"
)

// Config holds the Salesforce connected app settings.
type Config struct {
	// ClientID is the connected app's consumer key.
	ClientID string

	// ClientSecret is the connected app's consumer secret.
	ClientSecret string

	RedirectURI string

	// Domain is the login host: "login.salesforce.com" for production,
	// "test.salesforce.com" for sandboxes, or an org's My Domain host.
	// Default: "login.salesforce.com".
	Domain string

	// Scopes requested at login. Default: api, refresh_token.
	Scopes []string
}

// New builds a provider configuration for the domain's OAuth endpoints.
func New(cfg Config) *sessions.ProviderConfig {
	domain := cfg.Domain
	if domain == "" {
		domain = "login.salesforce.com"
	}
	base := "https://" + domain + "/services/oauth2"

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"api", "refresh_token"}
	}

	return &sessions.ProviderConfig{
		ClientID:           cfg.ClientID,
		ClientSecret:       cfg.ClientSecret,
		RedirectURI:        cfg.RedirectURI,
		Scopes:             scopes,
		AuthorizeEndpoint:  base + "/authorize",
		TokenEndpoint:      base + "/token",
		RevocationEndpoint: base + "/revoke",
		UserInfoEndpoint:   base + "/userinfo",
		Schema: sessions.FieldSchema{
			Fields: []sessions.Field{
				{Key: FieldInstanceURL},
				{Key: FieldIssuedAt},
				{Key: FieldID},
			},
		},
	}
}
