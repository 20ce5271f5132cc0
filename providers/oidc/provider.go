package oidc

import (
	"context"

	sessions "github.com/giantswarm/oauth-sessions"
)

// Config describes an issuer-backed provider.
type Config struct {
	// Issuer is the OIDC issuer URL, for example
	// https://accounts.google.com or https://example.com/realms/acme.
	Issuer string

	ClientID     string
	ClientSecret string
	RedirectURI  string

	// Scopes requested at login. Default: openid, profile, email.
	Scopes []string
}

// ProviderConfig discovers the issuer's endpoints and builds a provider
// configuration from them. Repeat calls for the same issuer are served from
// the discovery cache, so per-instance registrations against one identity
// host cost a single metadata fetch.
func (c *Client) ProviderConfig(ctx context.Context, cfg Config) (*sessions.ProviderConfig, error) {
	doc, err := c.Discover(ctx, cfg.Issuer)
	if err != nil {
		return nil, err
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}

	return &sessions.ProviderConfig{
		ClientID:              cfg.ClientID,
		ClientSecret:          cfg.ClientSecret,
		RedirectURI:           cfg.RedirectURI,
		Scopes:                scopes,
		AuthorizeEndpoint:     doc.AuthorizationEndpoint,
		TokenEndpoint:         doc.TokenEndpoint,
		UserInfoEndpoint:      doc.UserInfoEndpoint,
		RevocationEndpoint:    doc.RevocationEndpoint,
		IntrospectionEndpoint: doc.IntrospectionEndpoint,
		DeviceAuthEndpoint:    doc.DeviceAuthorizationEndpoint,
	}, nil
}
