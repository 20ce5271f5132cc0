// Package oidc builds provider configurations from OIDC discovery.
//
// Any issuer that serves /.well-known/openid-configuration (Keycloak, Dex,
// Okta, Google, ...) can be registered without hand-writing its endpoints.
//
// # Security
//
//   - Issuer URLs are validated before any request: HTTPS only, no
//     loopback, private or link-local targets
//   - The document's issuer claim must match the URL it was fetched from
//   - Every discovered endpoint must use HTTPS
//   - Documents are cached with a TTL; concurrent fetches of one issuer
//     share a single request
//
// # Example Usage
//
//	client := oidc.NewClient(nil, 1*time.Hour, logger)
//
//	cfg, err := client.ProviderConfig(ctx, oidc.Config{
//	    Issuer:       "https://example.com/realms/acme",
//	    ClientID:     os.Getenv("OIDC_CLIENT_ID"),
//	    ClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
//	    RedirectURI:  "https://app.example.com/oauth/callback",
//	})
//	if err != nil {
//	    return err
//	}
//	if err := s.Register("keycloak:acme", cfg); err != nil {
//	    return err
//	}
package oidc
