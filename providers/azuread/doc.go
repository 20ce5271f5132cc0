// Package azuread provides a ready-made provider configuration for the
// Microsoft identity platform (Azure AD v2.0 endpoints).
//
// Azure AD token responses carry ext_expires_in, an extended lifetime the
// platform honors during its own outages. The schema stores it as an
// absolute timestamp next to the regular expiry so applications can decide
// whether a token is still usable in degraded mode.
//
// The offline_access scope is required for Azure AD to issue refresh
// tokens; New adds it to the defaults.
//
// Example usage:
//
//	s.Register("azure:dev", azuread.New(azuread.Config{
//	    ClientID:     os.Getenv("AZURE_CLIENT_ID"),
//	    ClientSecret: os.Getenv("AZURE_CLIENT_SECRET"),
//	    Tenant:       "contoso.onmicrosoft.com",
//	    RedirectURI:  "https://app.example.com/oauth/callback",
//	}))
package azuread
