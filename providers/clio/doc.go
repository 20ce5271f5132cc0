// Package clio provides a ready-made provider configuration for the Clio
// practice management API.
//
// Clio issues long-lived refresh tokens and a plain token response, so the
// configuration carries no field schema. Clio accounts live in regional
// deployments; pick the region matching the account's data residency.
//
// Example usage:
//
//	s.Register("clio:smithlaw", clio.New(clio.Config{
//	    ClientID:     os.Getenv("CLIO_CLIENT_ID"),
//	    ClientSecret: os.Getenv("CLIO_CLIENT_SECRET"),
//	    RedirectURI:  "https://app.example.com/oauth/callback",
//	}))
package clio
