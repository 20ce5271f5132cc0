// Package intuit provides a ready-made provider configuration for Intuit
// (QuickBooks Online).
//
// Intuit rotates refresh tokens and reports their remaining lifetime as
// x_refresh_token_expires_in on every token response. The schema stores it
// as an absolute timestamp, sizes the refresh token cookie from it, and
// enforces it during validation: once the refresh token's own lifetime has
// elapsed the session validates as expired even while the access token
// still looks fresh, which forces a refresh attempt and surfaces the dead
// grant immediately instead of at the next API call.
//
// Example usage:
//
//	s.Register("intuit", intuit.New(intuit.Config{
//	    ClientID:     os.Getenv("INTUIT_CLIENT_ID"),
//	    ClientSecret: os.Getenv("INTUIT_CLIENT_SECRET"),
//	    RedirectURI:  "https://app.example.com/oauth/callback",
//	}))
package intuit
