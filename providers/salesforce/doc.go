// Package salesforce provides a ready-made provider configuration for
// Salesforce.
//
// Salesforce token responses carry no expires_in; the library falls back to
// its default access token lifetime and relies on refresh. The responses do
// carry instance_url, issued_at and id, which the schema persists untouched
// so API calls can be routed to the org's instance without a discovery
// round trip.
//
// Each org is its own instance: register production under one instance key
// and sandboxes (Domain "test.salesforce.com") under another.
//
// Example usage:
//
//	s.Register("salesforce:acme", salesforce.New(salesforce.Config{
//	    ClientID:     os.Getenv("SF_CONSUMER_KEY"),
//	    ClientSecret: os.Getenv("SF_CONSUMER_SECRET"),
//	    RedirectURI:  "https://app.example.com/oauth/callback",
//	}))
package salesforce
