// Package sessions drives the OAuth 2.0 Authorization Code flow from the
// client side and keeps the resulting tokens in namespaced browser cookies.
//
// A Sessions value owns a registry of provider configurations (optionally
// several logical instances per provider, one per tenant OAuth application),
// encodes CSRF-bound state for login redirects, exchanges callback codes for
// tokens, persists them with the refresh token encrypted at rest, and guards
// protected routes: expired access tokens are refreshed silently, with
// provider-specific token fields preserved across the refresh.
//
// The library is framework-agnostic. All HTTP surfaces are plain net/http
// handlers and middleware; the cookie and query primitives are abstracted
// behind the RequestContext interface for hosts with their own request types.
package sessions
