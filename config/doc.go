// Package config loads oauth-sessions configuration from YAML manifests
// and the process environment.
//
// A manifest declares cookie policy, rate limits and the provider
// instances to register:
//
//	encryption_key: ${OAUTH_SESSIONS_ENCRYPTION_KEY}
//	audit_logging: true
//	cookies:
//	  domain: .example.com
//	  same_site: lax
//	providers:
//	  - key: clio:smithlaw
//	    client_id: ${CLIO_CLIENT_ID}
//	    client_secret: ${CLIO_CLIENT_SECRET}
//	    redirect_uri: https://app.example.com/oauth/callback/clio
//	    authorize_endpoint: https://app.clio.com/oauth/authorize
//	    token_endpoint: https://app.clio.com/oauth/token
//	  - key: keycloak:acme
//	    issuer: https://id.example.com/realms/acme
//	    client_id: ${KEYCLOAK_CLIENT_ID}
//	    client_secret: ${KEYCLOAK_CLIENT_SECRET}
//	    redirect_uri: https://app.example.com/oauth/callback/keycloak
//
// ${VAR} references anywhere in the file are expanded from the
// environment before parsing, so secrets stay out of the manifest.
// Entries with an issuer are completed through OIDC discovery; everything
// else is taken verbatim.
//
// Build is the one-call path from a manifest to a ready Sessions:
//
//	s, err := config.Build(ctx, "oauth-sessions.yaml", logger)
package config
