// Package instrumentation provides OpenTelemetry (OTEL) instrumentation for the oauth-sessions library.
//
// This package enables observability across all library layers through:
// - Metrics: Counters, histograms, and gauges for monitoring OAuth operations
// - Traces: Distributed tracing for login, callback, and refresh flows
//
// # Quick Start
//
//	import "github.com/giantswarm/oauth-sessions/instrumentation"
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "my-web-app",
//		ServiceVersion: "1.0.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
//	sessions.New(&sessions.Config{
//		Instrumentation: inst,
//		// ...
//	})
//
// # Available Metrics
//
// OAuth Flows:
//   - oauth.login.started{provider} - Login flows started
//   - oauth.callback.processed{provider, success} - Provider callbacks processed
//   - oauth.code.exchanged{provider} - Authorization codes exchanged
//   - oauth.token.refreshed{provider, success} - Silent token refreshes
//   - oauth.token.revoked{provider} - Tokens revoked at logout
//
// Sessions:
//   - oauth.token.validated{provider, outcome} - Validations by outcome (valid, expired, absent)
//   - oauth.session.cleared{provider} - Sessions cleared
//
// Security:
//   - oauth.state.csrf_mismatch{provider} - Callback state CSRF mismatches
//   - oauth.rate_limit.exceeded{limiter_type} - Rate limit violations
//   - oauth.rate_limit.active_limiters - Per-client limiters currently tracked
//   - oauth.audit.events.total{event_type} - Audit events emitted
//   - oauth.encryption.operations.total{operation} - Refresh token encrypt/decrypt operations
//
// Provider:
//   - provider.api.calls.total{provider, operation, status} - Provider API calls
//   - provider.api.duration{provider, operation} - API call duration in milliseconds
//   - provider.api.errors.total{provider, operation, error_type} - Provider API errors
//
// # Distributed Tracing
//
// Spans are created for the major operations: login, callback handling, code
// exchange, session validation, silent refresh, and revocation. Provider API
// calls appear as child spans of the flow that triggered them.
//
// # Metric Cardinality
//
// Provider and instance labels are bounded by the number of registered
// providers, so cardinality stays low. If you register thousands of provider
// instances, pre-aggregate by provider in your monitoring system.
//
// # Performance
//
// When instrumentation is not configured or disabled:
//   - Zero overhead (uses no-op providers)
//   - No allocations or latency impact
//
// # Thread Safety
//
// All instrumentation operations are thread-safe and can be called concurrently from multiple goroutines.
//
// # Security Considerations
//
// IMPORTANT: This package is designed to collect observability data, not sensitive credentials.
//
// When instrumenting OAuth flows, you MUST:
//   - NEVER log actual token values (access tokens, refresh tokens, authorization codes)
//   - NEVER log client secrets
//   - ONLY log metadata (token types, expiry times, validation results)
//
// Data collected in traces and metrics may be:
//   - Persisted for extended periods in observability backends
//   - Accessible to operations teams and potentially wider audiences
//   - Subject to compliance requirements (GDPR, PCI-DSS, SOC 2, etc.)
//
// Privacy considerations:
//   - Client IP addresses may be considered PII in some jurisdictions
//   - Configure appropriate retention policies and access controls
package instrumentation
