package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span attribute keys
//
// SECURITY WARNING: Never log actual sensitive values (access tokens, refresh tokens,
// authorization codes, client secrets, etc.) in traces or metrics. Only log metadata
// such as token types, expiry times, and validation results.
//
// These constants define attribute key names for observability, not for logging
// sensitive credential values. Logging actual credentials would create critical
// security vulnerabilities as traces are often:
//   - Persisted for extended periods
//   - Accessible to wider audiences than production systems
//   - Replicated across monitoring infrastructure
//   - Subject to compliance requirements (GDPR, PCI-DSS, etc.)
const (
	// OAuth flow attributes - SAFE to use for metadata only
	AttrProvider          = "oauth.provider"           // Provider name (non-secret)
	AttrInstance          = "oauth.instance"           // Provider instance key (non-secret)
	AttrNamespace         = "oauth.namespace"          // Cookie namespace (non-secret)
	AttrScope             = "oauth.scope"              // Requested scopes
	AttrTokenType         = "oauth.token_type"         //nolint:gosec // Token type (Bearer, etc.) - NOT the actual token
	AttrExpiresIn         = "oauth.expires_in"         // Token expiry duration
	AttrValidationOutcome = "oauth.validation.outcome" // Validation result (valid, expired, absent)
	AttrPreserveSiblings  = "oauth.preserve_siblings"  // Whether sibling instance sessions were preserved
	AttrError             = "oauth.error"              // Error code
	AttrErrorDescription  = "oauth.error_description"  // Error description

	// RESERVED - DO NOT USE: These are reserved for potential future metadata use only.
	// NEVER set these attributes to actual credential values.
	// Instead, use boolean flags like "token_present" or "refresh_present".
	AttrAuthorizationCode = "oauth.authorization_code" // RESERVED - use "code_present" instead
	AttrAccessToken       = "oauth.access_token"       //nolint:gosec // RESERVED - use "token_type" or "token_present" instead
	AttrRefreshToken      = "oauth.refresh_token"      //nolint:gosec // RESERVED - use "refresh_present" instead

	// Provider attributes
	AttrProviderName      = "provider.name"
	AttrProviderOperation = "provider.operation"
	AttrProviderStatus    = "provider.status"
	AttrProviderErrorType = "provider.error_type"

	// Security attributes
	AttrRateLimiterType     = "security.rate_limiter.type"
	AttrClientIP            = "security.client_ip"
	AttrAuditEventType      = "security.audit.event_type"
	AttrEncryptionOperation = "security.encryption.operation"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe)
// This is a convenience wrapper that safely handles nil spans
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
// This is a convenience wrapper that safely handles nil spans
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddFlowAttributes adds common OAuth flow attributes to a span (nil-safe)
func AddFlowAttributes(span trace.Span, provider, instance string) {
	if provider != "" {
		SetSpanAttributes(span, attribute.String(AttrProvider, provider))
	}
	if instance != "" {
		SetSpanAttributes(span, attribute.String(AttrInstance, instance))
	}
}

// AddProviderAttributes adds provider attributes to a span (nil-safe)
func AddProviderAttributes(span trace.Span, providerName, operation string) {
	SetSpanAttributes(span,
		attribute.String(AttrProviderName, providerName),
		attribute.String(AttrProviderOperation, operation),
	)
}

// AddSecurityAttributes adds security-related attributes to a span (nil-safe)
//
// PRIVACY NOTE: Client IP addresses may be considered Personally Identifiable Information (PII).
// Before calling this function, check if IP logging is enabled using instrumentation.ShouldLogClientIPs().
// Example:
//
//	if inst.ShouldLogClientIPs() {
//	    AddSecurityAttributes(span, clientIP)
//	}
func AddSecurityAttributes(span trace.Span, clientIP string) {
	if clientIP != "" {
		SetSpanAttributes(span, attribute.String(AttrClientIP, clientIP))
	}
}
