package security

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// requestIDContextKey is the context key for storing request IDs
type requestIDContextKey struct{}

// RequestIDHeader is the HTTP header for request IDs
const RequestIDHeader = "X-Request-ID"

// requestIDPattern validates request IDs to prevent header injection attacks.
// Allows: alphanumeric, hyphens, underscores (1-128 chars). This accepts
// common request ID formats from upstream proxies (AWS, GCP, Cloudflare, etc.).
var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// GenerateRequestID generates a random request ID.
// Request IDs are used for audit trails, security correlation, and debugging.
func GenerateRequestID() string {
	return uuid.NewString()
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDContextKey{}).(string); ok {
		return requestID
	}
	return ""
}

// isValidRequestID validates a request ID to prevent header injection attacks.
// Returns true if the request ID contains only safe characters and is within
// length limits. This blocks CRLF injection into response headers and
// excessively long IDs.
func isValidRequestID(requestID string) bool {
	return requestIDPattern.MatchString(requestID)
}

// RequestIDMiddleware is HTTP middleware that generates and propagates request IDs.
//
// Valid request IDs from upstream proxies are preserved for audit trail
// continuity; missing or invalid IDs are replaced with a generated one. The ID
// is echoed in the response headers for end-to-end correlation.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)

		if requestID == "" || !isValidRequestID(requestID) {
			requestID = GenerateRequestID()
		}

		// Add to response headers for correlation
		w.Header().Set(RequestIDHeader, requestID)

		// Add to context for use by handlers
		ctx := WithRequestID(r.Context(), requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
