package security

// Event type constants for security audit logging.
// These constants ensure consistency across the codebase and prevent typos
// when logging security-relevant events.
const (
	// Login flow events

	// EventLoginStarted is logged when a login flow redirect is issued
	EventLoginStarted = "login_started"

	// EventCallbackCompleted is logged when a provider callback establishes a session
	EventCallbackCompleted = "callback_completed"

	// EventAccessDenied is logged when the provider reports the user denied consent
	EventAccessDenied = "access_denied"

	// EventCodeExchangeFailed is logged when the authorization code exchange fails
	EventCodeExchangeFailed = "code_exchange_failed"

	// State validation events

	// EventMalformedState is logged when a callback state parameter cannot be decoded
	EventMalformedState = "malformed_state"

	// EventStateMismatch is logged when the state CSRF value does not match the cookie (possible forgery)
	EventStateMismatch = "state_mismatch"

	// Session lifecycle events

	// EventTokenRefreshed is logged when an expired session is silently refreshed
	EventTokenRefreshed = "token_refreshed"

	// EventRefreshFailed is logged when the provider rejects a refresh token
	EventRefreshFailed = "refresh_failed"

	// EventSessionCorrupted is logged when session cookies are present but incomplete
	EventSessionCorrupted = "session_corrupted"

	// EventSessionCleared is logged when session cookies are cleared at logout
	EventSessionCleared = "session_cleared"

	// EventRevocationFailed is logged when best-effort token revocation at logout fails
	EventRevocationFailed = "revocation_failed"

	// Abuse events

	// EventRateLimitExceeded is logged when a rate limit is exceeded
	EventRateLimitExceeded = "rate_limit_exceeded"
)
