package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Session error codes as constants
const (
	ErrorCodeNotRegistered     = "provider_not_registered"
	ErrorCodeMalformedState    = "malformed_state"
	ErrorCodeCSRFMismatch      = "csrf_mismatch"
	ErrorCodeMissingTokens     = "missing_or_invalid_tokens"
	ErrorCodeCorruptedSession  = "corrupted_session"
	ErrorCodeExchangeFailed    = "exchange_failed"
	ErrorCodeRefreshFailed     = "refresh_failed"
	ErrorCodeAccessDenied      = "access_denied"
	ErrorCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrorCodeServerError       = "server_error"
)

// SessionError is the structured error surfaced by flows and middleware.
type SessionError struct {
	Code        string // stable error code (e.g. "csrf_mismatch")
	Description string // human-readable description
	Status      int    // HTTP status code to respond with

	// ProviderStatus is the upstream HTTP status when the provider's token
	// endpoint rejected an exchange or refresh. Zero otherwise.
	ProviderStatus int

	// Err is the wrapped cause, when one exists.
	Err error
}

// Error implements the error interface
func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Unwrap exposes the cause for errors.Is/As.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new session error
func NewSessionError(code, description string, status int) *SessionError {
	return &SessionError{
		Code:        code,
		Description: description,
		Status:      status,
	}
}

// Common session errors as reusable constructors
var (
	// ErrNotRegistered indicates a provider key with no registered configuration.
	// This is a wiring bug in the host application, not a user failure.
	ErrNotRegistered = func(key string) *SessionError {
		return NewSessionError(ErrorCodeNotRegistered, fmt.Sprintf("Provider %q is not registered", key), http.StatusInternalServerError)
	}

	// ErrMalformedState indicates the state parameter could not be decoded
	ErrMalformedState = func(desc string) *SessionError {
		return NewSessionError(ErrorCodeMalformedState, desc, http.StatusBadRequest)
	}

	// ErrCSRFMismatch indicates the state's CSRF token did not match its cookie
	ErrCSRFMismatch = func() *SessionError {
		return NewSessionError(ErrorCodeCSRFMismatch, "State verification failed", http.StatusUnauthorized)
	}

	// ErrMissingOrInvalidTokens indicates no usable session exists for a provider
	ErrMissingOrInvalidTokens = func(key string) *SessionError {
		return NewSessionError(ErrorCodeMissingTokens, fmt.Sprintf("No valid session for provider %q", key), http.StatusUnauthorized)
	}

	// ErrCorruptedSession indicates a session was found but a declared schema
	// field cookie is missing. Treated exactly like missing tokens.
	ErrCorruptedSession = func(key string) *SessionError {
		return NewSessionError(ErrorCodeCorruptedSession, fmt.Sprintf("Session for provider %q is missing required fields", key), http.StatusUnauthorized)
	}

	// ErrExchangeFailed indicates the provider rejected the authorization code
	ErrExchangeFailed = func(desc string, providerStatus int) *SessionError {
		e := NewSessionError(ErrorCodeExchangeFailed, desc, http.StatusUnauthorized)
		e.ProviderStatus = providerStatus
		return e
	}

	// ErrRefreshFailed indicates the provider rejected the refresh token.
	// Description and ProviderStatus carry the provider's parsed error.
	ErrRefreshFailed = func(desc string, providerStatus int) *SessionError {
		e := NewSessionError(ErrorCodeRefreshFailed, desc, http.StatusUnauthorized)
		e.ProviderStatus = providerStatus
		return e
	}

	// ErrAccessDenied indicates the user or the provider denied the login
	ErrAccessDenied = func(desc string) *SessionError {
		return NewSessionError(ErrorCodeAccessDenied, desc, http.StatusForbidden)
	}

	// ErrRateLimitExceeded indicates too many flow requests from one client
	ErrRateLimitExceeded = func() *SessionError {
		return NewSessionError(ErrorCodeRateLimitExceeded, "Too many requests", http.StatusTooManyRequests)
	}

	// ErrServerError indicates an internal error occurred
	ErrServerError = func(desc string) *SessionError {
		return NewSessionError(ErrorCodeServerError, desc, http.StatusInternalServerError)
	}
)

// ErrorResponse is the JSON wire shape of a flow error.
type ErrorResponse struct {
	// Error is the error code
	Error string `json:"error"`

	// ErrorDescription provides additional information
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes the error as the standard JSON response shape. Failure
// hooks use it to render the structured error after setting their own
// headers.
func (e *SessionError) WriteJSON(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	return json.NewEncoder(w).Encode(ErrorResponse{
		Error:            e.Code,
		ErrorDescription: e.Description,
	})
}

// asSessionError normalizes any error to a SessionError. Unknown errors map
// to a generic server_error so internal details never reach the client; the
// cause stays wrapped for logging.
func asSessionError(err error) *SessionError {
	var se *SessionError
	if errors.As(err, &se) {
		return se
	}
	wrapped := NewSessionError(ErrorCodeServerError, "An unexpected error occurred", http.StatusInternalServerError)
	wrapped.Err = err
	return wrapped
}

// ErrorCode returns the session error code for err, or ErrorCodeServerError
// for errors outside the taxonomy.
func ErrorCode(err error) string {
	return asSessionError(err).Code
}
