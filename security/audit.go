package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Auditor handles security event logging with PII protection.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates a new security auditor
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// Event represents a security audit event. Instance keys often carry tenant
// or user identifiers, so they are hashed before logging.
type Event struct {
	Type      string
	Provider  string
	Instance  string
	IPAddress string
	RequestID string
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs a security event with hashed PII
func (a *Auditor) LogEvent(event Event) {
	if !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	a.logger.Info("security_audit",
		"event_type", event.Type,
		"provider", event.Provider,
		"instance_hash", hashForLogging(event.Instance),
		"ip_address", event.IPAddress,
		"request_id", event.RequestID,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)
}

// LogLoginStarted logs the start of a login flow
func (a *Auditor) LogLoginStarted(provider, instance, ipAddress, scope string) {
	a.LogEvent(Event{
		Type:      EventLoginStarted,
		Provider:  provider,
		Instance:  instance,
		IPAddress: ipAddress,
		Details: map[string]any{
			"scope": scope,
		},
	})
}

// LogCallbackCompleted logs a callback that established a session
func (a *Auditor) LogCallbackCompleted(provider, instance, ipAddress string) {
	a.LogEvent(Event{
		Type:      EventCallbackCompleted,
		Provider:  provider,
		Instance:  instance,
		IPAddress: ipAddress,
	})
}

// LogExchangeFailed logs a failed authorization code exchange
func (a *Auditor) LogExchangeFailed(provider, instance, ipAddress, reason string) {
	a.LogEvent(Event{
		Type:      EventCodeExchangeFailed,
		Provider:  provider,
		Instance:  instance,
		IPAddress: ipAddress,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogStateMismatch logs a callback rejected for a CSRF state mismatch
func (a *Auditor) LogStateMismatch(provider, ipAddress string) {
	a.LogEvent(Event{
		Type:      EventStateMismatch,
		Provider:  provider,
		IPAddress: ipAddress,
	})
}

// LogTokenRefreshed logs a silent session refresh
func (a *Auditor) LogTokenRefreshed(provider, instance, ipAddress string) {
	a.LogEvent(Event{
		Type:      EventTokenRefreshed,
		Provider:  provider,
		Instance:  instance,
		IPAddress: ipAddress,
	})
}

// LogRefreshFailed logs a refresh rejected by the provider
func (a *Auditor) LogRefreshFailed(provider, instance, ipAddress, reason string) {
	a.LogEvent(Event{
		Type:      EventRefreshFailed,
		Provider:  provider,
		Instance:  instance,
		IPAddress: ipAddress,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogSessionCleared logs cleared session cookies
func (a *Auditor) LogSessionCleared(provider, instance, ipAddress string) {
	a.LogEvent(Event{
		Type:      EventSessionCleared,
		Provider:  provider,
		Instance:  instance,
		IPAddress: ipAddress,
	})
}

// LogRevocationFailed logs a best-effort revocation that the provider rejected
func (a *Auditor) LogRevocationFailed(provider, instance, ipAddress, reason string) {
	a.LogEvent(Event{
		Type:      EventRevocationFailed,
		Provider:  provider,
		Instance:  instance,
		IPAddress: ipAddress,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogRateLimitExceeded logs a rate limit violation
func (a *Auditor) LogRateLimitExceeded(ipAddress, endpoint string) {
	a.LogEvent(Event{
		Type:      EventRateLimitExceeded,
		IPAddress: ipAddress,
		Details: map[string]any{
			"endpoint": endpoint,
		},
	})
}

// hashForLogging creates a SHA256 hash of sensitive data for logging
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
