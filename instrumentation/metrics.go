package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments for the session library
type Metrics struct {
	// OAuth Flow Metrics
	LoginStarted      metric.Int64Counter
	CallbackProcessed metric.Int64Counter
	CodeExchanged     metric.Int64Counter
	TokenRefreshed    metric.Int64Counter
	TokenRevoked      metric.Int64Counter

	// Session Metrics
	TokenValidated metric.Int64Counter
	SessionCleared metric.Int64Counter

	// Security Metrics
	CSRFMismatched          metric.Int64Counter
	RateLimitExceeded       metric.Int64Counter
	RateLimitActiveLimiters metric.Int64ObservableGauge

	// Provider Metrics
	ProviderAPICallsTotal metric.Int64Counter
	ProviderAPIDuration   metric.Float64Histogram
	ProviderAPIErrors     metric.Int64Counter

	// Audit Metrics
	AuditEventsTotal metric.Int64Counter

	// Encryption Metrics
	EncryptionOperationsTotal metric.Int64Counter
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}

	flowMeter := inst.Meter("flows")
	sessionMeter := inst.Meter("sessions")
	securityMeter := inst.Meter("security")
	providerMeter := inst.Meter("provider")

	// OAuth Flow Metrics
	var err error
	m.LoginStarted, err = flowMeter.Int64Counter(
		"oauth.login.started",
		metric.WithDescription("Number of login flows started"),
		metric.WithUnit("{flow}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create login.started counter: %w", err)
	}

	m.CallbackProcessed, err = flowMeter.Int64Counter(
		"oauth.callback.processed",
		metric.WithDescription("Number of provider callbacks processed"),
		metric.WithUnit("{callback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create callback.processed counter: %w", err)
	}

	m.CodeExchanged, err = flowMeter.Int64Counter(
		"oauth.code.exchanged",
		metric.WithDescription("Number of authorization codes exchanged for tokens"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create code.exchanged counter: %w", err)
	}

	m.TokenRefreshed, err = flowMeter.Int64Counter(
		"oauth.token.refreshed",
		metric.WithDescription("Number of silent token refreshes"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.refreshed counter: %w", err)
	}

	m.TokenRevoked, err = flowMeter.Int64Counter(
		"oauth.token.revoked",
		metric.WithDescription("Number of tokens revoked at logout"),
		metric.WithUnit("{revocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.revoked counter: %w", err)
	}

	// Session Metrics
	m.TokenValidated, err = sessionMeter.Int64Counter(
		"oauth.token.validated",
		metric.WithDescription("Number of session validations by outcome"),
		metric.WithUnit("{validation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.validated counter: %w", err)
	}

	m.SessionCleared, err = sessionMeter.Int64Counter(
		"oauth.session.cleared",
		metric.WithDescription("Number of sessions cleared"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session.cleared counter: %w", err)
	}

	// Security Metrics
	m.CSRFMismatched, err = securityMeter.Int64Counter(
		"oauth.state.csrf_mismatch",
		metric.WithDescription("Number of callback state CSRF mismatches"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create state.csrf_mismatch counter: %w", err)
	}

	m.RateLimitExceeded, err = securityMeter.Int64Counter(
		"oauth.rate_limit.exceeded",
		metric.WithDescription("Number of rate limit violations"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.exceeded counter: %w", err)
	}

	m.RateLimitActiveLimiters, err = securityMeter.Int64ObservableGauge(
		"oauth.rate_limit.active_limiters",
		metric.WithDescription("Number of per-client rate limiters currently tracked"),
		metric.WithUnit("{limiter}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.active_limiters gauge: %w", err)
	}

	// Provider Metrics
	m.ProviderAPICallsTotal, err = providerMeter.Int64Counter(
		"provider.api.calls.total",
		metric.WithDescription("Total number of provider API calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.calls.total counter: %w", err)
	}

	m.ProviderAPIDuration, err = providerMeter.Float64Histogram(
		"provider.api.duration",
		metric.WithDescription("Provider API call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.duration histogram: %w", err)
	}

	m.ProviderAPIErrors, err = providerMeter.Int64Counter(
		"provider.api.errors.total",
		metric.WithDescription("Total number of provider API errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider.api.errors.total counter: %w", err)
	}

	// Audit Metrics
	m.AuditEventsTotal, err = securityMeter.Int64Counter(
		"oauth.audit.events.total",
		metric.WithDescription("Total number of audit events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit.events.total counter: %w", err)
	}

	// Encryption Metrics
	m.EncryptionOperationsTotal, err = securityMeter.Int64Counter(
		"oauth.encryption.operations.total",
		metric.WithDescription("Total number of refresh token encryption/decryption operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption.operations.total counter: %w", err)
	}

	return m, nil
}

// Helper methods for common metric recording patterns

// RecordLoginStarted records a login flow start
func (m *Metrics) RecordLoginStarted(ctx context.Context, provider string) {
	m.LoginStarted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordCallbackProcessed records a provider callback processing
func (m *Metrics) RecordCallbackProcessed(ctx context.Context, provider string, success bool) {
	m.CallbackProcessed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.Bool("success", success),
	))
}

// RecordCodeExchange records an authorization code exchange
func (m *Metrics) RecordCodeExchange(ctx context.Context, provider string) {
	m.CodeExchanged.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordTokenValidation records a session validation outcome (valid, expired, absent)
func (m *Metrics) RecordTokenValidation(ctx context.Context, provider, outcome string) {
	m.TokenValidated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}

// RecordTokenRefresh records a silent token refresh attempt
func (m *Metrics) RecordTokenRefresh(ctx context.Context, provider string, success bool) {
	m.TokenRefreshed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.Bool("success", success),
	))
}

// RecordTokenRevocation records a token revocation
func (m *Metrics) RecordTokenRevocation(ctx context.Context, provider string) {
	m.TokenRevoked.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordSessionCleared records a cleared session
func (m *Metrics) RecordSessionCleared(ctx context.Context, provider string) {
	m.SessionCleared.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordCSRFMismatch records a callback rejected for a state CSRF mismatch
func (m *Metrics) RecordCSRFMismatch(ctx context.Context, provider string) {
	m.CSRFMismatched.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordRateLimitExceeded records a rate limit violation
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context, limiterType string) {
	m.RateLimitExceeded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("limiter_type", limiterType),
	))
}

// RecordProviderAPICall records a provider API call
func (m *Metrics) RecordProviderAPICall(ctx context.Context, provider, operation string, statusCode int, durationMs float64, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.Int("status", statusCode),
	}

	m.ProviderAPICallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.ProviderAPIDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	))

	if err != nil {
		errorType := "unknown"
		if statusCode >= 400 && statusCode < 500 {
			errorType = "client_error"
		} else if statusCode >= 500 {
			errorType = "server_error"
		}

		m.ProviderAPIErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("operation", operation),
			attribute.String("error_type", errorType),
		))
	}
}

// RecordAuditEvent records an audit event
func (m *Metrics) RecordAuditEvent(ctx context.Context, eventType string) {
	m.AuditEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

// RecordEncryptionOperation records a refresh token encryption/decryption operation
func (m *Metrics) RecordEncryptionOperation(ctx context.Context, operation string) {
	m.EncryptionOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
