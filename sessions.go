package sessions

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/oauth-sessions/instrumentation"
	"github.com/giantswarm/oauth-sessions/security"
)

// Sessions drives cookie-backed OAuth sessions: login redirects, callback
// handling, validation with silent refresh, and logout. One instance serves
// any number of registered providers and is safe for concurrent use.
type Sessions struct {
	providers ProviderStore
	exchanger Exchanger
	refresher *refresher
	cookies   CookieDefaults
	stateTTL  time.Duration

	logger  *slog.Logger
	auditor *security.Auditor
	limiter *security.RateLimiter
	inst    *instrumentation.Instrumentation
	tracer  trace.Tracer

	trustProxy        bool
	trustedProxyCount int

	// now is the clock every expiry decision reads. Tests swap it out.
	now func() time.Time
}

// New creates a Sessions instance from cfg. A nil cfg gets library defaults:
// in-memory registry, no encryption, no rate limiting, slog default logger.
func New(cfg *Config) (*Sessions, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	providers := cfg.Providers
	if providers == nil {
		registry, err := NewRegistry(cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		providers = registry
		if len(cfg.EncryptionKey) == 0 {
			logger.Warn("Refresh token encryption is disabled; cookies will carry raw refresh tokens")
		}
	}

	exchanger := cfg.Exchanger
	if exchanger == nil {
		exchanger = newHTTPExchanger(cfg.HTTPClient)
	}

	stateTTL := cfg.StateTTL
	if stateTTL <= 0 {
		stateTTL = DefaultStateTTL
	}

	s := &Sessions{
		providers:         providers,
		exchanger:         exchanger,
		refresher:         &refresher{exchanger: exchanger},
		cookies:           cfg.Cookies.withDefaults(),
		stateTTL:          stateTTL,
		logger:            logger,
		inst:              cfg.Instrumentation,
		trustProxy:        cfg.RateLimit.TrustProxy,
		trustedProxyCount: cfg.RateLimit.TrustedProxyCount,
		now:               time.Now,
	}

	if cfg.EnableAuditLogging {
		s.auditor = security.NewAuditor(logger, true)
	}

	if cfg.RateLimit.Rate > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = cfg.RateLimit.Rate
		}
		s.limiter = security.NewRateLimiterWithConfig(cfg.RateLimit.Rate, burst, 10000, cfg.RateLimit.CleanupInterval, logger)
	}

	if s.inst != nil {
		s.tracer = s.inst.Tracer("sessions")
		if s.limiter != nil {
			if err := s.inst.RegisterLimiterSizeCallback(s.limiter.Size); err != nil {
				logger.Warn("Failed to register limiter size callback", "error", err)
			}
		}
	}

	return s, nil
}

// Register adds a provider configuration under a key string: "clio" for the
// global namespace, "clio:acme" for an instance. The reserved ":preserve"
// flag belongs to login keys, not registrations.
func (s *Sessions) Register(key string, cfg *ProviderConfig) error {
	pk, err := ParseProviderKey(key)
	if err != nil {
		return err
	}
	if pk.Preserve {
		return ErrServerError("Registration keys must not carry the preserve flag")
	}
	return s.providers.Register(pk, cfg)
}

// Close releases background resources (the rate limiter's cleanup loop).
// Safe to call more than once.
func (s *Sessions) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// GenerateEncryptionKey returns a fresh random AES-256 master key suitable
// for Config.EncryptionKey.
func GenerateEncryptionKey() ([]byte, error) {
	return security.GenerateKey()
}

// writeError renders err as the structured JSON error response. Errors
// outside the session taxonomy collapse to a generic server_error; their
// cause is logged with the request ID, never sent to the client.
func (s *Sessions) writeError(w http.ResponseWriter, r *http.Request, err error) {
	se := asSessionError(err)

	if se.Code == ErrorCodeServerError && se.Err != nil {
		s.logger.Error("Internal error",
			"error", se.Err,
			"request_id", security.GetRequestID(r.Context()))
	}

	s.secureHeaders(w)
	if se.Status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "60")
	}
	if encodeErr := se.WriteJSON(w); encodeErr != nil {
		s.logger.Warn("Failed to encode error response", "error", encodeErr)
	}
}

func (s *Sessions) secureHeaders(w http.ResponseWriter) {
	security.SetSecurityHeaders(w, !s.cookies.AllowInsecure)
}

func (s *Sessions) clientIP(r *http.Request) string {
	return security.GetClientIP(r, s.trustProxy, s.trustedProxyCount)
}

// startSpan opens a flow span when tracing is configured. The returned span
// may be nil; endSpan and the instrumentation helpers tolerate that.
func (s *Sessions) startSpan(ctx context.Context, name string, key ProviderKey) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, nil
	}
	ctx, span := s.tracer.Start(ctx, name)
	instrumentation.AddFlowAttributes(span, key.Provider, key.Instance)
	return ctx, span
}

func (s *Sessions) endSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		instrumentation.RecordError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	span.End()
}

// Metric recording helpers. All tolerate disabled instrumentation.

func (s *Sessions) recordLogin(ctx context.Context, provider string) {
	if s.inst != nil {
		s.inst.Metrics().RecordLoginStarted(ctx, provider)
	}
}

func (s *Sessions) recordCallback(ctx context.Context, provider string, success bool) {
	if s.inst != nil {
		s.inst.Metrics().RecordCallbackProcessed(ctx, provider, success)
	}
}

func (s *Sessions) recordExchange(ctx context.Context, provider string) {
	if s.inst != nil {
		s.inst.Metrics().RecordCodeExchange(ctx, provider)
	}
}

func (s *Sessions) recordValidation(ctx context.Context, provider, outcome string) {
	if s.inst != nil {
		s.inst.Metrics().RecordTokenValidation(ctx, provider, outcome)
	}
}

func (s *Sessions) recordRefresh(ctx context.Context, provider string, success bool) {
	if s.inst != nil {
		s.inst.Metrics().RecordTokenRefresh(ctx, provider, success)
	}
}

func (s *Sessions) recordRevoked(ctx context.Context, provider string) {
	if s.inst != nil {
		s.inst.Metrics().RecordTokenRevocation(ctx, provider)
	}
}

func (s *Sessions) recordCleared(ctx context.Context, provider string) {
	if s.inst != nil {
		s.inst.Metrics().RecordSessionCleared(ctx, provider)
	}
}

func (s *Sessions) recordCSRF(ctx context.Context, provider string) {
	if s.inst != nil {
		s.inst.Metrics().RecordCSRFMismatch(ctx, provider)
	}
}

func (s *Sessions) recordRateLimited(ctx context.Context) {
	if s.inst != nil {
		s.inst.Metrics().RecordRateLimitExceeded(ctx, "ip")
	}
}

func (s *Sessions) recordProviderCall(ctx context.Context, provider, operation string, status int, duration time.Duration, err error) {
	if s.inst != nil {
		s.inst.Metrics().RecordProviderAPICall(ctx, provider, operation, status, float64(duration.Milliseconds()), err)
	}
}
