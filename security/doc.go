// Package security provides security-related functionality for the session
// library, including refresh token encryption, rate limiting, client IP
// extraction, request ID propagation, and audit logging.
//
// # Rate Limiting
//
// The RateLimiter provides per-identifier rate limiting using a token bucket algorithm
// with automatic memory management through LRU (Least Recently Used) eviction.
// The session flows use it to throttle login and callback requests per client IP.
//
// ## Memory Management
//
// To prevent unbounded memory growth under distributed attacks, the rate limiter
// implements a configurable maximum entries limit. When this limit is reached,
// the least recently used entries are automatically evicted.
//
// Default configuration:
//   - MaxEntries: 10,000 unique identifiers
//   - CleanupInterval: 5 minutes
//   - IdleTimeout: 30 minutes
//
// ## Example Usage
//
//	// Create rate limiter with default settings (10,000 max entries)
//	limiter := security.NewRateLimiter(10, 20, logger)
//	defer limiter.Stop()
//
//	// Check if request is allowed
//	if !limiter.Allow(clientIP) {
//	    // Rate limit exceeded
//	    return http.StatusTooManyRequests
//	}
//
//	// Monitor memory usage
//	stats := limiter.GetStats()
//	if stats.MemoryPressure > 80.0 {
//	    logger.Warn("Rate limiter memory pressure high",
//	        "pressure", stats.MemoryPressure,
//	        "current_entries", stats.CurrentEntries,
//	        "max_entries", stats.MaxEntries)
//	}
//
// The LRU eviction strategy ensures that legitimate users (who make repeated requests)
// are less likely to be evicted, while one-time attack IPs are evicted first.
//
// # Refresh Token Encryption
//
// The Encryptor provides AES-256-GCM authenticated encryption for refresh
// tokens before they are written into browser cookies. DeriveKey derives
// independent per-provider keys from a single master key via HKDF-SHA256, so
// a leaked provider key never exposes the sessions of other providers.
//
// # Audit Logging
//
// The Auditor emits structured security events (login started, state
// mismatch, refresh failed, session cleared, ...) with hashed instance
// identifiers so audit trails stay useful without collecting raw tenant or
// user identifiers.
package security
