package security

import "net/http"

// SetSecurityHeaders sets security headers on flow and error responses.
// hsts should be true when the deployment serves HTTPS so browsers pin the
// scheme; leave it false for local development over plain HTTP.
func SetSecurityHeaders(w http.ResponseWriter, hsts bool) {
	// X-Frame-Options: Prevent clickjacking attacks
	w.Header().Set("X-Frame-Options", "DENY")

	// X-Content-Type-Options: Prevent MIME type sniffing
	w.Header().Set("X-Content-Type-Options", "nosniff")

	// Content-Security-Policy: Restrict resource loading
	// Very strict policy for OAuth endpoints (no inline scripts, no external resources)
	w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

	// Referrer-Policy: Don't leak state or code parameters through referrers
	w.Header().Set("Referrer-Policy", "no-referrer")

	if hsts {
		// HSTS: Force HTTPS for 1 year, including subdomains
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	// Cache-Control: Prevent caching of responses that set session cookies
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.Header().Set("Pragma", "no-cache")
}
