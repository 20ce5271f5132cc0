package security

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the real client IP address from the request.
// Supports X-Forwarded-For and X-Real-IP headers when behind a proxy.
//
// SECURITY CONSIDERATIONS:
// - Only enable trustProxy when behind a trusted reverse proxy (nginx, haproxy, etc.)
// - X-Forwarded-For format: "client, proxy1, proxy2, ..."
// - trustedProxyCount specifies how many proxies to trust from the right
// - This prevents X-Forwarded-For spoofing in multi-proxy setups
func GetClientIP(r *http.Request, trustProxy bool, trustedProxyCount int) string {
	if trustProxy {
		if ip := clientIPFromXFF(r.Header.Get("X-Forwarded-For"), trustedProxyCount); ip != "" {
			return ip
		}
		if ip := validIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// clientIPFromXFF picks the client IP out of an X-Forwarded-For header.
//
// The rightmost entries are the proxies we control, so the client sits at
// len(ips) - trustedProxyCount - 1. Entries left of that position were
// supplied by the client and cannot be trusted. A trustedProxyCount of 0 is
// treated as 1, since trustProxy implies at least one proxy in front of us.
//
// Example with trustedProxyCount=2:
//
//	Client (1.2.3.4) -> UntrustedProxy -> TrustedProxy2 -> TrustedProxy1 (us)
//	X-Forwarded-For: "1.2.3.4, untrusted-ip, proxy2-ip"
//	We extract: ips[len(ips) - 2 - 1] = ips[0] = "1.2.3.4"
func clientIPFromXFF(xff string, trustedProxyCount int) string {
	if xff == "" {
		return ""
	}

	ips := strings.Split(xff, ",")

	proxyCount := trustedProxyCount
	if proxyCount == 0 {
		proxyCount = 1
	}

	clientIndex := len(ips) - proxyCount - 1
	if clientIndex < 0 {
		// Fewer entries than expected proxies; take the leftmost
		clientIndex = 0
	}

	return validIP(strings.TrimSpace(ips[clientIndex]))
}

// validIP returns s when it parses as an IP address, "" otherwise.
func validIP(s string) string {
	if s == "" || net.ParseIP(s) == nil {
		return ""
	}
	return s
}
