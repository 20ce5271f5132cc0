// Package netcheck classifies IP addresses and hostnames for outbound
// request guards. Issuer discovery fetches metadata from operator-supplied
// URLs; callers classify the target host first to keep those requests away
// from loopback, link-local and private ranges unless the deployment
// explicitly allows them.
package netcheck

import "net"

// IPClassification is the security classification of an IP address.
type IPClassification int

const (
	// IPClassificationPublic indicates a publicly routable IP address.
	IPClassificationPublic IPClassification = iota
	// IPClassificationLoopback indicates a loopback address (127.0.0.0/8, ::1).
	IPClassificationLoopback
	// IPClassificationPrivate indicates a private/internal address (RFC 1918, ULA).
	IPClassificationPrivate
	// IPClassificationLinkLocal indicates a link-local address (169.254.x.x, fe80::/10).
	IPClassificationLinkLocal
	// IPClassificationUnspecified indicates an unspecified address (0.0.0.0, ::).
	IPClassificationUnspecified
)

// String returns a human-readable name for the IP classification.
func (c IPClassification) String() string {
	switch c {
	case IPClassificationPublic:
		return "public"
	case IPClassificationLoopback:
		return "loopback"
	case IPClassificationPrivate:
		return "private"
	case IPClassificationLinkLocal:
		return "link_local"
	case IPClassificationUnspecified:
		return "unspecified"
	default:
		return "unknown"
	}
}

// ClassifyIP returns the security classification of an IP address.
//
// Classifications:
//   - Unspecified: 0.0.0.0, :: (always blocked, undefined behavior)
//   - Loopback: 127.0.0.0/8, ::1 (safe for local development issuers)
//   - LinkLocal: 169.254.0.0/16, fe80::/10 (cloud metadata SSRF risk)
//   - Private: RFC 1918 (10/8, 172.16/12, 192.168/16), fc00::/7
//   - Public: all other addresses
func ClassifyIP(ip net.IP) IPClassification {
	if ip == nil {
		return IPClassificationUnspecified
	}
	if ip.IsUnspecified() {
		return IPClassificationUnspecified
	}
	if ip.IsLoopback() {
		return IPClassificationLoopback
	}
	// Link-local before private: 169.254.169.254 is the cloud metadata
	// endpoint and must never be reachable through a discovery URL.
	if IsLinkLocal(ip) {
		return IPClassificationLinkLocal
	}
	// Covers RFC 1918 (IPv4) and fc00::/7 (IPv6 ULA).
	if ip.IsPrivate() {
		return IPClassificationPrivate
	}
	return IPClassificationPublic
}

// IsLinkLocal reports whether an IP address is link-local, unicast or
// multicast. This includes 169.254.0.0/16, fe80::/10 and ff02::/16.
func IsLinkLocal(ip net.IP) bool {
	return ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

// IsPrivateOrInternal reports whether an IP is anything other than public:
// private, loopback, link-local or unspecified.
func IsPrivateOrInternal(ip net.IP) bool {
	return ClassifyIP(ip) != IPClassificationPublic
}

// IsLoopbackHostname reports whether a hostname represents a loopback
// address: "localhost", the 127.0.0.0/8 range or IPv6 ::1. Expects the
// hostname without a port, as returned by url.URL.Hostname.
//
// 0.0.0.0 is not loopback; it classifies as unspecified.
func IsLoopbackHostname(hostname string) bool {
	if hostname == "localhost" {
		return true
	}

	// Strip brackets from IPv6 literals like [::1].
	cleanHostname := hostname
	if len(hostname) > 2 && hostname[0] == '[' && hostname[len(hostname)-1] == ']' {
		cleanHostname = hostname[1 : len(hostname)-1]
	}

	if ip := net.ParseIP(cleanHostname); ip != nil {
		return ip.IsLoopback()
	}

	return false
}
