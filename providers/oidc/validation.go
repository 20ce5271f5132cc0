package oidc

import (
	"fmt"
	"net"
	"net/url"

	"github.com/giantswarm/oauth-sessions/internal/netcheck"
)

// ValidateIssuerURL validates an OIDC issuer URL before any request is made
// to it. Issuer URLs come from configuration, and configuration can come
// from users; the check enforces HTTPS and blocks loopback, private and
// link-local targets so discovery cannot be turned into a request against
// internal services.
func ValidateIssuerURL(issuerURL string) error {
	u, err := url.Parse(issuerURL)
	if err != nil {
		return fmt.Errorf("invalid issuer URL: %w", err)
	}

	if u.Scheme != "https" {
		return fmt.Errorf("issuer URL must use HTTPS, got %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("issuer URL must have a hostname")
	}

	if netcheck.IsLoopbackHostname(host) {
		return fmt.Errorf("issuer URL must not point to loopback addresses")
	}
	if ip := net.ParseIP(host); ip != nil {
		if netcheck.IsPrivateOrInternal(ip) {
			return fmt.Errorf("issuer URL must not point to %s addresses", netcheck.ClassifyIP(ip))
		}
	}

	return nil
}
