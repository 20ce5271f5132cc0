package util

import "strings"

// SafeTruncate truncates a string to maxLen bytes without panicking. It is
// used when logging token prefixes, where only the first few characters may
// appear. A negative maxLen returns an empty string.
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// NormalizeURL normalizes a URL for comparison by removing trailing slashes.
// Issuer URLs and discovery endpoints appear in configuration both with and
// without a trailing slash; the two forms must compare equal.
func NormalizeURL(url string) string {
	return strings.TrimRight(url, "/")
}
