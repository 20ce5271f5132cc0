// Package util provides small shared helpers used across the oauth-sessions
// library.
//
// Key utilities:
//   - SafeTruncate: truncates strings for logging sensitive data such as tokens
//   - NormalizeURL: normalizes URLs for issuer and endpoint comparison
package util
