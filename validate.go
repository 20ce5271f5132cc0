package sessions

import (
	"github.com/giantswarm/oauth-sessions/internal/util"
)

// validateTokens classifies the namespace's persisted session.
//
// Precedence: nothing at all is absent; a lone refresh token is expired (the
// session is recoverable); an access token whose expiry cannot be read is
// absent (fail safe); otherwise the expiry decides, with now == expiry
// counting as expired. A provider schema can additionally force expiry when
// the refresh window itself has elapsed.
func (s *Sessions) validateTokens(rc RequestContext, ns string, cfg *ProviderConfig) *ValidationResult {
	access, hasAccess := rc.Cookie(baseCookieName(ns, suffixAccessToken))
	refresh, hasRefresh := s.readRefreshToken(rc, ns, cfg)

	if !hasAccess && !hasRefresh {
		return &ValidationResult{Status: StatusAbsent}
	}

	now := s.now().Unix()
	base := &TokenSet{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}

	var status TokenStatus
	if !hasAccess {
		status = StatusExpired
	} else {
		raw, ok := rc.Cookie(baseCookieName(ns, suffixAccessTokenExpiry))
		if !ok {
			// An access token that cannot be expiry-checked is unusable.
			return &ValidationResult{Status: StatusAbsent}
		}
		expiresAt, ok := parseInt64(raw)
		if !ok {
			s.logger.Warn("Failed to parse access token expiry cookie",
				"namespace", ns,
				"value", util.SafeTruncate(raw, 32))
			return &ValidationResult{Status: StatusAbsent}
		}
		base.ExpiresAt = expiresAt
		status = StatusValid
		if now >= expiresAt {
			status = StatusExpired
		}
	}

	if cfg.Schema.EnforceRefreshExpiry && s.refreshExpiryElapsed(rc, ns, cfg.Schema, now) {
		// The refresh window is gone or unknowable. Hand back base fields
		// only; the forced refresh re-establishes provider metadata.
		return &ValidationResult{Status: StatusExpired, TokenSet: base}
	}

	fields, ok := readSchemaFields(rc, ns, cfg.Schema)
	if !ok {
		s.logger.Debug("Session is missing a declared schema field", "namespace", ns)
		return &ValidationResult{Status: StatusAbsent, Corrupted: true}
	}
	base.Fields = fields

	return &ValidationResult{Status: status, TokenSet: base}
}

// readRefreshToken loads and decrypts the namespace's refresh token cookie.
// Decryption failures count as no refresh token: a cookie we cannot decrypt
// (key rotation, tampering) must not take the whole request down.
func (s *Sessions) readRefreshToken(rc RequestContext, ns string, cfg *ProviderConfig) (string, bool) {
	encrypted, ok := rc.Cookie(baseCookieName(ns, suffixRefreshToken))
	if !ok || encrypted == "" {
		return "", false
	}
	if cfg.Decrypt == nil {
		return encrypted, true
	}
	token, err := cfg.Decrypt(encrypted)
	if err != nil {
		s.logger.Warn("Failed to decrypt refresh token cookie", "namespace", ns, "error", err)
		return "", false
	}
	if token == "" {
		return "", false
	}
	return token, true
}

// refreshExpiryElapsed reports whether the schema's refresh-expiry cookie is
// missing, unparseable or in the past.
func (s *Sessions) refreshExpiryElapsed(rc RequestContext, ns string, schema FieldSchema, now int64) bool {
	f, ok := schema.FieldByKey(schema.RefreshExpiryField)
	if !ok {
		return false
	}
	raw, ok := rc.Cookie(fieldCookieName(ns, f))
	if !ok {
		return true
	}
	expiresAt, ok := parseInt64(raw)
	if !ok {
		return true
	}
	return now >= expiresAt
}
