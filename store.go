package sessions

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cookie name suffixes of the base token triad. Every persisted session is
// {namespace}_access_token, {namespace}_access_token_expires_at and, when
// the provider issued one, {namespace}_refresh_token.
const (
	suffixAccessToken       = "access_token"
	suffixAccessTokenExpiry = "access_token_expires_at"
	suffixRefreshToken      = "refresh_token"
)

func baseCookieName(ns, suffix string) string {
	return ns + "_" + suffix
}

// fieldCookieName resolves a schema field's cookie name: the explicit
// override, or {namespace}_{key}.
func fieldCookieName(ns string, f Field) string {
	if f.CookieName != "" {
		return f.CookieName
	}
	return ns + "_" + f.Key
}

// keysFor lists every cookie name a session in this namespace occupies:
// the base triad plus one per declared schema field. Logout deletes exactly
// this set.
func keysFor(ns string, schema FieldSchema) []string {
	names := []string{
		baseCookieName(ns, suffixAccessToken),
		baseCookieName(ns, suffixAccessTokenExpiry),
		baseCookieName(ns, suffixRefreshToken),
	}
	for _, f := range schema.Fields {
		names = append(names, fieldCookieName(ns, f))
	}
	return names
}

// writeTokenSet persists a token set into the namespace's cookies and
// normalizes ts to its persisted form in place: the access token loses any
// transport prefix and ExpiresAt becomes absolute.
func (s *Sessions) writeTokenSet(rc RequestContext, ns string, ts *TokenSet, cfg *ProviderConfig) error {
	now := s.now()

	ts.AccessToken = stripBearerPrefix(ts.AccessToken)
	rc.SetCookie(buildCookie(baseCookieName(ns, suffixAccessToken), ts.AccessToken, s.cookies.AccessTokenMaxAge, s.cookies))

	ts.ExpiresAt = absoluteExpiry(ts, now)
	rc.SetCookie(buildCookie(baseCookieName(ns, suffixAccessTokenExpiry), strconv.FormatInt(ts.ExpiresAt, 10), s.cookies.AccessTokenMaxAge, s.cookies))

	if ts.RefreshToken != "" {
		encrypted := ts.RefreshToken
		if cfg.Encrypt != nil {
			var err error
			encrypted, err = cfg.Encrypt(ts.RefreshToken)
			if err != nil {
				return fmt.Errorf("encrypt refresh token for %s: %w", ns, err)
			}
		}
		rc.SetCookie(buildCookie(baseCookieName(ns, suffixRefreshToken), encrypted, refreshCookieMaxAge(ts, cfg, s.cookies), s.cookies))
	}

	for _, f := range cfg.Schema.Fields {
		value, ok := ts.Fields[f.Key]
		if !ok {
			// The provider did not send this field on this response;
			// leave whatever cookie may already exist untouched.
			continue
		}
		if f.Transform != nil {
			value = f.Transform(value, now)
		}
		rc.SetCookie(buildCookie(fieldCookieName(ns, f), formatFieldValue(value), s.cookies.AccessTokenMaxAge, s.cookies))
	}
	return nil
}

// absoluteExpiry computes the persisted expiry: now + expires_in when the
// provider sent one, an already-absolute value otherwise, and a default
// lifetime when the provider sent neither.
func absoluteExpiry(ts *TokenSet, now time.Time) int64 {
	if ts.ExpiresIn > 0 {
		return now.Unix() + ts.ExpiresIn
	}
	if ts.ExpiresAt > 0 {
		return ts.ExpiresAt
	}
	return now.Unix() + int64(DefaultAccessTokenLifetime/time.Second)
}

// refreshCookieMaxAge picks the refresh cookie lifetime: the schema's
// refresh-expiry field value (relative seconds, pre-transform), else the
// provider override, else the library default.
func refreshCookieMaxAge(ts *TokenSet, cfg *ProviderConfig, defaults CookieDefaults) time.Duration {
	if cfg.Schema.RefreshExpiryField != "" {
		if v, ok := ts.Fields[cfg.Schema.RefreshExpiryField]; ok {
			if secs, ok := toInt64(v); ok && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	if cfg.RefreshTokenMaxAge > 0 {
		return cfg.RefreshTokenMaxAge
	}
	return defaults.RefreshTokenMaxAge
}

// readSchemaFields loads the declared schema fields from cookies. It returns
// false when any declared field is missing; a session that lost one of its
// cookies cannot be trusted.
func readSchemaFields(rc RequestContext, ns string, schema FieldSchema) (map[string]any, bool) {
	if len(schema.Fields) == 0 {
		return nil, true
	}
	fields := make(map[string]any, len(schema.Fields))
	for _, f := range schema.Fields {
		raw, ok := rc.Cookie(fieldCookieName(ns, f))
		if !ok {
			return nil, false
		}
		fields[f.Key] = parseFieldValue(raw)
	}
	return fields, true
}

// clearTokenSet deletes exactly the namespace's cookie set.
func clearTokenSet(rc RequestContext, ns string, schema FieldSchema) {
	for _, name := range keysFor(ns, schema) {
		rc.DeleteCookie(name)
	}
}

// sweepProviderCookies deletes every cookie this library created for any
// namespace of the provider: the global namespace and all instance
// namespaces. Suffix matching keeps cookies the library did not create safe.
func (s *Sessions) sweepProviderCookies(rc RequestContext, provider string) {
	suffixes, exact := s.providerCookieSuffixes(provider)
	for _, name := range rc.CookieNames() {
		if exact[name] || matchesProviderCookie(name, provider, suffixes) {
			rc.DeleteCookie(name)
		}
	}
}

// providerCookieSuffixes collects the cookie suffixes in use by any
// registered configuration of the provider, plus the exact names of
// schema fields with explicit cookie name overrides.
func (s *Sessions) providerCookieSuffixes(provider string) (suffixes []string, exact map[string]bool) {
	suffixes = []string{suffixAccessToken, suffixAccessTokenExpiry, suffixRefreshToken}
	exact = make(map[string]bool)
	for _, ns := range s.providers.Keys() {
		key, err := ParseProviderKey(ns)
		if err != nil || key.Provider != provider {
			continue
		}
		cfg, err := s.providers.Get(key)
		if err != nil {
			continue
		}
		for _, f := range cfg.Schema.Fields {
			if f.CookieName != "" {
				exact[f.CookieName] = true
				continue
			}
			suffixes = append(suffixes, f.Key)
		}
	}
	return suffixes, exact
}

// matchesProviderCookie reports whether name is {provider}_{suffix} or
// {provider}:{instance}_{suffix} for one of the known suffixes.
func matchesProviderCookie(name, provider string, suffixes []string) bool {
	for _, suffix := range suffixes {
		tail := "_" + suffix
		if !strings.HasSuffix(name, tail) {
			continue
		}
		ns := name[:len(name)-len(tail)]
		if ns == provider || strings.HasPrefix(ns, provider+":") {
			return true
		}
	}
	return false
}

// stripBearerPrefix drops a leading "Bearer " from tokens some providers
// return in header form. Case-insensitive.
func stripBearerPrefix(token string) string {
	const prefix = "bearer "
	if len(token) >= len(prefix) && strings.EqualFold(token[:len(prefix)], prefix) {
		return token[len(prefix):]
	}
	return token
}

// parseFieldValue types a cookie value: integers and floats parse to
// numbers, everything else stays a string.
func parseFieldValue(raw string) any {
	if n, ok := parseInt64(raw); ok {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func parseInt64(raw string) (int64, bool) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// formatFieldValue renders a field value for cookie storage.
func formatFieldValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case int64:
		return strconv.FormatInt(value, 10)
	case int:
		return strconv.Itoa(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}
