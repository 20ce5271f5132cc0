package sessions

import (
	"time"
)

// TokenSet is the working representation of one provider session.
//
// Fresh off the wire a set carries ExpiresIn (the provider's relative
// lifetime); once persisted, and on every read back from cookies, ExpiresAt
// holds the absolute expiry in UNIX seconds and is the authoritative value.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	TokenType    string

	// ExpiresIn is the access token lifetime in seconds as reported by the
	// provider. Only populated on token sets fresh from an exchange.
	ExpiresIn int64

	// ExpiresAt is the absolute access token expiry in UNIX seconds.
	ExpiresAt int64

	// Fields carries provider-specific token response extras
	// (ext_expires_in, x_refresh_token_expires_in, instance_url, ...).
	// Values are string, int64 or float64.
	Fields map[string]any
}

// Clone returns a deep copy. Token sets cross hook and middleware boundaries;
// shared mutation is never safe.
func (t *TokenSet) Clone() *TokenSet {
	if t == nil {
		return nil
	}
	out := *t
	if t.Fields != nil {
		out.Fields = make(map[string]any, len(t.Fields))
		for k, v := range t.Fields {
			out.Fields[k] = v
		}
	}
	return &out
}

func (t *TokenSet) setField(key string, value any) {
	if t.Fields == nil {
		t.Fields = make(map[string]any)
	}
	t.Fields[key] = value
}

// Field returns a provider-specific field value.
func (t *TokenSet) Field(key string) (any, bool) {
	v, ok := t.Fields[key]
	return v, ok
}

// TokenStatus classifies a validation outcome.
type TokenStatus int

const (
	// StatusAbsent means no usable session material exists. Corrupted
	// sessions (a declared schema field missing) also report absent.
	StatusAbsent TokenStatus = iota

	// StatusExpired means the session exists but the access token needs a
	// refresh before use.
	StatusExpired

	// StatusValid means the access token can be used as-is.
	StatusValid
)

func (s TokenStatus) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusExpired:
		return "expired"
	case StatusValid:
		return "valid"
	default:
		return "unknown"
	}
}

// ValidationResult is the outcome of validating one namespace's cookies.
type ValidationResult struct {
	Status TokenStatus

	// TokenSet is populated for StatusValid and StatusExpired. For expired
	// sessions missing their access cookie the AccessToken field is empty.
	TokenSet *TokenSet

	// Corrupted marks an absent result caused by a missing schema field
	// rather than by missing tokens.
	Corrupted bool
}

// AuthState is a decoded OAuth state parameter.
type AuthState struct {
	// CSRF is the one-time token bound to the login's CSRF cookie.
	CSRF string

	// Key identifies the provider (and instance) the login targeted,
	// including its preserve flag.
	Key ProviderKey

	// Fields are the caller-supplied values round-tripped through the
	// provider untouched.
	Fields map[string]any
}

// FieldTransform rewrites a schema field value before it is persisted.
// Transforms must be pure functions of the value and the current time.
type FieldTransform func(value any, now time.Time) any

// AbsoluteFromSeconds converts a relative lifetime in seconds into an
// absolute UNIX-seconds timestamp. Non-numeric values pass through.
func AbsoluteFromSeconds(value any, now time.Time) any {
	secs, ok := toInt64(value)
	if !ok {
		return value
	}
	return now.Unix() + secs
}

// Field declares one provider-specific token response field to persist
// alongside the base token cookies.
type Field struct {
	// Key is the field's name in the provider's token response.
	Key string

	// CookieName overrides the default {namespace}_{key} cookie name.
	CookieName string

	// Transform, when set, rewrites the value before it is written.
	Transform FieldTransform
}

// FieldSchema declares which provider-specific token response fields are
// persisted, and how they participate in validation.
type FieldSchema struct {
	Fields []Field

	// RefreshExpiryField names the declared field whose raw response value
	// is the refresh token lifetime in seconds. When set it sizes the
	// refresh token cookie's max-age.
	RefreshExpiryField string

	// EnforceRefreshExpiry makes validation treat a missing, unparseable or
	// elapsed refresh-expiry cookie as an expired session, forcing a refresh
	// even while the access token still looks fresh.
	EnforceRefreshExpiry bool
}

// FieldByKey returns the declared field with the given response key.
func (s FieldSchema) FieldByKey(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// toInt64 coerces the numeric types a token field can carry.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	case string:
		return parseInt64(n)
	default:
		return 0, false
	}
}
