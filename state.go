package sessions

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
)

// stateCookiePrefix namespaces the CSRF cookie per provider key, so
// concurrent logins against different providers do not clobber each other.
const stateCookiePrefix = "oauth_csrf_"

// Reserved state fields. Caller fields with these names are overwritten.
const (
	stateFieldCSRF     = "csrf"
	stateFieldProvider = "providerKey"
	stateFieldInstance = "instanceKey"
)

func stateCookieName(key ProviderKey) string {
	return stateCookiePrefix + key.Namespace()
}

// encodeState builds the OAuth state parameter: the caller's fields merged
// with a fresh CSRF token and the provider identity, JSON-encoded and
// base64url-encoded. The CSRF token is simultaneously bound to a short-lived
// cookie for verification on callback.
func (s *Sessions) encodeState(rc RequestContext, key ProviderKey, fields map[string]any) (string, error) {
	payload := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		payload[k] = v
	}

	csrf := oauth2.GenerateVerifier()
	payload[stateFieldCSRF] = csrf
	payload[stateFieldProvider] = key.String()
	if key.Instance != "" {
		payload[stateFieldInstance] = key.Instance
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}

	rc.SetCookie(buildCookie(stateCookieName(key), csrf, s.stateTTL, s.cookies))
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// decodeState reverses encodeState. The CSRF token and the provider identity
// are stripped from the returned fields; what remains is the caller's data.
func decodeState(raw string) (*AuthState, error) {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, ErrMalformedState("State parameter is not valid base64url")
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, ErrMalformedState("State parameter is not a JSON object")
	}

	csrf, ok := payload[stateFieldCSRF].(string)
	if !ok || csrf == "" {
		return nil, ErrMalformedState("State is missing its CSRF token")
	}
	rawKey, ok := payload[stateFieldProvider].(string)
	if !ok || rawKey == "" {
		return nil, ErrMalformedState("State is missing its provider key")
	}
	key, err := ParseProviderKey(rawKey)
	if err != nil {
		return nil, ErrMalformedState(fmt.Sprintf("State carries an invalid provider key: %v", err))
	}
	if key.Instance == "" {
		if instance, ok := payload[stateFieldInstance].(string); ok {
			key.Instance = instance
		}
	}

	delete(payload, stateFieldCSRF)
	delete(payload, stateFieldProvider)
	delete(payload, stateFieldInstance)

	return &AuthState{
		CSRF:   csrf,
		Key:    key,
		Fields: payload,
	}, nil
}

// verifyState compares the decoded state's CSRF token against its cookie in
// constant time. The cookie is deleted no matter the outcome: state is
// single-use, and a failed attempt must not leave a replayable token behind.
func (s *Sessions) verifyState(rc RequestContext, st *AuthState) error {
	name := stateCookieName(st.Key)
	stored, ok := rc.Cookie(name)
	rc.DeleteCookie(name)

	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(st.CSRF)) != 1 {
		return ErrCSRFMismatch()
	}
	return nil
}
