package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/sync/singleflight"
)

// refresher serializes refreshes per session. Concurrent requests that find
// the same namespace expired share one upstream call; providers that rotate
// refresh tokens invalidate the old one on first use, so a second concurrent
// refresh would fail and kill the session.
type refresher struct {
	exchanger Exchanger
	group     singleflight.Group
}

// refresh exchanges the previous set's refresh token and returns the
// normalized result. Every caller gets its own clone.
func (rf *refresher) refresh(ctx context.Context, ns string, cfg *ProviderConfig, previous *TokenSet) (*TokenSet, error) {
	key := ns + ":" + tokenDigest(previous.RefreshToken)
	v, err, _ := rf.group.Do(key, func() (any, error) {
		fresh, err := rf.exchanger.Refresh(ctx, cfg, previous.RefreshToken)
		if err != nil {
			return nil, err
		}
		return normalizeTokenSet(fresh, previous, cfg.Schema), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TokenSet).Clone(), nil
}

// tokenDigest gives a stable non-reversible singleflight key component for a
// token value.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

// normalizeTokenSet merges a refresh response over the previous token set.
//
// The refresh response wins for the base fields it actually carries; fields
// it omits keep their previous values, so the refresh token in particular is
// never dropped when the provider does not rotate it. Schema-declared fields
// then get their previous values re-applied on top: refresh responses are
// not trusted to repeat provider-specific metadata.
func normalizeTokenSet(refreshed, previous *TokenSet, schema FieldSchema) *TokenSet {
	if previous == nil {
		previous = &TokenSet{}
	}
	out := previous.Clone()

	if refreshed != nil {
		if refreshed.AccessToken != "" {
			out.AccessToken = refreshed.AccessToken
		}
		if refreshed.RefreshToken != "" {
			out.RefreshToken = refreshed.RefreshToken
		}
		if refreshed.TokenType != "" {
			out.TokenType = refreshed.TokenType
		}
		if refreshed.ExpiresIn > 0 {
			out.ExpiresIn = refreshed.ExpiresIn
		}
		if refreshed.ExpiresAt > 0 {
			out.ExpiresAt = refreshed.ExpiresAt
		}
		for k, v := range refreshed.Fields {
			out.setField(k, v)
		}
		// A refresh carrying no expiry information at all restarts the
		// default lifetime clock instead of inheriting the elapsed expiry.
		if refreshed.ExpiresIn == 0 && refreshed.ExpiresAt == 0 {
			out.ExpiresIn = 0
			out.ExpiresAt = 0
		}
	}

	for _, f := range schema.Fields {
		if v, ok := previous.Fields[f.Key]; ok {
			out.setField(f.Key, v)
		}
	}
	return out
}
