package sessions

import (
	"strconv"
	"testing"

	"github.com/giantswarm/oauth-sessions/internal/testutil"
	"github.com/giantswarm/oauth-sessions/security"
)

func TestValidateTokens(t *testing.T) {
	fresh := strconv.FormatInt(testNow.Unix()+600, 10)
	stale := strconv.FormatInt(testNow.Unix()-600, 10)
	exact := strconv.FormatInt(testNow.Unix(), 10)

	tests := []struct {
		name        string
		cookies     map[string]string
		wantStatus  TokenStatus
		wantAccess  string
		wantRefresh string
	}{
		{
			name:       "no cookies",
			cookies:    nil,
			wantStatus: StatusAbsent,
		},
		{
			name:        "lone refresh token is recoverable",
			cookies:     map[string]string{"clio_refresh_token": "rt"},
			wantStatus:  StatusExpired,
			wantRefresh: "rt",
		},
		{
			name:       "access token without expiry cookie",
			cookies:    map[string]string{"clio_access_token": "at"},
			wantStatus: StatusAbsent,
		},
		{
			name: "unparseable expiry",
			cookies: map[string]string{
				"clio_access_token":            "at",
				"clio_access_token_expires_at": "tomorrow",
			},
			wantStatus: StatusAbsent,
		},
		{
			name: "fresh access token",
			cookies: map[string]string{
				"clio_access_token":            "at",
				"clio_access_token_expires_at": fresh,
			},
			wantStatus: StatusValid,
			wantAccess: "at",
		},
		{
			name: "expiry boundary counts as expired",
			cookies: map[string]string{
				"clio_access_token":            "at",
				"clio_access_token_expires_at": exact,
			},
			wantStatus: StatusExpired,
			wantAccess: "at",
		},
		{
			name: "expired with refresh token",
			cookies: map[string]string{
				"clio_access_token":            "at",
				"clio_access_token_expires_at": stale,
				"clio_refresh_token":           "rt",
			},
			wantStatus:  StatusExpired,
			wantAccess:  "at",
			wantRefresh: "rt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSessions(t, nil)
			rc := testutil.NewContext()
			for name, value := range tt.cookies {
				rc.WithCookie(name, value)
			}

			result := s.validateTokens(rc, "clio", testProviderConfig())
			if result.Status != tt.wantStatus {
				t.Fatalf("Status = %v, want %v", result.Status, tt.wantStatus)
			}
			if tt.wantStatus == StatusAbsent {
				if result.TokenSet != nil {
					t.Errorf("TokenSet = %+v, want nil for absent", result.TokenSet)
				}
				return
			}
			if result.TokenSet == nil {
				t.Fatal("TokenSet = nil for a non-absent result")
			}
			if got := result.TokenSet.AccessToken; got != tt.wantAccess {
				t.Errorf("AccessToken = %q, want %q", got, tt.wantAccess)
			}
			if got := result.TokenSet.RefreshToken; got != tt.wantRefresh {
				t.Errorf("RefreshToken = %q, want %q", got, tt.wantRefresh)
			}
		})
	}
}

func TestValidateTokens_SchemaFields(t *testing.T) {
	cfg := testProviderConfig()
	cfg.Schema = FieldSchema{Fields: []Field{{Key: "instance_url"}}}

	s, _ := newTestSessions(t, nil)
	rc := testutil.NewContext().
		WithCookie("salesforce_access_token", "at").
		WithCookie("salesforce_access_token_expires_at", strconv.FormatInt(testNow.Unix()+600, 10)).
		WithCookie("salesforce_instance_url", "https://na1.example.com")

	result := s.validateTokens(rc, "salesforce", cfg)
	if result.Status != StatusValid {
		t.Fatalf("Status = %v, want %v", result.Status, StatusValid)
	}
	if got := result.TokenSet.Fields["instance_url"]; got != "https://na1.example.com" {
		t.Errorf("Fields[instance_url] = %v", got)
	}
}

func TestValidateTokens_MissingSchemaField(t *testing.T) {
	cfg := testProviderConfig()
	cfg.Schema = FieldSchema{Fields: []Field{{Key: "instance_url"}}}

	s, _ := newTestSessions(t, nil)
	rc := testutil.NewContext().
		WithCookie("salesforce_access_token", "at").
		WithCookie("salesforce_access_token_expires_at", strconv.FormatInt(testNow.Unix()+600, 10))

	result := s.validateTokens(rc, "salesforce", cfg)
	if result.Status != StatusAbsent {
		t.Fatalf("Status = %v, want %v", result.Status, StatusAbsent)
	}
	if !result.Corrupted {
		t.Error("Corrupted = false, want true for a missing declared field")
	}
}

func TestValidateTokens_EnforceRefreshExpiry(t *testing.T) {
	cfg := testProviderConfig()
	cfg.Schema = FieldSchema{
		Fields:               []Field{{Key: "x_refresh_token_expires_in", Transform: AbsoluteFromSeconds}},
		RefreshExpiryField:   "x_refresh_token_expires_in",
		EnforceRefreshExpiry: true,
	}

	freshAccess := strconv.FormatInt(testNow.Unix()+600, 10)

	tests := []struct {
		name          string
		refreshExpiry string
		hasCookie     bool
		wantStatus    TokenStatus
		wantFields    bool
	}{
		{
			name:          "refresh window open",
			refreshExpiry: strconv.FormatInt(testNow.Unix()+86400, 10),
			hasCookie:     true,
			wantStatus:    StatusValid,
			wantFields:    true,
		},
		{
			name:          "refresh window elapsed forces refresh",
			refreshExpiry: strconv.FormatInt(testNow.Unix()-1, 10),
			hasCookie:     true,
			wantStatus:    StatusExpired,
		},
		{
			name:       "refresh expiry cookie missing",
			hasCookie:  false,
			wantStatus: StatusExpired,
		},
		{
			name:          "refresh expiry unparseable",
			refreshExpiry: "later",
			hasCookie:     true,
			wantStatus:    StatusExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSessions(t, nil)
			rc := testutil.NewContext().
				WithCookie("intuit_access_token", "at").
				WithCookie("intuit_access_token_expires_at", freshAccess).
				WithCookie("intuit_refresh_token", "rt")
			if tt.hasCookie {
				rc.WithCookie("intuit_x_refresh_token_expires_in", tt.refreshExpiry)
			}

			result := s.validateTokens(rc, "intuit", cfg)
			if result.Status != tt.wantStatus {
				t.Fatalf("Status = %v, want %v", result.Status, tt.wantStatus)
			}
			if result.TokenSet == nil {
				t.Fatal("TokenSet = nil")
			}
			if got, want := result.TokenSet.RefreshToken, "rt"; got != want {
				t.Errorf("RefreshToken = %q, want %q", got, want)
			}
			if tt.wantFields && result.TokenSet.Fields == nil {
				t.Error("Fields = nil, want schema fields loaded")
			}
			if !tt.wantFields && result.TokenSet.Fields != nil {
				// The forced-refresh result carries base tokens only; the
				// refresh re-establishes provider metadata.
				t.Errorf("Fields = %v, want nil on a forced refresh", result.TokenSet.Fields)
			}
		})
	}
}

func TestValidateTokens_EncryptedRefreshToken(t *testing.T) {
	key, err := security.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	enc, err := security.NewEncryptor(key)
	if err != nil {
		t.Fatal(err)
	}

	cfg := testProviderConfig()
	cfg.Encrypt = enc.Encrypt
	cfg.Decrypt = enc.Decrypt

	ciphertext, err := enc.Encrypt("rt-secret")
	if err != nil {
		t.Fatal(err)
	}

	s, _ := newTestSessions(t, nil)
	rc := testutil.NewContext().WithCookie("clio_refresh_token", ciphertext)

	result := s.validateTokens(rc, "clio", cfg)
	if result.Status != StatusExpired {
		t.Fatalf("Status = %v, want %v", result.Status, StatusExpired)
	}
	if got, want := result.TokenSet.RefreshToken, "rt-secret"; got != want {
		t.Errorf("RefreshToken = %q, want decrypted value %q", got, want)
	}
}

func TestValidateTokens_UndecryptableRefreshToken(t *testing.T) {
	key, err := security.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	enc, err := security.NewEncryptor(key)
	if err != nil {
		t.Fatal(err)
	}

	cfg := testProviderConfig()
	cfg.Decrypt = enc.Decrypt

	s, _ := newTestSessions(t, nil)
	rc := testutil.NewContext().
		WithCookie("clio_access_token", "at").
		WithCookie("clio_access_token_expires_at", strconv.FormatInt(testNow.Unix()+600, 10)).
		WithCookie("clio_refresh_token", "not-a-ciphertext")

	// A cookie that fails decryption counts as no refresh token at all. The
	// access token is unaffected.
	result := s.validateTokens(rc, "clio", cfg)
	if result.Status != StatusValid {
		t.Fatalf("Status = %v, want %v", result.Status, StatusValid)
	}
	if got := result.TokenSet.RefreshToken; got != "" {
		t.Errorf("RefreshToken = %q, want empty", got)
	}
}
