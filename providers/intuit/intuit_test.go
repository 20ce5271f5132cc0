package intuit

import (
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	cfg := New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example.com/oauth/callback",
	})

	t.Run("endpoints", func(t *testing.T) {
		if cfg.AuthorizeEndpoint != "https://appcenter.intuit.com/connect/oauth2" {
			t.Errorf("AuthorizeEndpoint = %v", cfg.AuthorizeEndpoint)
		}
		if cfg.TokenEndpoint != "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer" {
			t.Errorf("TokenEndpoint = %v", cfg.TokenEndpoint)
		}
		if cfg.RevocationEndpoint == "" {
			t.Error("Intuit config should carry a revocation endpoint")
		}
	})

	t.Run("refresh expiry is declared and enforced", func(t *testing.T) {
		if cfg.Schema.RefreshExpiryField != FieldRefreshTokenExpiresIn {
			t.Errorf("RefreshExpiryField = %v, want %v", cfg.Schema.RefreshExpiryField, FieldRefreshTokenExpiresIn)
		}
		if !cfg.Schema.EnforceRefreshExpiry {
			t.Error("EnforceRefreshExpiry should be set")
		}

		field, ok := cfg.Schema.FieldByKey(FieldRefreshTokenExpiresIn)
		if !ok {
			t.Fatalf("schema should declare %s", FieldRefreshTokenExpiresIn)
		}
		if field.Transform == nil {
			t.Fatal("x_refresh_token_expires_in should carry a transform")
		}

		now := time.Unix(1_700_000_000, 0)
		got := field.Transform(int64(8726400), now)
		want := now.Unix() + 8726400
		if got != any(want) {
			t.Errorf("Transform(8726400) = %v, want %v", got, want)
		}
	})

	t.Run("default scope", func(t *testing.T) {
		if len(cfg.Scopes) != 1 || cfg.Scopes[0] != "com.intuit.quickbooks.accounting" {
			t.Errorf("Scopes = %v", cfg.Scopes)
		}
	})

	t.Run("validates", func(t *testing.T) {
		if err := cfg.Validate(); err != nil {
			t.Errorf("built config should validate, got: %v", err)
		}
	})
}
