package sessions

import (
	"testing"
	"time"
)

func TestTokenSet_Clone(t *testing.T) {
	original := &TokenSet{
		AccessToken:  "at",
		RefreshToken: "rt",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
		ExpiresAt:    1770112800,
		Fields:       map[string]any{"instance_url": "https://na1.example.com"},
	}

	clone := original.Clone()
	clone.AccessToken = "changed"
	clone.Fields["instance_url"] = "https://eu2.example.com"
	clone.Fields["added"] = true

	if original.AccessToken != "at" {
		t.Error("Clone() shares the base fields with the original")
	}
	if got := original.Fields["instance_url"]; got != "https://na1.example.com" {
		t.Errorf("Clone() shares the fields map: Fields[instance_url] = %v", got)
	}
	if _, ok := original.Fields["added"]; ok {
		t.Error("Clone() shares the fields map: added key leaked into original")
	}
}

func TestTokenSet_Clone_Nil(t *testing.T) {
	var ts *TokenSet
	if got := ts.Clone(); got != nil {
		t.Errorf("Clone() on nil = %v, want nil", got)
	}
}

func TestTokenSet_Field(t *testing.T) {
	ts := &TokenSet{}
	if _, ok := ts.Field("missing"); ok {
		t.Error("Field() on empty set reported ok")
	}

	ts.setField("ext_expires_in", int64(7200))
	v, ok := ts.Field("ext_expires_in")
	if !ok {
		t.Fatal("Field() = not ok after setField")
	}
	if got, want := v, int64(7200); got != want {
		t.Errorf("Field() = %v, want %v", got, want)
	}
}

func TestTokenStatus_String(t *testing.T) {
	tests := []struct {
		status TokenStatus
		want   string
	}{
		{StatusAbsent, "absent"},
		{StatusExpired, "expired"},
		{StatusValid, "valid"},
		{TokenStatus(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("TokenStatus(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestAbsoluteFromSeconds(t *testing.T) {
	now := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"int64 seconds", int64(7200), now.Unix() + 7200},
		{"int seconds", 7200, now.Unix() + 7200},
		{"float64 seconds (JSON numbers)", float64(8640000), now.Unix() + 8640000},
		{"numeric string", "3600", now.Unix() + 3600},
		{"non-numeric passes through", "soon", "soon"},
		{"bool passes through", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AbsoluteFromSeconds(tt.value, now); got != tt.want {
				t.Errorf("AbsoluteFromSeconds(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestFieldSchema_FieldByKey(t *testing.T) {
	schema := FieldSchema{Fields: []Field{
		{Key: "instance_url"},
		{Key: "x_refresh_token_expires_in", CookieName: "qb_refresh_expiry"},
	}}

	f, ok := schema.FieldByKey("x_refresh_token_expires_in")
	if !ok {
		t.Fatal("FieldByKey() = not ok for declared field")
	}
	if got, want := f.CookieName, "qb_refresh_expiry"; got != want {
		t.Errorf("CookieName = %q, want %q", got, want)
	}

	if _, ok := schema.FieldByKey("undeclared"); ok {
		t.Error("FieldByKey() = ok for undeclared field")
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   int64
		wantOK bool
	}{
		{"int64", int64(5), 5, true},
		{"int", 5, 5, true},
		{"int32", int32(5), 5, true},
		{"float64", float64(5.9), 5, true},
		{"float32", float32(5), 5, true},
		{"numeric string", "5", 5, true},
		{"non-numeric string", "five", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toInt64(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("toInt64(%v) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("toInt64(%v) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}
