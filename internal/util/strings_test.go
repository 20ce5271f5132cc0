package util

import "testing"

func TestSafeTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{
			name:   "string shorter than maxLen",
			input:  "short",
			maxLen: 10,
			want:   "short",
		},
		{
			name:   "string equal to maxLen",
			input:  "exactly10c",
			maxLen: 10,
			want:   "exactly10c",
		},
		{
			name:   "string longer than maxLen",
			input:  "this-is-a-very-long-token-string",
			maxLen: 8,
			want:   "this-is-",
		},
		{
			name:   "empty string",
			input:  "",
			maxLen: 5,
			want:   "",
		},
		{
			name:   "maxLen is zero",
			input:  "test",
			maxLen: 0,
			want:   "",
		},
		{
			name:   "maxLen is negative",
			input:  "test",
			maxLen: -1,
			want:   "",
		},
		{
			name:   "unicode characters",
			input:  "hello世界test",
			maxLen: 8,
			want:   "hello世",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeTruncate(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("SafeTruncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "URL with trailing slash",
			input: "https://accounts.example.com/",
			want:  "https://accounts.example.com",
		},
		{
			name:  "URL without trailing slash",
			input: "https://accounts.example.com",
			want:  "https://accounts.example.com",
		},
		{
			name:  "URL with multiple trailing slashes",
			input: "https://accounts.example.com///",
			want:  "https://accounts.example.com",
		},
		{
			name:  "URL with path and trailing slash",
			input: "https://example.com/realms/acme/",
			want:  "https://example.com/realms/acme",
		},
		{
			name:  "URL with path without trailing slash",
			input: "https://example.com/realms/acme",
			want:  "https://example.com/realms/acme",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "URL with port and trailing slash",
			input: "https://example.com:8443/",
			want:  "https://example.com:8443",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeURL(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeURL_Comparison(t *testing.T) {
	testCases := []struct {
		url1 string
		url2 string
	}{
		{"https://accounts.example.com", "https://accounts.example.com/"},
		{"https://example.com/realms/acme", "https://example.com/realms/acme/"},
		{"https://login.example.com:8443", "https://login.example.com:8443/"},
	}

	for _, tc := range testCases {
		normalized1 := NormalizeURL(tc.url1)
		normalized2 := NormalizeURL(tc.url2)
		if normalized1 != normalized2 {
			t.Errorf("Expected NormalizeURL(%q) == NormalizeURL(%q), got %q != %q",
				tc.url1, tc.url2, normalized1, normalized2)
		}
	}
}
