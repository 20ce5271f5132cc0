package oidc

import (
	"strings"
	"testing"
)

func TestValidateIssuerURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
		errMsg  string
	}{
		// Valid cases
		{
			name:    "valid HTTPS URL",
			url:     "https://accounts.example.com",
			wantErr: false,
		},
		{
			name:    "valid HTTPS URL with port",
			url:     "https://accounts.example.com:8443",
			wantErr: false,
		},
		{
			name:    "valid HTTPS URL with path",
			url:     "https://example.com/realms/acme",
			wantErr: false,
		},

		// HTTP rejection
		{
			name:    "reject HTTP",
			url:     "http://accounts.example.com",
			wantErr: true,
			errMsg:  "must use HTTPS",
		},

		// Loopback targets
		{
			name:    "reject IPv4 loopback",
			url:     "https://127.0.0.1",
			wantErr: true,
			errMsg:  "loopback",
		},
		{
			name:    "reject IPv6 loopback",
			url:     "https://[::1]",
			wantErr: true,
			errMsg:  "loopback",
		},
		{
			name:    "reject localhost",
			url:     "https://localhost",
			wantErr: true,
			errMsg:  "loopback",
		},

		// Private ranges
		{
			name:    "reject private IP 10.0.0.0/8",
			url:     "https://10.0.0.1",
			wantErr: true,
			errMsg:  "private",
		},
		{
			name:    "reject private IP 172.16.0.0/12",
			url:     "https://172.16.0.1",
			wantErr: true,
			errMsg:  "private",
		},
		{
			name:    "reject private IP 192.168.0.0/16",
			url:     "https://192.168.1.1",
			wantErr: true,
			errMsg:  "private",
		},

		// Link-local targets (cloud metadata service)
		{
			name:    "reject link-local IPv4 metadata service",
			url:     "https://169.254.169.254",
			wantErr: true,
			errMsg:  "link_local",
		},
		{
			name:    "reject link-local IPv6",
			url:     "https://[fe80::1]",
			wantErr: true,
			errMsg:  "link_local",
		},

		// Unspecified target
		{
			name:    "reject unspecified address",
			url:     "https://0.0.0.0",
			wantErr: true,
			errMsg:  "unspecified",
		},

		// Malformed URLs
		{
			name:    "reject malformed URL",
			url:     "not a url",
			wantErr: true,
			errMsg:  "must use HTTPS",
		},
		{
			name:    "reject empty hostname",
			url:     "https://",
			wantErr: true,
			errMsg:  "must have a hostname",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIssuerURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateIssuerURL() expected error for %q, got nil", tt.url)
					return
				}
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ValidateIssuerURL() error = %v, want error containing %q", err, tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("ValidateIssuerURL() unexpected error for %q: %v", tt.url, err)
				}
			}
		})
	}
}
