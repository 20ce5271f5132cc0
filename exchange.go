package sessions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/giantswarm/oauth-sessions/internal/util"
)

// Exchanger is the network boundary to a provider's token endpoint. The
// default implementation speaks RFC 6749 via golang.org/x/oauth2; tests and
// exotic providers substitute their own.
type Exchanger interface {
	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, cfg *ProviderConfig, code string) (*TokenSet, error)

	// Refresh trades a refresh token for fresh tokens.
	Refresh(ctx context.Context, cfg *ProviderConfig, refreshToken string) (*TokenSet, error)

	// Revoke invalidates a token at the provider (RFC 7009).
	Revoke(ctx context.Context, cfg *ProviderConfig, token, tokenTypeHint string) error
}

// extraResponseFields are token response extras captured into TokenSet.Fields
// even when no schema declares them, for hooks that want them.
var extraResponseFields = []string{"scope", "id_token"}

type httpExchanger struct {
	client *http.Client
}

func newHTTPExchanger(client *http.Client) *httpExchanger {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &httpExchanger{client: client}
}

func (e *httpExchanger) oauthConfig(cfg *ProviderConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthorizeEndpoint,
			TokenURL:  cfg.TokenEndpoint,
			AuthStyle: cfg.AuthStyle,
		},
	}
}

func (e *httpExchanger) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, e.client)
}

// Exchange trades an authorization code for tokens.
func (e *httpExchanger) Exchange(ctx context.Context, cfg *ProviderConfig, code string) (*TokenSet, error) {
	tok, err := e.oauthConfig(cfg).Exchange(e.withClient(ctx), code)
	if err != nil {
		if desc, status, ok := providerErrorDetail(err); ok {
			return nil, ErrExchangeFailed(desc, status)
		}
		return nil, fmt.Errorf("code exchange: %w", err)
	}
	return tokenSetFromOAuth2(tok, cfg.Schema), nil
}

// Refresh trades a refresh token for fresh tokens. Provider rejections map
// to ErrRefreshFailed with the provider's parsed message and status.
func (e *httpExchanger) Refresh(ctx context.Context, cfg *ProviderConfig, refreshToken string) (*TokenSet, error) {
	src := e.oauthConfig(cfg).TokenSource(e.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		if desc, status, ok := providerErrorDetail(err); ok {
			return nil, ErrRefreshFailed(desc, status)
		}
		return nil, ErrRefreshFailed(err.Error(), 0)
	}
	return tokenSetFromOAuth2(tok, cfg.Schema), nil
}

// Revoke posts the token to the provider's revocation endpoint.
func (e *httpExchanger) Revoke(ctx context.Context, cfg *ProviderConfig, token, tokenTypeHint string) error {
	if cfg.RevocationEndpoint == "" {
		return fmt.Errorf("provider has no revocation endpoint")
	}

	form := url.Values{"token": {token}}
	if tokenTypeHint != "" {
		form.Set("token_type_hint", tokenTypeHint)
	}
	if cfg.AuthStyle == oauth2.AuthStyleInParams {
		form.Set("client_id", cfg.ClientID)
		if cfg.ClientSecret != "" {
			form.Set("client_secret", cfg.ClientSecret)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.RevocationEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cfg.AuthStyle != oauth2.AuthStyleInParams {
		req.SetBasicAuth(url.QueryEscape(cfg.ClientID), url.QueryEscape(cfg.ClientSecret))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("revocation request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revocation endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// providerErrorDetail extracts the human-readable message and upstream
// status from an *oauth2.RetrieveError. The raw body is truncated: some
// providers return whole HTML pages on errors.
func providerErrorDetail(err error) (desc string, status int, ok bool) {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) {
		return "", 0, false
	}
	desc = rerr.ErrorDescription
	if desc == "" {
		desc = rerr.ErrorCode
	}
	if desc == "" {
		desc = util.SafeTruncate(strings.TrimSpace(string(rerr.Body)), 200)
	}
	if desc == "" {
		desc = "provider rejected the request"
	}
	if rerr.Response != nil {
		status = rerr.Response.StatusCode
	}
	return desc, status, true
}

// tokenSetFromOAuth2 converts an x/oauth2 token, capturing the schema's
// declared response fields plus a small set of well-known extras.
func tokenSetFromOAuth2(tok *oauth2.Token, schema FieldSchema) *TokenSet {
	ts := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
	}
	if !tok.Expiry.IsZero() {
		ts.ExpiresAt = tok.Expiry.Unix()
	}
	if v := tok.Extra("expires_in"); v != nil {
		if secs, ok := toInt64(v); ok {
			ts.ExpiresIn = secs
		}
	}

	for _, f := range schema.Fields {
		if v := tok.Extra(f.Key); v != nil {
			ts.setField(f.Key, v)
		}
	}
	for _, key := range extraResponseFields {
		if _, declared := schema.FieldByKey(key); declared {
			continue
		}
		if v := tok.Extra(key); v != nil {
			ts.setField(key, v)
		}
	}
	return ts
}
