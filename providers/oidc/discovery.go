package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/oauth-sessions/internal/util"
)

// Document holds the provider metadata consumed from an OIDC discovery
// response (RFC 8414).
type Document struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	UserInfoEndpoint              string   `json:"userinfo_endpoint,omitempty"`
	RevocationEndpoint            string   `json:"revocation_endpoint,omitempty"`
	IntrospectionEndpoint         string   `json:"introspection_endpoint,omitempty"`
	DeviceAuthorizationEndpoint   string   `json:"device_authorization_endpoint,omitempty"`
	JWKSUri                       string   `json:"jwks_uri"`
	ScopesSupported               []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported        []string `json:"response_types_supported"`
	GrantTypesSupported           []string `json:"grant_types_supported,omitempty"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`
}

// Client fetches and caches OIDC discovery documents. Documents are cached
// per issuer with a TTL, and concurrent fetches of the same issuer share one
// request.
//
// The client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	cache      *gocache.Cache
	cacheTTL   time.Duration
	group      singleflight.Group
	logger     *slog.Logger

	// skipValidation bypasses issuer URL validation. Tests only; httptest
	// servers live on loopback addresses the validation rejects.
	skipValidation bool
}

// NewClient creates a discovery client.
//
// A nil httpClient gets a default with a 10s timeout, a zero cacheTTL
// defaults to one hour, a nil logger uses slog.Default.
func NewClient(httpClient *http.Client, cacheTTL time.Duration, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cacheTTL == 0 {
		cacheTTL = 1 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		cache:      gocache.New(cacheTTL, 10*time.Minute),
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Discover fetches the issuer's discovery document, serving repeat calls
// from the cache until the TTL elapses. The issuer URL is validated first;
// the returned document's endpoints are checked for HTTPS and its issuer
// claim must match the requested issuer.
func (c *Client) Discover(ctx context.Context, issuerURL string) (*Document, error) {
	if !c.skipValidation {
		if err := ValidateIssuerURL(issuerURL); err != nil {
			return nil, fmt.Errorf("invalid issuer URL: %w", err)
		}
	}

	issuer := util.NormalizeURL(issuerURL)
	if cached, ok := c.cache.Get(issuer); ok {
		c.logger.Debug("OIDC discovery cache hit", "issuer", issuer)
		return cached.(*Document), nil
	}

	v, err, _ := c.group.Do(issuer, func() (any, error) {
		// A concurrent caller may have fetched while we waited.
		if cached, ok := c.cache.Get(issuer); ok {
			return cached.(*Document), nil
		}
		doc, err := c.fetch(ctx, issuer)
		if err != nil {
			return nil, err
		}
		c.cache.Set(issuer, doc, c.cacheTTL)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

func (c *Client) fetch(ctx context.Context, issuer string) (*Document, error) {
	discoveryURL := issuer + "/.well-known/openid-configuration"
	c.logger.Debug("Fetching OIDC discovery document", "url", discoveryURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discovery document: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery request failed with status %d", resp.StatusCode)
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}

	if err := c.validateDocument(issuer, &doc); err != nil {
		return nil, fmt.Errorf("invalid discovery document: %w", err)
	}

	c.logger.Info("OIDC discovery successful",
		"issuer", issuer,
		"authorization_endpoint", doc.AuthorizationEndpoint,
		"token_endpoint", doc.TokenEndpoint)

	return &doc, nil
}

// validateDocument checks the document's security properties: the required
// endpoints exist, the issuer claim matches the URL the document was
// fetched from, and every endpoint uses HTTPS.
func (c *Client) validateDocument(issuer string, doc *Document) error {
	required := []struct {
		name string
		url  string
	}{
		{"issuer", doc.Issuer},
		{"authorization_endpoint", doc.AuthorizationEndpoint},
		{"token_endpoint", doc.TokenEndpoint},
		{"jwks_uri", doc.JWKSUri},
	}
	for _, endpoint := range required {
		if endpoint.url == "" {
			return fmt.Errorf("%s is required but missing", endpoint.name)
		}
	}

	if util.NormalizeURL(doc.Issuer) != issuer {
		return fmt.Errorf("issuer mismatch: document claims %q, fetched from %q", doc.Issuer, issuer)
	}

	all := append(required, []struct {
		name string
		url  string
	}{
		{"userinfo_endpoint", doc.UserInfoEndpoint},
		{"revocation_endpoint", doc.RevocationEndpoint},
		{"introspection_endpoint", doc.IntrospectionEndpoint},
		{"device_authorization_endpoint", doc.DeviceAuthorizationEndpoint},
	}...)
	for _, endpoint := range all {
		if endpoint.url != "" && !strings.HasPrefix(endpoint.url, "https://") {
			return fmt.Errorf("%s must use HTTPS: %s", endpoint.name, endpoint.url)
		}
	}

	return nil
}

// ClearCache drops every cached document, forcing a refetch on the next
// Discover call.
func (c *Client) ClearCache() {
	count := c.cache.ItemCount()
	c.cache.Flush()
	c.logger.Debug("OIDC discovery cache cleared", "entries_removed", count)
}
