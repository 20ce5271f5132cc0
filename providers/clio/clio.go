package clio

import (
	"golang.org/x/oauth2"

	sessions "github.com/giantswarm/oauth-sessions"
)

// Region selects a Clio regional deployment.
type Region string

const (
	RegionUS Region = "us"
	RegionCA Region = "ca"
	RegionEU Region = "eu"
	RegionAU Region = "au"
)

// hosts maps regions to their application hosts.
var hosts = map[Region]string{
	RegionUS: "app.clio.com",
	RegionCA: "ca.app.clio.com",
	RegionEU: "eu.app.clio.com",
	RegionAU: "au.app.clio.com",
}

// Config holds the Clio application settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// Region picks the Clio deployment. Default: RegionUS.
	Region Region

	// Scopes requested at login. Clio grants the application's configured
	// permissions when empty.
	Scopes []string
}

// New builds a provider configuration for Clio's OAuth endpoints. Register
// each firm under its own instance key, for example "clio:smithlaw".
func New(cfg Config) *sessions.ProviderConfig {
	host, ok := hosts[cfg.Region]
	if !ok {
		host = hosts[RegionUS]
	}
	base := "https://" + host + "/oauth"

	return &sessions.ProviderConfig{
		ClientID:           cfg.ClientID,
		ClientSecret:       cfg.ClientSecret,
		RedirectURI:        cfg.RedirectURI,
		Scopes:             cfg.Scopes,
		AuthorizeEndpoint:  base + "/authorize",
		TokenEndpoint:      base + "/token",
		RevocationEndpoint: base + "/deauthorize",
		AuthStyle:          oauth2.AuthStyleInParams,
	}
}
