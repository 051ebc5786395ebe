// Package config loads the session client configuration from environment
// variables. Defaults match the admin console's authorization server.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds every tunable of the session client.
type Config struct {
	// Issuer, when set, takes precedence over the individual endpoint URLs:
	// they are resolved from the issuer's OIDC discovery document instead.
	Issuer string `env:"AUTH_ISSUER"`

	TokenURL       string `env:"AUTH_TOKEN_URL"        envDefault:"http://localhost:8080/connect/token"`
	RevokeURL      string `env:"AUTH_REVOKE_URL"       envDefault:"http://localhost:8080/connect/revoke"`
	UserInfoURL    string `env:"AUTH_USERINFO_URL"     envDefault:"http://localhost:8080/connect/userinfo"`
	AccessCodesURL string `env:"AUTH_ACCESS_CODES_URL"`

	ClientID     string `env:"AUTH_CLIENT_ID"     envDefault:"password-client"`
	ClientSecret string `env:"AUTH_CLIENT_SECRET" envDefault:"password-client-secret"`
	Scope        string `env:"AUTH_SCOPE"         envDefault:"api"`

	DefaultHomePath string        `env:"AUTH_DEFAULT_HOME_PATH"  envDefault:"/analytics"`
	LoginPath       string        `env:"AUTH_LOGIN_PATH"         envDefault:"/auth/login"`
	FallbackDelay   time.Duration `env:"AUTH_NAV_FALLBACK_DELAY" envDefault:"500ms"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "[config.Load] env.Parse")
	}
	return cfg, nil
}
