package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	StoreConfig
	IngestConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Store
	Ingest
}

var _ Config = mainConfig{}

// Load parses the process environment once and validates it. Startup should
// abort when it returns an error.
func Load() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("[config Load] parse env: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("[config Load] %w", err)
	}
	return c, nil
}

// GetRedirectURL is the callback registered with the identity provider.
func (c mainConfig) GetRedirectURL() string {
	if c.RedirectURL != "" {
		return c.RedirectURL
	}
	return strings.TrimRight(c.BaseURL, "/") + CallbackPath
}

func (c mainConfig) validate() error {
	var errs []error
	if c.ClientID == "" {
		errs = append(errs, errors.New("OAUTH_CLIENT_ID is required"))
	}
	if c.ClientSecret == "" {
		errs = append(errs, errors.New("OAUTH_CLIENT_SECRET is required"))
	}
	if len(c.SessionSecret) < minSessionSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength))
	}
	if c.ProviderTokenValidity <= 0 {
		errs = append(errs, errors.New("PROVIDER_TOKEN_VALIDITY must be positive"))
	}
	switch c.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported", c.Driver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.BackendBaseURL != "" {
		u, err := url.Parse(c.BackendBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("BACKEND_BASE_URL %q must be an absolute http(s) URL", c.BackendBaseURL))
		}
	}
	return errors.Join(errs...)
}
