package config

import "time"

const minSessionSecretLength = 32

type SecurityConfig interface {
	GetSessionSecret() []byte
	GetMaxSessionAge() time.Duration
	GetAccessTokenTTL() time.Duration
}

type Security struct {
	SessionSecret  string        `env:"SESSION_SECRET"`
	MaxSessionAge  time.Duration `env:"SESSION_MAX_AGE" envDefault:"720h"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
}

var _ SecurityConfig = Security{}

func (s Security) GetSessionSecret() []byte {
	return []byte(s.SessionSecret)
}

func (s Security) GetMaxSessionAge() time.Duration {
	return s.MaxSessionAge
}

func (s Security) GetAccessTokenTTL() time.Duration {
	return s.AccessTokenTTL
}
