package config

import "time"

// CallbackPath is where the identity provider sends the browser back to.
const CallbackPath = "/auth/callback"

type OAuthConfig interface {
	GetIssuer() string
	GetClientID() string
	GetClientSecret() string
	GetRedirectURL() string
	GetSignInScopes() []string
	GetMailboxScopes() []string
	GetProviderTokenValidity() time.Duration
	GetProviderTokenSkew() time.Duration
	GetFlowCookieMaxAge() time.Duration
}

type OAuth struct {
	Issuer        string   `env:"OAUTH_ISSUER" envDefault:"https://accounts.google.com"`
	ClientID      string   `env:"OAUTH_CLIENT_ID"`
	ClientSecret  string   `env:"OAUTH_CLIENT_SECRET"`
	RedirectURL   string   `env:"OAUTH_REDIRECT_URL"`
	SignInScopes  []string `env:"OAUTH_SIGNIN_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
	MailboxScopes []string `env:"OAUTH_MAILBOX_SCOPES" envSeparator:"," envDefault:"https://www.googleapis.com/auth/gmail.readonly"`

	// Conservative lower bound on the provider access token lifetime.
	ProviderTokenValidity time.Duration `env:"PROVIDER_TOKEN_VALIDITY" envDefault:"45m"`
	ProviderTokenSkew     time.Duration `env:"PROVIDER_TOKEN_SKEW" envDefault:"5m"`
	FlowCookieMaxAge      time.Duration `env:"OAUTH_FLOW_COOKIE_MAX_AGE" envDefault:"10m"`
}

func (o OAuth) GetIssuer() string {
	return o.Issuer
}

func (o OAuth) GetClientID() string {
	return o.ClientID
}

func (o OAuth) GetClientSecret() string {
	return o.ClientSecret
}

func (o OAuth) GetSignInScopes() []string {
	return o.SignInScopes
}

func (o OAuth) GetMailboxScopes() []string {
	return o.MailboxScopes
}

func (o OAuth) GetProviderTokenValidity() time.Duration {
	return o.ProviderTokenValidity
}

func (o OAuth) GetProviderTokenSkew() time.Duration {
	return o.ProviderTokenSkew
}

func (o OAuth) GetFlowCookieMaxAge() time.Duration {
	return o.FlowCookieMaxAge
}
