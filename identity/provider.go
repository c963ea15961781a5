// Package identity talks to the OpenID Connect identity provider and owns the
// browser session that results from a completed authorization-code flow.
package identity

import (
	"context"

	"github.com/jrsteele09/gmail-connect/server/cookiestore"
	"github.com/jrsteele09/gmail-connect/sessions"
)

// Flow selects which scopes an authorization request asks for.
type Flow string

const (
	// FlowSignIn authenticates the user only.
	FlowSignIn Flow = "signin"
	// FlowMailbox additionally asks for offline, delegated mailbox access.
	FlowMailbox Flow = "mailbox"
)

const (
	SessionCookieName = "gc_session"

	stateCookieName    = "gc_oauth_state"
	nonceCookieName    = "gc_oauth_nonce"
	verifierCookieName = "gc_oauth_verifier"
	flowCookieName     = "gc_oauth_flow"
)

// Provider is the identity provider as seen by the HTTP layer. Every method
// reads and writes the browser session through the supplied cookie context.
type Provider interface {
	// AuthCodeURL records flow state in cookies and returns the provider
	// URL to send the browser to. It needs a writable context.
	AuthCodeURL(cookies cookiestore.Context, flow Flow) (string, error)

	// ExchangeCodeForSession redeems an authorization code. Provider
	// rejections are returned as *errors.ProviderExchangeError; anything
	// else is an infrastructure failure.
	ExchangeCodeForSession(ctx context.Context, cookies cookiestore.Context, code, state string) (*sessions.Session, error)

	// GetSession returns the current session, or nil when there is none.
	GetSession(ctx context.Context, cookies cookiestore.Context) (*sessions.Session, error)

	SignOut(ctx context.Context, cookies cookiestore.Context) error
}
