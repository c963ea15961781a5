package identityfakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/gmail-connect/identity"
	"github.com/jrsteele09/gmail-connect/server/cookiestore"
	"github.com/jrsteele09/gmail-connect/sessions"
)

var _ identity.Provider = (*FakeProvider)(nil)

// FakeProvider is a scriptable identity.Provider. A successful exchange sets
// the session cookie and makes the session visible to GetSession, like the
// real provider does.
type FakeProvider struct {
	lock sync.Mutex

	// ExchangeResult and ExchangeErr script the next exchange.
	ExchangeResult *sessions.Session
	ExchangeErr    error
	// GetSessionErr, when set, fails every GetSession call.
	GetSessionErr error
	// Revoker, when set, revokes the session's access token on SignOut.
	Revoker interface{ RevokeToken(raw string) error }

	ExchangeCalls   []string
	GetSessionCalls int
	SignOutCalls    int
	AuthFlows       []identity.Flow

	sessions map[string]*sessions.Session
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{sessions: make(map[string]*sessions.Session)}
}

func (p *FakeProvider) AuthCodeURL(cookies cookiestore.Context, flow identity.Flow) (string, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.AuthFlows = append(p.AuthFlows, flow)
	if err := cookies.Set("fake_state", "state", cookiestore.DefaultOptions(0)); err != nil {
		return "", err
	}
	return "https://idp.example.com/authorize?flow=" + string(flow), nil
}

func (p *FakeProvider) ExchangeCodeForSession(_ context.Context, cookies cookiestore.Context, code, _ string) (*sessions.Session, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.ExchangeCalls = append(p.ExchangeCalls, code)
	if p.ExchangeErr != nil {
		return nil, p.ExchangeErr
	}
	if p.ExchangeResult == nil {
		return nil, nil
	}
	session := *p.ExchangeResult
	p.sessions[session.ID] = &session
	if err := cookies.Set(identity.SessionCookieName, session.ID, cookiestore.DefaultOptions(0)); err != nil {
		return nil, err
	}
	return &session, nil
}

func (p *FakeProvider) GetSession(_ context.Context, cookies cookiestore.Context) (*sessions.Session, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.GetSessionCalls++
	if p.GetSessionErr != nil {
		return nil, p.GetSessionErr
	}
	id, ok := cookies.Get(identity.SessionCookieName)
	if !ok {
		return nil, nil
	}
	session, ok := p.sessions[id]
	if !ok {
		return nil, nil
	}
	s := *session
	return &s, nil
}

func (p *FakeProvider) SignOut(_ context.Context, cookies cookiestore.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.SignOutCalls++
	if id, ok := cookies.Get(identity.SessionCookieName); ok {
		if session, found := p.sessions[id]; found && p.Revoker != nil {
			if err := p.Revoker.RevokeToken(session.AccessToken); err != nil {
				return err
			}
		}
		delete(p.sessions, id)
	}
	return cookies.Remove(identity.SessionCookieName, cookiestore.DefaultOptions(0))
}

// AddSession makes s resolvable by its ID without an exchange.
func (p *FakeProvider) AddSession(s *sessions.Session) {
	p.lock.Lock()
	defer p.lock.Unlock()
	c := *s
	p.sessions[s.ID] = &c
}
