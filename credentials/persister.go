// Package credentials turns the delegated tokens carried by a fresh session
// into a stored GmailConnection.
package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/gmail-connect/connections"
	apperrors "github.com/jrsteele09/gmail-connect/internal/errors"
	"github.com/jrsteele09/gmail-connect/sessions"
	"github.com/rs/zerolog/log"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Outcome says what Persist did with a session.
type Outcome int

const (
	OutcomeNoSession Outcome = iota
	OutcomeNoProviderToken
	OutcomeStored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoSession:
		return "no_session"
	case OutcomeNoProviderToken:
		return "no_provider_token"
	case OutcomeStored:
		return "stored"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result describes a Persist call. Connection is set only when Outcome is OutcomeStored.
type Result struct {
	Outcome    Outcome
	Connection *connections.GmailConnection
}

// Persister upserts one GmailConnection per session that carries delegated
// mailbox access.
type Persister struct {
	repo     connections.Repo
	validity time.Duration
	skew     time.Duration
}

// NewPersister stamps stored tokens as expiring validity after persist time,
// or skew before the provider's reported expiry when that is sooner.
func NewPersister(repo connections.Repo, validity, skew time.Duration) *Persister {
	return &Persister{repo: repo, validity: validity, skew: skew}
}

func (p *Persister) Persist(ctx context.Context, session *sessions.Session) (Result, error) {
	if session == nil {
		return Result{Outcome: OutcomeNoSession}, nil
	}
	if !session.HasProviderToken() {
		return Result{Outcome: OutcomeNoProviderToken}, nil
	}
	if !session.Valid() || session.User.Email == "" {
		return Result{}, fmt.Errorf("[credentials Persist] %w", apperrors.ErrMissingIdentity)
	}

	expiresAt := p.ExpiresAt(session.ProviderTokenExpiry)
	conn := connections.GmailConnection{
		UserID:                 session.User.ID,
		Email:                  session.User.Email,
		ProviderAccessToken:    session.ProviderAccessToken,
		ProviderRefreshToken:   session.ProviderRefreshToken,
		ProviderTokenExpiresAt: &expiresAt,
	}
	if err := p.repo.Upsert(ctx, conn); err != nil {
		if !apperrors.Is(err, apperrors.ErrPersistence) {
			err = fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
		}
		return Result{}, fmt.Errorf("[credentials Persist] %w", err)
	}

	log.Info().Str("user_id", conn.UserID).Str("email", conn.Email).
		Time("expires_at", expiresAt).Bool("refresh_token", conn.ProviderRefreshToken != nil).
		Msg("mailbox credential stored")
	return Result{Outcome: OutcomeStored, Connection: &conn}, nil
}

// ExpiresAt computes the stamp stored with a provider token. providerExpiry
// is the zero time when the provider did not report one.
func (p *Persister) ExpiresAt(providerExpiry time.Time) time.Time {
	expiresAt := NowTimeFunc().UTC().Add(p.validity)
	if providerExpiry.IsZero() {
		return expiresAt
	}
	if reported := providerExpiry.UTC().Add(-p.skew); reported.Before(expiresAt) {
		return reported
	}
	return expiresAt
}
