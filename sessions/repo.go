package sessions

import "time"

// Repo stores sessions keyed by the opaque ID held in the session cookie.
type Repo interface {
	Upsert(session *Session) error
	Get(sessionID string) (*Session, error)
	Delete(sessionID string) error

	// DeleteExpired removes sessions that expired before now and returns how many went.
	DeleteExpired(now time.Time) (int, error)
}
