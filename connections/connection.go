package connections

import "time"

// GmailConnection is the durable delegated credential for one
// (user, mailbox) pair. The ingestion worker reads it to act on the user's
// behalf; HistoryID and WatchExpiration belong to that worker.
type GmailConnection struct {
	ID     string
	UserID string
	Email  string

	ProviderAccessToken    string
	ProviderRefreshToken   *string    // nil when the provider did not re-issue one
	ProviderTokenExpiresAt *time.Time // computed at persist time

	HistoryID       *string
	WatchExpiration *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
