package connections

import "context"

// Repo stores GmailConnection rows, unique on (UserID, Email).
type Repo interface {
	// Upsert inserts the connection or, when (UserID, Email) already exists,
	// updates its token fields in place. It is a single atomic write.
	Upsert(ctx context.Context, conn GmailConnection) error

	// GetByEmail resolves a mailbox to its connection, the lookup the ingestion
	// worker keys on. Token introspection uses it to report mailbox_connected.
	// Returns errors.ErrNotFound when no row exists.
	GetByEmail(ctx context.Context, email string) (*GmailConnection, error)
	ListByUser(ctx context.Context, userID string) ([]GmailConnection, error)
}
