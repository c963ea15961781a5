package repofakes

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/gmail-connect/connections"
	apperrors "github.com/jrsteele09/gmail-connect/internal/errors"
)

var _ connections.Repo = (*FakeConnectionRepo)(nil)

type connectionKey struct {
	userID string
	email  string
}

// FakeConnectionRepo is an in-memory connections.Repo with the same
// conflict semantics as the SQL repo. Err, when set, fails every call.
type FakeConnectionRepo struct {
	lock        sync.RWMutex
	rows        map[connectionKey]connections.GmailConnection
	UpsertCalls []connections.GmailConnection
	Err         error
}

func NewFakeConnectionRepo() *FakeConnectionRepo {
	return &FakeConnectionRepo{
		rows: make(map[connectionKey]connections.GmailConnection),
	}
}

func (r *FakeConnectionRepo) Upsert(_ context.Context, conn connections.GmailConnection) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.UpsertCalls = append(r.UpsertCalls, conn)
	if r.Err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, r.Err)
	}

	key := connectionKey{userID: conn.UserID, email: conn.Email}
	now := time.Now()
	existing, ok := r.rows[key]
	if !ok {
		if conn.ID == "" {
			conn.ID = uuid.New().String()
		}
		conn.CreatedAt = now
		conn.UpdatedAt = now
		r.rows[key] = conn
		return nil
	}

	existing.ProviderAccessToken = conn.ProviderAccessToken
	if conn.ProviderRefreshToken != nil {
		existing.ProviderRefreshToken = conn.ProviderRefreshToken
	}
	existing.ProviderTokenExpiresAt = conn.ProviderTokenExpiresAt
	existing.UpdatedAt = now
	r.rows[key] = existing
	return nil
}

func (r *FakeConnectionRepo) GetByEmail(_ context.Context, email string) (*connections.GmailConnection, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}
	for key, conn := range r.rows {
		if key.email == email {
			c := conn
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *FakeConnectionRepo) ListByUser(_ context.Context, userID string) ([]connections.GmailConnection, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}
	var result []connections.GmailConnection
	for key, conn := range r.rows {
		if key.userID == userID {
			result = append(result, conn)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return result, nil
}

// Rows returns a snapshot of every stored row.
func (r *FakeConnectionRepo) Rows() []connections.GmailConnection {
	r.lock.RLock()
	defer r.lock.RUnlock()

	result := make([]connections.GmailConnection, 0, len(r.rows))
	for _, conn := range r.rows {
		result = append(result, conn)
	}
	return result
}
