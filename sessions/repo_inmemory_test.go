package sessions_test

import (
	"testing"
	"time"

	apperrors "github.com/jrsteele09/gmail-connect/internal/errors"
	"github.com/jrsteele09/gmail-connect/internal/utils"
	"github.com/jrsteele09/gmail-connect/sessions"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo_UpsertGetDelete(t *testing.T) {
	repo := sessions.NewInMemoryRepo()

	s := &sessions.Session{
		ID:                   "s1",
		AccessToken:          "at",
		ProviderAccessToken:  "ptok",
		ProviderRefreshToken: utils.Ptr("prt"),
		User:                 sessions.User{ID: "u1", Email: "a@x.com"},
	}
	require.NoError(t, repo.Upsert(s))

	// Mutating the caller's copy must not leak into the store
	*s.ProviderRefreshToken = "changed"
	s.AccessToken = "changed"

	got, err := repo.Get("s1")
	require.NoError(t, err)
	require.Equal(t, "at", got.AccessToken)
	require.Equal(t, "prt", utils.Value(got.ProviderRefreshToken))

	require.NoError(t, repo.Delete("s1"))
	_, err = repo.Get("s1")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	require.NoError(t, repo.Delete("s1"))
}

func TestInMemoryRepo_Validation(t *testing.T) {
	repo := sessions.NewInMemoryRepo()
	require.Error(t, repo.Upsert(nil))
	require.Error(t, repo.Upsert(&sessions.Session{}))

	_, err := repo.Get("")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestInMemoryRepo_DeleteExpired(t *testing.T) {
	repo := sessions.NewInMemoryRepo()
	now := time.Now()

	require.NoError(t, repo.Upsert(&sessions.Session{ID: "old", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, repo.Upsert(&sessions.Session{ID: "new", ExpiresAt: now.Add(time.Hour)}))

	removed, err := repo.DeleteExpired(now)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = repo.Get("new")
	require.NoError(t, err)
}

func TestSession_Predicates(t *testing.T) {
	var nilSession *sessions.Session
	require.False(t, nilSession.Valid())
	require.False(t, nilSession.HasProviderToken())

	s := &sessions.Session{User: sessions.User{Email: "a@x.com"}}
	require.False(t, s.Valid(), "a session without user id is invalid")

	s.User.ID = "u1"
	require.True(t, s.Valid())
	require.False(t, s.HasProviderToken())

	s.ProviderAccessToken = "ptok"
	require.True(t, s.HasProviderToken())
}
