package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/gmail-connect/connections"
	"github.com/jrsteele09/gmail-connect/internal/store"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteMigrates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "connections.db")

	db, err := store.Open(ctx, "sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.Equal(t, connections.DialectSQLite, db.Dialect)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gmail_connections`).Scan(&count))
	require.Zero(t, count)

	// Re-opening applies nothing new and keeps the schema
	again, err := store.Open(ctx, "sqlite", path)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := store.Open(context.Background(), "mysql", "dsn")
	require.ErrorContains(t, err, "unsupported driver")
}
