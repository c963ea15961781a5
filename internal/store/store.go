// Package store opens the connection database and applies its migrations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/gmail-connect/connections"
	"github.com/jrsteele09/gmail-connect/internal/config"
	"github.com/jrsteele09/gmail-connect/internal/store/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// DB is a migrated database handle and the dialect repositories should use.
type DB struct {
	*sql.DB
	Dialect connections.Dialect
}

// Open opens driver/dsn, pings it and runs pending migrations.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var (
		sqlDB   *sql.DB
		dialect goose.Dialect
		fsys    fs.FS
		err     error
		d       connections.Dialect
	)

	switch driver {
	case config.DriverPostgres:
		sqlDB, err = sql.Open("pgx", dsn)
		dialect, d = goose.DialectPostgres, connections.DialectPostgres
		fsys, _ = fs.Sub(migrations.Postgres, "postgres")
	case config.DriverSQLite:
		sqlDB, err = openSQLite(dsn)
		dialect, d = goose.DialectSQLite3, connections.DialectSQLite
		fsys, _ = fs.Sub(migrations.SQLite, "sqlite")
	default:
		return nil, fmt.Errorf("[store Open] unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("[store Open] open %s: %w", driver, err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("[store Open] ping %s: %w", driver, err)
	}

	if err := migrate(ctx, sqlDB, dialect, fsys); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("[store Open] %w", err)
	}

	return &DB{DB: sqlDB, Dialect: d}, nil
}

func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, fsys fs.FS) error {
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	for _, r := range results {
		log.Info().Str("migration", r.Source.Path).Dur("took", r.Duration).Msg("applied migration")
	}
	return nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(filepath.Clean(path)), 0o755); err != nil {
			return nil, fmt.Errorf("create data folder: %w", err)
		}
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)
	return db, nil
}
