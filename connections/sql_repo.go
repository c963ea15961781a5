package connections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/gmail-connect/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Dialect selects placeholder syntax for the SQL repo.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var _ Repo = (*SQLRepo)(nil)

// SQLRepo persists connections through database/sql. Both supported
// dialects implement INSERT ... ON CONFLICT, so the upsert is one statement.
type SQLRepo struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLRepo(db *sql.DB, dialect Dialect) *SQLRepo {
	return &SQLRepo{db: db, dialect: dialect}
}

// An absent refresh token keeps the stored one: providers only re-issue it on
// full consent.
const upsertQuery = `
	INSERT INTO gmail_connections (
		id, user_id, email,
		provider_access_token, provider_refresh_token, provider_token_expires_at,
		created_at, updated_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (user_id, email) DO UPDATE SET
		provider_access_token     = excluded.provider_access_token,
		provider_refresh_token    = COALESCE(excluded.provider_refresh_token, gmail_connections.provider_refresh_token),
		provider_token_expires_at = excluded.provider_token_expires_at,
		updated_at                = excluded.updated_at
`

const selectColumns = `
	SELECT id, user_id, email,
		provider_access_token, provider_refresh_token, provider_token_expires_at,
		history_id, watch_expiration, created_at, updated_at
	FROM gmail_connections
`

func (r *SQLRepo) Upsert(ctx context.Context, conn GmailConnection) error {
	if conn.UserID == "" || conn.Email == "" {
		return fmt.Errorf("[connections Upsert] user id and email are required")
	}
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}
	now := NowTimeFunc().UTC()

	_, err := r.db.ExecContext(ctx, r.rebind(upsertQuery),
		conn.ID, conn.UserID, conn.Email,
		nullString(&conn.ProviderAccessToken), nullString(conn.ProviderRefreshToken), nullTime(conn.ProviderTokenExpiresAt),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("[connections Upsert] %w: %v", apperrors.ErrPersistence, err)
	}
	return nil
}

func (r *SQLRepo) GetByEmail(ctx context.Context, email string) (*GmailConnection, error) {
	query := selectColumns + ` WHERE email = ? ORDER BY updated_at DESC LIMIT 1`
	conn, err := scanConnection(r.db.QueryRowContext(ctx, r.rebind(query), email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[connections GetByEmail] db error: %w", err)
	}
	return conn, nil
}

func (r *SQLRepo) ListByUser(ctx context.Context, userID string) ([]GmailConnection, error) {
	query := selectColumns + ` WHERE user_id = ? ORDER BY email`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID)
	if err != nil {
		return nil, fmt.Errorf("[connections ListByUser] db error: %w", err)
	}
	defer rows.Close()

	var result []GmailConnection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("[connections ListByUser] scan: %w", err)
		}
		result = append(result, *conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[connections ListByUser] rows: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*GmailConnection, error) {
	var (
		conn            GmailConnection
		accessToken     sql.NullString
		refreshToken    sql.NullString
		expiresAt       sql.NullTime
		historyID       sql.NullString
		watchExpiration sql.NullTime
	)
	if err := row.Scan(
		&conn.ID, &conn.UserID, &conn.Email,
		&accessToken, &refreshToken, &expiresAt,
		&historyID, &watchExpiration, &conn.CreatedAt, &conn.UpdatedAt,
	); err != nil {
		return nil, err
	}
	conn.ProviderAccessToken = accessToken.String
	if refreshToken.Valid {
		conn.ProviderRefreshToken = &refreshToken.String
	}
	if expiresAt.Valid {
		conn.ProviderTokenExpiresAt = &expiresAt.Time
	}
	if historyID.Valid {
		conn.HistoryID = &historyID.String
	}
	if watchExpiration.Valid {
		conn.WatchExpiration = &watchExpiration.Time
	}
	return &conn, nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (r *SQLRepo) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
