package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/agenda-api/internal/apperror"
	"github.com/sakif/agenda-api/internal/repository"
)

var _ repository.SessionRepository = (*DB)(nil)

// Timestamps are stored as Unix milliseconds so comparisons happen in SQL
// without any date parsing.

// SaveSession inserts the row or replaces data and expiry of an existing one.
func (db *DB) SaveSession(ctx context.Context, rec *repository.SessionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("sqlite: saving session: empty id")
	}
	now := time.Now().UnixMilli()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, data, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     data       = excluded.data,
		     expires_at = excluded.expires_at,
		     updated_at = excluded.updated_at`,
		rec.ID,
		rec.Data,
		rec.ExpiresAt.UnixMilli(),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving session: %w", err)
	}
	return nil
}

// GetSession returns the row for id if it has not expired at now.
func (db *DB) GetSession(ctx context.Context, id string, now time.Time) (*repository.SessionRecord, error) {
	var (
		rec       repository.SessionRecord
		expiresAt int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, data, expires_at FROM sessions WHERE id = ? AND expires_at > ?`,
		id, now.UnixMilli(),
	).Scan(&rec.ID, &rec.Data, &expiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading session: %w", err)
	}

	rec.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	return &rec, nil
}

// DeleteSession removes the row. Deleting an unknown id is not an error.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions purges rows that expired at or before now.
func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
