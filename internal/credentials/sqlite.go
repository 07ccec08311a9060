package credentials

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStore keeps the token pair as rows of the credentials table (see shared migrations).
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a SQLiteStore over a migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Credential, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM credentials WHERE key IN (?, ?)`, AccessTokenKey, RefreshTokenKey)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	var c Credential
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Credential{}, fmt.Errorf("failed to scan credential: %w", err)
		}
		switch key {
		case AccessTokenKey:
			c.AccessToken = value
		case RefreshTokenKey:
			c.RefreshToken = value
		}
	}
	if err := rows.Err(); err != nil {
		return Credential{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	if c.IsZero() {
		return Credential{}, ErrNotFound
	}
	return c, nil
}

func (s *SQLiteStore) Save(ctx context.Context, c Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsert(ctx, tx, AccessTokenKey, c.AccessToken); err != nil {
		return err
	}
	if err := upsert(ctx, tx, RefreshTokenKey, c.RefreshToken); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) SaveAccessToken(ctx context.Context, token string) error {
	return upsert(ctx, s.db, AccessTokenKey, token)
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE key IN (?, ?)`, AccessTokenKey, RefreshTokenKey); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, key, value string) error {
	query := `
		INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}
