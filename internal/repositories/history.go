package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotctl/internal/models"
	"github.com/desertthunder/spotctl/internal/player"
	"github.com/desertthunder/spotctl/internal/shared"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// HistoryRepository stores [models.PlayRecord] rows in the play_history table.
type HistoryRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.PlayRecord] = (*HistoryRepository)(nil)

// NewHistoryRepository creates a HistoryRepository over a migrated database.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// RecordFromItem converts an API history item into a [models.PlayRecord].
func RecordFromItem(item player.PlayHistoryItem) *models.PlayRecord {
	r := &models.PlayRecord{
		TrackID:    item.Track.ID,
		TrackName:  item.Track.Name,
		Artists:    item.Track.ArtistNames(),
		Album:      item.Track.Album.Name,
		DurationMS: item.Track.DurationMS,
		PlayedAt:   item.PlayedAt,
	}
	if item.Context != nil {
		r.ContextURI = item.Context.URI
	}
	return r
}

// SaveAll inserts records in one transaction, skipping plays already stored.
// It returns how many rows were added.
func (r *HistoryRepository) SaveAll(ctx context.Context, records []*models.PlayRecord) (int, error) {
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return 0, fmt.Errorf("validation failed: %w", err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO play_history (id, track_id, track_name, artists, album, duration_ms, context_uri, played_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (track_id, played_at) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := 0
	for _, rec := range records {
		id := shared.GenerateID()
		res, err := stmt.ExecContext(ctx,
			id,
			rec.TrackID,
			rec.TrackName,
			rec.Artists,
			rec.Album,
			rec.DurationMS,
			rec.ContextURI,
			rec.PlayedAt.UTC(),
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert play record: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get affected rows: %w", err)
		}
		if n > 0 {
			rec.RecordID = id
			rec.Created = now
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit play history: %w", err)
	}
	return inserted, nil
}

// Get retrieves a record by id.
func (r *HistoryRepository) Get(ctx context.Context, id string) (*models.PlayRecord, error) {
	row := r.db.QueryRowContext(ctx, selectHistory+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// List returns up to limit records, newest play first. A limit of 0 returns everything.
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]*models.PlayRecord, error) {
	query := selectHistory + ` ORDER BY played_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query play history: %w", err)
	}
	defer rows.Close()

	var records []*models.PlayRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating play history: %w", err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (r *HistoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM play_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count play history: %w", err)
	}
	return n, nil
}

// Prune deletes records played before cutoff and returns how many were removed.
func (r *HistoryRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM play_history WHERE played_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune play history: %w", err)
	}
	return res.RowsAffected()
}

const selectHistory = `
	SELECT id, track_id, track_name, artists, album, duration_ms, context_uri, played_at, created_at
	FROM play_history`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.PlayRecord, error) {
	var rec models.PlayRecord
	err := s.Scan(
		&rec.RecordID,
		&rec.TrackID,
		&rec.TrackName,
		&rec.Artists,
		&rec.Album,
		&rec.DurationMS,
		&rec.ContextURI,
		&rec.PlayedAt,
		&rec.Created,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan play record: %w", err)
	}
	return &rec, nil
}
