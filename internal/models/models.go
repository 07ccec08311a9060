package models

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Model is implemented by every persisted entity.
type Model interface {
	ID() string
	CreatedAt() time.Time
	Validate() error
}

// Repository is the read side shared by all repositories.
type Repository[T Model] interface {
	Get(ctx context.Context, id string) (T, error)
	List(ctx context.Context, limit int) ([]T, error)
	Count(ctx context.Context) (int, error)
}

// PlayRecord is a cached recently played item.
type PlayRecord struct {
	RecordID   string    `json:"id"`
	TrackID    string    `json:"track_id" validate:"required"`
	TrackName  string    `json:"track_name" validate:"required"`
	Artists    string    `json:"artists"`
	Album      string    `json:"album"`
	DurationMS int       `json:"duration_ms" validate:"gte=0"`
	ContextURI string    `json:"context_uri,omitempty"`
	PlayedAt   time.Time `json:"played_at" validate:"required"`
	Created    time.Time `json:"created_at"`
}

var _ Model = (*PlayRecord)(nil)

func (p *PlayRecord) ID() string           { return p.RecordID }
func (p *PlayRecord) CreatedAt() time.Time { return p.Created }

// Validate checks required fields.
func (p *PlayRecord) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid play record: %w", err)
	}
	return nil
}
