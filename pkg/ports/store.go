package ports

import (
	"context"

	"github.com/aretw0/reel/pkg/domain"
)

// RunStore defines the interface for persisting run records.
type RunStore interface {
	// Save persists the record, replacing any previous record with the same ID.
	Save(ctx context.Context, record domain.RunRecord) error

	// Load retrieves a record.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, id string) (domain.RunRecord, error)

	// List returns up to limit records, most recently started first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// Delete removes a record. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
}
