package history

import (
	"context"

	"github.com/mkrupp/memeforge/internal/domain"
)

// Repository defines the interface for export history persistence.
type Repository interface {
	// RecordExport appends one export attempt to the history.
	RecordExport(ctx context.Context, record domain.ExportRecord) error

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.ExportRecord, error)

	// Stats aggregates counters over the whole history.
	Stats(ctx context.Context) (domain.ExportStats, error)

	// Prune deletes all but the newest keep records and returns how many
	// were removed.
	Prune(ctx context.Context, keep int) (int64, error)

	// Close releases any resources held by the repository.
	// Returns an error if cleanup fails.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)
