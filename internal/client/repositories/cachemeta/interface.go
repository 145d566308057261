package cachemeta

import (
	"context"

	"github.com/antong314/dayly/internal/client/models"
)

// Repository persists disk-tier cache metadata rows.
type Repository interface {
	// Upsert records (or refreshes) the metadata row for a cached payload.
	Upsert(ctx context.Context, e *models.CacheEntry) error

	// Get returns the entry for an item, common.ErrNotFound when absent.
	Get(ctx context.Context, itemID string) (*models.CacheEntry, error)

	// Delete removes the metadata row.
	Delete(ctx context.Context, itemID string) error

	// List returns all entries, oldest first.
	List(ctx context.Context) ([]*models.CacheEntry, error)

	// TotalBytes returns the summed payload size of the disk tier.
	TotalBytes(ctx context.Context) (int64, error)
}
