package items

import (
	"context"
	"time"

	"github.com/antong314/dayly/internal/client/models"
)

// Repository describes persistence for content items. Implementations are
// backed by the local sqlite database.
type Repository interface {
	// Create inserts a new locally captured item.
	Create(ctx context.Context, item *models.ContentItem) error

	// InsertIfAbsent inserts a remote-origin item unless a row with the
	// same id already exists. Returns true when a row was inserted. This
	// is the idempotence point for concurrent sync passes.
	InsertIfAbsent(ctx context.Context, item *models.ContentItem) (bool, error)

	// GetByID returns an item by id, common.ErrNotFound when missing.
	GetByID(ctx context.Context, id string) (*models.ContentItem, error)

	// ListVisible returns the group's items that have not expired at the
	// given instant, newest first.
	ListVisible(ctx context.Context, groupID string, now time.Time) ([]*models.ContentItem, error)

	// ListIDs returns all known item ids for a group, expired or not.
	ListIDs(ctx context.Context, groupID string) ([]string, error)

	// ListByState returns all items in the given lifecycle state.
	ListByState(ctx context.Context, state models.ItemState) ([]*models.ContentItem, error)

	// ListExpired returns every item whose expiry has passed.
	ListExpired(ctx context.Context, now time.Time) ([]*models.ContentItem, error)

	// SetState transitions an item's lifecycle state.
	SetState(ctx context.Context, id string, state models.ItemState) error

	// MarkUploaded records a successful upload along with the remote key.
	MarkUploaded(ctx context.Context, id string, remoteKey string) error

	// DeleteByID removes the row. Part of the expiry sweep.
	DeleteByID(ctx context.Context, id string) error
}
