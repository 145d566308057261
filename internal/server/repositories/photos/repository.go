package photos

import (
	"context"
	"time"

	"github.com/antong314/dayly/internal/server/models"
)

// Repository persists photo rows.
type Repository interface {
	// Create inserts the photo unless the id already exists. Returns true
	// when a row was inserted; re-confirming an upload is a no-op.
	Create(ctx context.Context, p *models.Photo) (bool, error)

	// GetByID returns the photo, common.ErrNotFound when missing.
	GetByID(ctx context.Context, id string) (*models.Photo, error)

	// ListByGroupSince returns the group's photos created after the given
	// instant, newest first.
	ListByGroupSince(ctx context.Context, groupID string, since time.Time) ([]*models.Photo, error)

	// CountOnDay returns how many photos the group received for the given
	// sender-local day.
	CountOnDay(ctx context.Context, groupID, day string) (int, error)

	// ListExpired returns photos whose expiry has passed.
	ListExpired(ctx context.Context, now time.Time) ([]*models.Photo, error)

	// DeleteByID removes the row.
	DeleteByID(ctx context.Context, id string) error
}
