package quotamarks

import (
	"context"

	"github.com/antong314/dayly/internal/client/models"
)

// Repository persists local daily-send markers. The (user, group, day)
// tuple is the primary key, mirroring the remote uniqueness invariant.
type Repository interface {
	// Insert writes a marker unless one already exists for the tuple.
	// Returns true when a row was inserted, false when it existed.
	Insert(ctx context.Context, m *models.QuotaMarker) (bool, error)

	// Get returns the marker for a tuple, common.ErrNotFound when absent.
	Get(ctx context.Context, userID, groupID, day string) (*models.QuotaMarker, error)

	// Confirm flips an existing marker to the confirmed-remote variant.
	Confirm(ctx context.Context, userID, groupID, day string) error

	// Delete removes a marker (reconciliation releases unconfirmed ones).
	Delete(ctx context.Context, userID, groupID, day string) error

	// ListUnconfirmed returns every marker still in the optimistic state.
	ListUnconfirmed(ctx context.Context) ([]*models.QuotaMarker, error)
}
