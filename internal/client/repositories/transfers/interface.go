package transfers

import (
	"context"

	"github.com/antong314/dayly/internal/client/models"
)

// Repository persists in-flight transfer descriptors so uploads can be
// reassociated with their items after a process relaunch.
type Repository interface {
	// Upsert saves the descriptor, keyed by item id.
	Upsert(ctx context.Context, t *models.TransferState) error

	// Get returns the descriptor, common.ErrNotFound when absent.
	Get(ctx context.Context, itemID string) (*models.TransferState, error)

	// UpdateProgress records bytes sent so far.
	UpdateProgress(ctx context.Context, itemID string, bytesSent int64) error

	// Delete removes the descriptor once the transfer reached a terminal
	// outcome.
	Delete(ctx context.Context, itemID string) error

	// List returns all persisted descriptors, oldest first.
	List(ctx context.Context) ([]*models.TransferState, error)
}
