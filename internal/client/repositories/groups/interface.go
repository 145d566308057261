package groups

import (
	"context"
	"time"

	"github.com/antong314/dayly/internal/client/models"
)

// Repository describes persistence for the user's groups.
type Repository interface {
	// CreateOrUpdate upserts a group by id.
	CreateOrUpdate(ctx context.Context, group *models.Group) error

	// GetByID returns a group, common.ErrNotFound when missing.
	GetByID(ctx context.Context, id string) (*models.Group, error)

	// List returns all known groups ordered by name.
	List(ctx context.Context) ([]*models.Group, error)

	// SetLastContentAt bumps the derived newest-content timestamp.
	SetLastContentAt(ctx context.Context, id string, at time.Time) error
}
