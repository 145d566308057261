package groups

import (
	"context"

	"github.com/antong314/dayly/internal/server/models"
)

// Repository persists groups and memberships.
type Repository interface {
	// Create inserts a group.
	Create(ctx context.Context, g *models.Group) error

	// AddMember adds a user to a group; already a member is a no-op.
	AddMember(ctx context.Context, groupID, userID string) error

	// GetByID returns the group without members, common.ErrNotFound when
	// missing.
	GetByID(ctx context.Context, id string) (*models.Group, error)

	// ListForUser returns the groups the user belongs to, without members.
	ListForUser(ctx context.Context, userID string) ([]*models.Group, error)

	// MembersOf returns the group's member ids.
	MembersOf(ctx context.Context, groupID string) ([]string, error)

	// IsMember reports whether the user belongs to the group.
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}
