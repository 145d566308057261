// Package repomanager vends repository implementations bound to a DBTX and
// owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/antong314/dayly/internal/dbx"
	"github.com/antong314/dayly/internal/server/repositories/dailysends"
	"github.com/antong314/dayly/internal/server/repositories/groups"
	"github.com/antong314/dayly/internal/server/repositories/photos"
)

// RepositoryManager hands out repositories bound to the given DBTX, so a
// service can run several of them inside a single transaction.
type RepositoryManager interface {
	Photos(db dbx.DBTX) photos.Repository
	Groups(db dbx.DBTX) groups.Repository
	DailySends(db dbx.DBTX) dailysends.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
