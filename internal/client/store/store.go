// Package store opens the local sqlite database, applies migrations and
// hands out the repository set. A failure here is fatal to the process:
// there is no degraded mode without the local store.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/antong314/dayly/internal/client/migrations"
	"github.com/antong314/dayly/internal/client/repositories/cachemeta"
	"github.com/antong314/dayly/internal/client/repositories/groups"
	"github.com/antong314/dayly/internal/client/repositories/items"
	"github.com/antong314/dayly/internal/client/repositories/metadata"
	"github.com/antong314/dayly/internal/client/repositories/quotamarks"
	"github.com/antong314/dayly/internal/client/repositories/transfers"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Store bundles the opened database with its repositories. All writers
// share the single *sql.DB, so sqlite serializes mutations of the same
// logical entity.
type Store struct {
	DB         *sql.DB
	Items      items.Repository
	Groups     groups.Repository
	QuotaMarks quotamarks.Repository
	CacheMeta  cachemeta.Repository
	Transfers  transfers.Repository
	Metadata   metadata.Repository
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the database at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	// A single connection keeps sqlite writes strictly serialized and
	// avoids SQLITE_BUSY under concurrent queue/sync activity.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	return &Store{
		DB:         db,
		Items:      items.NewSQLiteRepository(db),
		Groups:     groups.NewSQLiteRepository(db),
		QuotaMarks: quotamarks.NewSQLiteRepository(db),
		CacheMeta:  cachemeta.NewSQLiteRepository(db),
		Transfers:  transfers.NewSQLiteRepository(db),
		Metadata:   metadata.NewSQLiteRepository(db),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}
