package cachemeta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antong314/dayly/internal/client/models"
	"github.com/antong314/dayly/internal/common"
	"github.com/antong314/dayly/internal/dbx"
)

const timeFormat = time.RFC3339Nano

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, e *models.CacheEntry) error {
	query := `INSERT INTO cache_entries (item_id, size_bytes, cached_at)
			VALUES (?, ?, ?)
			ON CONFLICT(item_id) DO UPDATE SET size_bytes = excluded.size_bytes,
				cached_at = excluded.cached_at`
	_, err := r.db.ExecContext(ctx, query, e.ItemID, e.SizeBytes, e.CachedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, itemID string) (*models.CacheEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT item_id, size_bytes, cached_at FROM cache_entries WHERE item_id = ?`, itemID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, itemID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.CacheEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT item_id, size_bytes, cached_at FROM cache_entries ORDER BY cached_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select cache entries: %w", err)
	}
	defer rows.Close()

	var result []*models.CacheEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size_bytes), 0) FROM cache_entries`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum cache entries: %w", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.CacheEntry, error) {
	var (
		e      models.CacheEntry
		cached string
	)
	if err := row.Scan(&e.ItemID, &e.SizeBytes, &cached); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeFormat, cached)
	if err != nil {
		return nil, fmt.Errorf("bad cached_at: %w", err)
	}
	e.CachedAt = t
	return &e, nil
}
