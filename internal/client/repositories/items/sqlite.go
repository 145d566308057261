package items

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

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, item *models.ContentItem) error {
	query := `INSERT INTO items (id, group_id, sender_id, local_path, remote_key, size_bytes, created_at, expires_at, state)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.GroupID, item.SenderID, item.LocalPath, item.RemoteKey, item.SizeBytes,
		item.CreatedAt.UTC().Format(timeFormat), item.ExpiresAt.UTC().Format(timeFormat), string(item.State))
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) InsertIfAbsent(ctx context.Context, item *models.ContentItem) (bool, error) {
	query := `INSERT INTO items (id, group_id, sender_id, local_path, remote_key, size_bytes, created_at, expires_at, state)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query,
		item.ID, item.GroupID, item.SenderID, item.LocalPath, item.RemoteKey, item.SizeBytes,
		item.CreatedAt.UTC().Format(timeFormat), item.ExpiresAt.UTC().Format(timeFormat), string(item.State))
	if err != nil {
		return false, fmt.Errorf("failed to upsert item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.ContentItem, error) {
	query := `SELECT id, group_id, sender_id, local_path, remote_key, size_bytes, created_at, expires_at, state
			FROM items WHERE id = ?`
	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) ListVisible(ctx context.Context, groupID string, now time.Time) ([]*models.ContentItem, error) {
	query := `SELECT id, group_id, sender_id, local_path, remote_key, size_bytes, created_at, expires_at, state
			FROM items WHERE group_id = ? AND expires_at > ? ORDER BY created_at DESC`
	return r.list(ctx, query, groupID, now.UTC().Format(timeFormat))
}

func (r *SQLiteRepository) ListIDs(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM items WHERE group_id = ?`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to select item ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) ListByState(ctx context.Context, state models.ItemState) ([]*models.ContentItem, error) {
	query := `SELECT id, group_id, sender_id, local_path, remote_key, size_bytes, created_at, expires_at, state
			FROM items WHERE state = ? ORDER BY created_at`
	return r.list(ctx, query, string(state))
}

func (r *SQLiteRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.ContentItem, error) {
	query := `SELECT id, group_id, sender_id, local_path, remote_key, size_bytes, created_at, expires_at, state
			FROM items WHERE expires_at <= ?`
	return r.list(ctx, query, now.UTC().Format(timeFormat))
}

func (r *SQLiteRepository) SetState(ctx context.Context, id string, state models.ItemState) error {
	res, err := r.db.ExecContext(ctx, `UPDATE items SET state = ? WHERE id = ?`, string(state), id)
	if err != nil {
		return fmt.Errorf("failed to update item state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) MarkUploaded(ctx context.Context, id string, remoteKey string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET state = ?, remote_key = ? WHERE id = ?`,
		string(models.ItemStateUploaded), remoteKey, id)
	if err != nil {
		return fmt.Errorf("failed to mark item uploaded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.ContentItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	var result []*models.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.ContentItem, error) {
	var (
		item    models.ContentItem
		created string
		expires string
		state   string
	)
	err := row.Scan(&item.ID, &item.GroupID, &item.SenderID, &item.LocalPath, &item.RemoteKey,
		&item.SizeBytes, &created, &expires, &state)
	if err != nil {
		return nil, err
	}
	if item.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	if item.ExpiresAt, err = time.Parse(timeFormat, expires); err != nil {
		return nil, fmt.Errorf("bad expires_at: %w", err)
	}
	item.State = models.ItemState(state)
	return &item, nil
}
