package transfers

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

func (r *SQLiteRepository) Upsert(ctx context.Context, t *models.TransferState) error {
	query := `INSERT INTO transfers (item_id, upload_url, remote_key, local_path, bytes_sent, total_bytes, started_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(item_id) DO UPDATE SET upload_url = excluded.upload_url,
				remote_key = excluded.remote_key,
				local_path = excluded.local_path,
				bytes_sent = excluded.bytes_sent,
				total_bytes = excluded.total_bytes,
				started_at = excluded.started_at`
	_, err := r.db.ExecContext(ctx, query,
		t.ItemID, t.UploadURL, t.RemoteKey, t.LocalPath, t.BytesSent, t.TotalBytes, t.StartedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to upsert transfer: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, itemID string) (*models.TransferState, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT item_id, upload_url, remote_key, local_path, bytes_sent, total_bytes, started_at
		FROM transfers WHERE item_id = ?`, itemID)
	t, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) UpdateProgress(ctx context.Context, itemID string, bytesSent int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE transfers SET bytes_sent = ? WHERE item_id = ?`, bytesSent, itemID)
	if err != nil {
		return fmt.Errorf("failed to update transfer progress: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, itemID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transfers WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete transfer: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.TransferState, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT item_id, upload_url, remote_key, local_path, bytes_sent, total_bytes, started_at
		FROM transfers ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select transfers: %w", err)
	}
	defer rows.Close()

	var result []*models.TransferState
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (*models.TransferState, error) {
	var (
		t       models.TransferState
		started string
	)
	err := row.Scan(&t.ItemID, &t.UploadURL, &t.RemoteKey, &t.LocalPath, &t.BytesSent, &t.TotalBytes, &started)
	if err != nil {
		return nil, err
	}
	at, err := time.Parse(timeFormat, started)
	if err != nil {
		return nil, fmt.Errorf("bad started_at: %w", err)
	}
	t.StartedAt = at
	return &t, nil
}
