package quotamarks

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

func (r *SQLiteRepository) Insert(ctx context.Context, m *models.QuotaMarker) (bool, error) {
	query := `INSERT INTO quota_marks (user_id, group_id, day, confirmed, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id, group_id, day) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, m.UserID, m.GroupID, m.Day, m.Confirmed, m.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		return false, fmt.Errorf("failed to insert quota marker: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, userID, groupID, day string) (*models.QuotaMarker, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT user_id, group_id, day, confirmed, created_at FROM quota_marks
		WHERE user_id = ? AND group_id = ? AND day = ?`, userID, groupID, day)
	m, err := scanMarker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quota marker: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) Confirm(ctx context.Context, userID, groupID, day string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE quota_marks SET confirmed = 1 WHERE user_id = ? AND group_id = ? AND day = ?`,
		userID, groupID, day)
	if err != nil {
		return fmt.Errorf("failed to confirm quota marker: %w", err)
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

func (r *SQLiteRepository) Delete(ctx context.Context, userID, groupID, day string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM quota_marks WHERE user_id = ? AND group_id = ? AND day = ?`, userID, groupID, day)
	if err != nil {
		return fmt.Errorf("failed to delete quota marker: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListUnconfirmed(ctx context.Context) ([]*models.QuotaMarker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, group_id, day, confirmed, created_at FROM quota_marks WHERE confirmed = 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to select quota markers: %w", err)
	}
	defer rows.Close()

	var result []*models.QuotaMarker
	for rows.Next() {
		m, err := scanMarker(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarker(row rowScanner) (*models.QuotaMarker, error) {
	var (
		m       models.QuotaMarker
		created string
	)
	if err := row.Scan(&m.UserID, &m.GroupID, &m.Day, &m.Confirmed, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeFormat, created)
	if err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	m.CreatedAt = t
	return &m, nil
}
