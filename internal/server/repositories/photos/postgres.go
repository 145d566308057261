package photos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antong314/dayly/internal/common"
	"github.com/antong314/dayly/internal/dbx"
	"github.com/antong314/dayly/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Photo) (bool, error) {
	query := `INSERT INTO photos (id, group_id, sender_id, storage_key, size_bytes, day, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.GroupID, p.SenderID, p.StorageKey, p.SizeBytes, p.Day, p.CreatedAt.UTC(), p.ExpiresAt.UTC())
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	query := `SELECT id, group_id, sender_id, storage_key, size_bytes, day, created_at, expires_at
		 FROM photos WHERE id = $1`

	p := &models.Photo{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.GroupID, &p.SenderID, &p.StorageKey, &p.SizeBytes, &p.Day, &p.CreatedAt, &p.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListByGroupSince(ctx context.Context, groupID string, since time.Time) ([]*models.Photo, error) {
	query := `SELECT id, group_id, sender_id, storage_key, size_bytes, day, created_at, expires_at
		 FROM photos
		 WHERE group_id = $1 AND created_at > $2
		 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, groupID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return collect(rows)
}

func (r *PostgresRepository) CountOnDay(ctx context.Context, groupID, day string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM photos WHERE group_id = $1 AND day = $2`, groupID, day).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.Photo, error) {
	query := `SELECT id, group_id, sender_id, storage_key, size_bytes, day, created_at, expires_at
		 FROM photos WHERE expires_at <= $1`

	rows, err := r.db.QueryContext(ctx, query, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return collect(rows)
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM photos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func collect(rows *sql.Rows) ([]*models.Photo, error) {
	var result []*models.Photo
	for rows.Next() {
		p := &models.Photo{}
		if err := rows.Scan(&p.ID, &p.GroupID, &p.SenderID, &p.StorageKey,
			&p.SizeBytes, &p.Day, &p.CreatedAt, &p.ExpiresAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
