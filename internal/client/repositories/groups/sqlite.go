package groups

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
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

func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, g *models.Group) error {
	query := `INSERT INTO groups (id, name, member_ids, last_content_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name,
				member_ids = excluded.member_ids,
				last_content_at = COALESCE(excluded.last_content_at, groups.last_content_at)`
	_, err := r.db.ExecContext(ctx, query, g.ID, g.Name, strings.Join(g.MemberIDs, ","), formatNullable(g.LastContentAt))
	if err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Group, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, member_ids, last_content_at FROM groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Group, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, member_ids, last_content_at FROM groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to select groups: %w", err)
	}
	defer rows.Close()

	var result []*models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) SetLastContentAt(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE groups SET last_content_at = ? WHERE id = ? AND (last_content_at IS NULL OR last_content_at < ?)`,
		at.UTC().Format(timeFormat), id, at.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	// 0 rows affected just means at was not newer; not an error
	_, err = res.RowsAffected()
	return err
}

func formatNullable(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	var (
		g       models.Group
		members string
		last    sql.NullString
	)
	if err := row.Scan(&g.ID, &g.Name, &members, &last); err != nil {
		return nil, err
	}
	if members != "" {
		g.MemberIDs = strings.Split(members, ",")
	}
	if last.Valid {
		t, err := time.Parse(timeFormat, last.String)
		if err != nil {
			return nil, fmt.Errorf("bad last_content_at: %w", err)
		}
		g.LastContentAt = t
	}
	return &g, nil
}
