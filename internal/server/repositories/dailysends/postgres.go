package dailysends

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/antong314/dayly/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, userID, groupID, sentOn string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO daily_sends (user_id, group_id, sent_on) VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`, userID, groupID, sentOn)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, userID, groupID, sentOn string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM daily_sends WHERE user_id = $1 AND group_id = $2 AND sent_on = $3`,
		userID, groupID, sentOn).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}
