package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func TestSetGetDelete(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	got, err := r.Get(ctx, KeyLastSyncAt)
	require.NoError(t, err)
	assert.Nil(t, got, "missing key returns nil, not an error")

	require.NoError(t, r.Set(ctx, KeyLastSyncAt, []byte("2026-02-01T09:00:00Z")))
	require.NoError(t, r.Set(ctx, KeyLastSyncAt, []byte("2026-02-01T10:00:00Z")))

	got, err = r.Get(ctx, KeyLastSyncAt)
	require.NoError(t, err)
	assert.Equal(t, []byte("2026-02-01T10:00:00Z"), got)

	require.NoError(t, r.Delete(ctx, KeyLastSyncAt))
	got, err = r.Get(ctx, KeyLastSyncAt)
	require.NoError(t, err)
	assert.Nil(t, got)
}
