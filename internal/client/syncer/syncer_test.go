package syncer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/antong314/dayly/internal/client/api"
	"github.com/antong314/dayly/internal/client/api/apitest"
	"github.com/antong314/dayly/internal/client/cache"
	"github.com/antong314/dayly/internal/client/models"
	"github.com/antong314/dayly/internal/client/quota"
	"github.com/antong314/dayly/internal/client/repositories/metadata"
	"github.com/antong314/dayly/internal/client/store"
	"github.com/antong314/dayly/internal/common"
	"github.com/antong314/dayly/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSyncer(t *testing.T, client api.Client) (*Syncer, *store.Store, *cache.Cache) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "dayly.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := logging.NewDiscard()
	c, err := cache.New(st, filepath.Join(t.TempDir(), "cache"), log, nil)
	require.NoError(t, err)

	session := &api.StaticSession{User: "u1", Token: "t", Loc: time.UTC}
	guard := quota.NewGuard(st, client, session, log)
	return New(st, client, session, c, guard, log), st, c
}

func remoteItem(id, groupID string, createdAt time.Time) *api.RemoteItem {
	return &api.RemoteItem{
		ID:        id,
		GroupID:   groupID,
		SenderID:  "other",
		RemoteKey: "key-" + id,
		SizeBytes: 4,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(common.ContentTTL),
		FetchURL:  "http://payloads/" + id,
	}
}

func TestSyncer_FullPass(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	fake := &apitest.Fake{
		GroupsFn: func(ctx context.Context) ([]*api.RemoteGroup, error) {
			return []*api.RemoteGroup{{ID: "g1", Name: "family", MemberIDs: []string{"u1", "other"}}}, nil
		},
		ListContentFn: func(ctx context.Context, groupID string, since time.Time) ([]*api.RemoteItem, error) {
			return []*api.RemoteItem{remoteItem("r1", groupID, now.Add(-time.Hour))}, nil
		},
		FetchFn: func(ctx context.Context, url string) ([]byte, error) {
			return []byte("data"), nil
		},
	}
	s, st, c := setupSyncer(t, fake)

	require.NoError(t, s.Sync(ctx))

	// group row, item row, cached payload, pass timestamp
	g, err := st.Groups.GetByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "family", g.Name)
	assert.False(t, g.LastContentAt.IsZero())

	item, err := st.Items.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ItemStateUploaded, item.State)
	assert.Equal(t, "key-r1", item.RemoteKey)

	data, err := c.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)

	raw, err := st.Metadata.Get(ctx, metadata.KeyLastSyncAt)
	require.NoError(t, err)
	require.NotNil(t, raw)
	_, err = time.Parse(time.RFC3339Nano, string(raw))
	require.NoError(t, err)
}

func TestSyncer_PassIsIdempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	var fetches atomic.Int32
	fake := &apitest.Fake{
		GroupsFn: func(ctx context.Context) ([]*api.RemoteGroup, error) {
			return []*api.RemoteGroup{{ID: "g1", Name: "family"}}, nil
		},
		ListContentFn: func(ctx context.Context, groupID string, since time.Time) ([]*api.RemoteItem, error) {
			return []*api.RemoteItem{remoteItem("r1", groupID, now.Add(-time.Hour))}, nil
		},
		FetchFn: func(ctx context.Context, url string) ([]byte, error) {
			fetches.Add(1)
			return []byte("data"), nil
		},
	}
	s, st, _ := setupSyncer(t, fake)

	require.NoError(t, s.Sync(ctx))
	require.NoError(t, s.Sync(ctx))

	visible, err := st.Items.ListVisible(ctx, "g1", now)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	// the payload was cached on the first pass and not refetched
	assert.EqualValues(t, 1, fetches.Load())
}

func TestSyncer_SkipsExpiredRemoteItems(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	fake := &apitest.Fake{
		GroupsFn: func(ctx context.Context) ([]*api.RemoteGroup, error) {
			return []*api.RemoteGroup{{ID: "g1", Name: "family"}}, nil
		},
		ListContentFn: func(ctx context.Context, groupID string, since time.Time) ([]*api.RemoteItem, error) {
			return []*api.RemoteItem{
				remoteItem("fresh", groupID, now.Add(-time.Hour)),
				remoteItem("stale", groupID, now.Add(-common.ContentTTL-time.Hour)),
			}, nil
		},
	}
	s, st, _ := setupSyncer(t, fake)

	require.NoError(t, s.Sync(ctx))

	_, err := st.Items.GetByID(ctx, "fresh")
	require.NoError(t, err)
	_, err = st.Items.GetByID(ctx, "stale")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSyncer_GroupFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	fake := &apitest.Fake{
		GroupsFn: func(ctx context.Context) ([]*api.RemoteGroup, error) {
			return []*api.RemoteGroup{{ID: "good", Name: "a"}, {ID: "bad", Name: "b"}}, nil
		},
		ListContentFn: func(ctx context.Context, groupID string, since time.Time) ([]*api.RemoteItem, error) {
			if groupID == "bad" {
				return nil, fmt.Errorf("listing: %w", common.ErrUnavailable)
			}
			return []*api.RemoteItem{remoteItem("r1", groupID, now.Add(-time.Hour))}, nil
		},
	}
	s, st, _ := setupSyncer(t, fake)

	err := s.Sync(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnavailable)

	// the healthy group still synced
	_, err = st.Items.GetByID(ctx, "r1")
	require.NoError(t, err)
}

func TestSyncer_OfflineFailsQuietly(t *testing.T) {
	ctx := context.Background()

	fake := &apitest.Fake{
		GroupsFn: func(ctx context.Context) ([]*api.RemoteGroup, error) {
			return nil, common.ErrUnavailable
		},
	}
	s, st, _ := setupSyncer(t, fake)

	err := s.Sync(ctx)
	assert.ErrorIs(t, err, common.ErrUnavailable)

	// no partial pass timestamp
	raw, err := st.Metadata.Get(ctx, metadata.KeyLastSyncAt)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestSyncer_PayloadFetchRetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	var fetches atomic.Int32
	fake := &apitest.Fake{
		GroupsFn: func(ctx context.Context) ([]*api.RemoteGroup, error) {
			return []*api.RemoteGroup{{ID: "g1", Name: "family"}}, nil
		},
		ListContentFn: func(ctx context.Context, groupID string, since time.Time) ([]*api.RemoteItem, error) {
			return []*api.RemoteItem{remoteItem("r1", groupID, now.Add(-time.Hour))}, nil
		},
		FetchFn: func(ctx context.Context, url string) ([]byte, error) {
			if fetches.Add(1) <= 2 {
				return nil, common.ErrUnavailable
			}
			return []byte("data"), nil
		},
	}
	s, _, c := setupSyncer(t, fake)

	require.NoError(t, s.Sync(ctx))

	assert.EqualValues(t, 3, fetches.Load())
	data, err := c.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}

func TestSyncer_PayloadFetchFailureKeepsDescriptor(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	fake := &apitest.Fake{
		GroupsFn: func(ctx context.Context) ([]*api.RemoteGroup, error) {
			return []*api.RemoteGroup{{ID: "g1", Name: "family"}}, nil
		},
		ListContentFn: func(ctx context.Context, groupID string, since time.Time) ([]*api.RemoteItem, error) {
			return []*api.RemoteItem{remoteItem("r1", groupID, now.Add(-time.Hour))}, nil
		},
		FetchFn: func(ctx context.Context, url string) ([]byte, error) {
			return nil, errors.New("corrupt payload")
		},
	}
	s, st, c := setupSyncer(t, fake)

	// payload failures are logged, not returned
	require.NoError(t, s.Sync(ctx))

	_, err := st.Items.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, c.Contains(ctx, "r1"))
}

func TestSyncer_SweepRemovesExpiredBeforeListing(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	fake := &apitest.Fake{
		GroupsFn: func(ctx context.Context) ([]*api.RemoteGroup, error) {
			return []*api.RemoteGroup{{ID: "g1", Name: "family"}}, nil
		},
	}
	s, st, _ := setupSyncer(t, fake)

	old := models.NewContentItem("g1", "other", "", 4, now.Add(-common.ContentTTL-time.Hour))
	require.NoError(t, st.Items.Create(ctx, old))

	require.NoError(t, s.Sync(ctx))

	_, err := st.Items.GetByID(ctx, old.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSyncer_ReconcilesQuotaMarkers(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	fake := &apitest.Fake{
		CheckDailySendFn: func(ctx context.Context, groupID, day string) (bool, error) {
			return true, nil
		},
	}
	s, st, _ := setupSyncer(t, fake)

	day := common.LocalDay(now, time.UTC)
	_, err := st.QuotaMarks.Insert(ctx, &models.QuotaMarker{
		UserID: "u1", GroupID: "g1", Day: day, CreatedAt: now,
	})
	require.NoError(t, err)

	require.NoError(t, s.Sync(ctx))

	mark, err := st.QuotaMarks.Get(ctx, "u1", "g1", day)
	require.NoError(t, err)
	assert.True(t, mark.Confirmed)
}

func TestSyncer_OnForegroundRespectsStaleness(t *testing.T) {
	ctx := context.Background()

	var passes atomic.Int32
	fake := &apitest.Fake{
		GroupsFn: func(ctx context.Context) ([]*api.RemoteGroup, error) {
			passes.Add(1)
			return nil, nil
		},
	}
	s, st, _ := setupSyncer(t, fake)

	// no previous pass: foreground syncs
	require.NoError(t, s.OnForeground(ctx))
	assert.EqualValues(t, 1, passes.Load())

	// fresh pass: foreground is a no-op
	require.NoError(t, s.OnForeground(ctx))
	assert.EqualValues(t, 1, passes.Load())

	// stale pass: foreground syncs again
	stale := time.Now().Add(-10 * time.Minute).UTC().Format(time.RFC3339Nano)
	require.NoError(t, st.Metadata.Set(ctx, metadata.KeyLastSyncAt, []byte(stale)))
	require.NoError(t, s.OnForeground(ctx))
	assert.EqualValues(t, 2, passes.Load())
}
