package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/antong314/dayly/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, &StaticSession{User: "u1", Token: "tok"})
}

func TestDo_SendsBearerToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestIssueUploadDestination(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/photos/upload-url", r.URL.Path)

		var req struct {
			GroupID string `json:"group_id"`
			ItemID  string `json:"item_id"`
			Day     string `json:"day"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "g1", req.GroupID)
		assert.Equal(t, "2026-02-01", req.Day)

		json.NewEncoder(w).Encode(UploadDestination{RemoteKey: "photos/i1", URL: "https://store/put"})
	})

	dest, err := c.IssueUploadDestination(context.Background(), "g1", "i1", "2026-02-01", 100)
	require.NoError(t, err)
	assert.Equal(t, "photos/i1", dest.RemoteKey)
	assert.Equal(t, "https://store/put", dest.URL)
}

func TestIssueUploadDestination_QuotaConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	_, err := c.IssueUploadDestination(context.Background(), "g1", "i1", "2026-02-01", 100)
	require.ErrorIs(t, err, common.ErrQuotaExceeded)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			require.ErrorIs(t, err, common.ErrUnauthorized)
		}},
		{"forbidden", http.StatusForbidden, func(t *testing.T, err error) {
			require.ErrorIs(t, err, common.ErrUnauthorized)
		}},
		{"too large", http.StatusRequestEntityTooLarge, func(t *testing.T, err error) {
			require.ErrorIs(t, err, common.ErrPayloadInvalid)
		}},
		{"server error carries status", http.StatusBadGateway, func(t *testing.T, err error) {
			var se *ServerError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, http.StatusBadGateway, se.Status)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			tt.check(t, c.Ping(context.Background()))
		})
	}
}

func TestTransportFailureMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from now on

	c := NewHTTPClient(srv.URL, &StaticSession{User: "u1", Token: "tok"})
	err := c.Ping(context.Background())
	require.ErrorIs(t, err, common.ErrUnavailable)
}

func TestListContent(t *testing.T) {
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/photos/group/g1", r.URL.Path)
		require.NotEmpty(t, r.URL.Query().Get("since"))

		json.NewEncoder(w).Encode(map[string]any{
			"photos": []*RemoteItem{{
				ID:        "i1",
				GroupID:   "g1",
				SenderID:  "u2",
				RemoteKey: "photos/i1",
				CreatedAt: created,
				ExpiresAt: created.Add(48 * time.Hour),
				FetchURL:  "https://store/get/i1",
			}},
		})
	})

	items, err := c.ListContent(context.Background(), "g1", created.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "i1", items[0].ID)
	assert.True(t, items[0].ExpiresAt.Equal(created.Add(48*time.Hour)))
}

func TestCheckAndCommitDailySend(t *testing.T) {
	var committed int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sends/check":
			assert.Equal(t, "g1", r.URL.Query().Get("group_id"))
			json.NewEncoder(w).Encode(map[string]bool{"sent": true})
		case "/api/sends":
			committed++
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	sent, err := c.CheckDailySend(context.Background(), "g1", "2026-02-01")
	require.NoError(t, err)
	assert.True(t, sent)

	require.NoError(t, c.CommitDailySend(context.Background(), "g1", "2026-02-01"))
	require.NoError(t, c.CommitDailySend(context.Background(), "g1", "2026-02-01"))
	assert.Equal(t, 2, committed)
}

func TestFetch(t *testing.T) {
	payload := []byte("jpeg-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"), "presigned fetches carry no bearer token")
		w.Write(payload)
	}))
	t.Cleanup(srv.Close)

	c := NewHTTPClient("http://unused", &StaticSession{User: "u1", Token: "tok"})
	got, err := c.Fetch(context.Background(), srv.URL+"/obj")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
