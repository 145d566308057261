// Package transfer runs durable byte transfers. A descriptor is persisted
// before any bytes move and progress is checkpointed along the way, so an
// upload interrupted by process death can be resumed after relaunch.
package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/antong314/dayly/internal/client/api"
	"github.com/antong314/dayly/internal/client/models"
	"github.com/antong314/dayly/internal/client/store"
	"github.com/antong314/dayly/internal/common"
	"github.com/antong314/dayly/internal/logging"
)

// progressStep is how many bytes pass between persisted checkpoints.
const progressStep = 256 << 10

// ProgressFunc receives cumulative bytes sent out of total.
type ProgressFunc func(sent, total int64)

// Manager owns the transfer descriptor lifecycle.
type Manager struct {
	st     *store.Store
	client api.Client
	log    logging.Logger
}

func NewManager(st *store.Store, client api.Client, log logging.Logger) *Manager {
	return &Manager{st: st, client: client, log: log}
}

// Begin persists a descriptor for the issued destination. It runs before
// any bytes move so a crash mid-upload leaves enough to resume from.
func (m *Manager) Begin(ctx context.Context, item *models.ContentItem, dest *api.UploadDestination, now time.Time) (*models.TransferState, error) {
	ts := &models.TransferState{
		ItemID:     item.ID,
		UploadURL:  dest.URL,
		RemoteKey:  dest.RemoteKey,
		LocalPath:  item.LocalPath,
		TotalBytes: item.SizeBytes,
		StartedAt:  now.UTC(),
	}
	if err := m.st.Transfers.Upsert(ctx, ts); err != nil {
		return nil, fmt.Errorf("persist transfer: %w", err)
	}
	return ts, nil
}

// Run streams the local file to the destination. Progress is checkpointed
// to the store every progressStep bytes and forwarded to cb when non-nil.
// The descriptor is left in place on failure; call Finish after a terminal
// outcome.
func (m *Manager) Run(ctx context.Context, ts *models.TransferState, cb ProgressFunc) error {
	f, err := os.Open(ts.LocalPath)
	if err != nil {
		// the source payload is gone, no retry can succeed
		return fmt.Errorf("%w: source payload: %v", common.ErrPayloadInvalid, err)
	}
	defer f.Close()

	cr := &countingReader{
		r: f,
		report: func(sent int64) {
			if err := m.st.Transfers.UpdateProgress(ctx, ts.ItemID, sent); err != nil {
				m.log.Warn(ctx, "progress checkpoint failed", "item_id", ts.ItemID, "error", err)
			}
			if cb != nil {
				cb(sent, ts.TotalBytes)
			}
		},
	}

	if err := m.client.Upload(ctx, ts.UploadURL, cr, ts.TotalBytes); err != nil {
		return fmt.Errorf("upload %s: %w", ts.ItemID, err)
	}

	cr.flush()
	return nil
}

// Finish removes the persisted descriptor after a terminal outcome.
func (m *Manager) Finish(ctx context.Context, itemID string) error {
	return m.st.Transfers.Delete(ctx, itemID)
}

// Resume returns descriptors persisted before a relaunch, oldest first.
// Callers re-drive each one through Run and the usual completion path.
func (m *Manager) Resume(ctx context.Context) ([]*models.TransferState, error) {
	return m.st.Transfers.List(ctx)
}

// countingReader reports cumulative bytes read at progressStep intervals.
type countingReader struct {
	r        io.Reader
	sent     int64
	lastMark int64
	report   func(sent int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.sent += int64(n)
	if c.sent-c.lastMark >= progressStep {
		c.flush()
	}
	return n, err
}

func (c *countingReader) flush() {
	if c.sent != c.lastMark || c.lastMark == 0 {
		c.lastMark = c.sent
		c.report(c.sent)
	}
}
