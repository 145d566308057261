// Package quota enforces the one-send-per-group-per-day rule. The server's
// daily-send record is authoritative; the local marker is an optimistic
// stand-in written at capture-accept time so the rule holds offline too.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/antong314/dayly/internal/client/api"
	"github.com/antong314/dayly/internal/client/models"
	"github.com/antong314/dayly/internal/client/repositories/items"
	"github.com/antong314/dayly/internal/client/repositories/quotamarks"
	"github.com/antong314/dayly/internal/client/store"
	"github.com/antong314/dayly/internal/common"
	"github.com/antong314/dayly/internal/dbx"
	"github.com/antong314/dayly/internal/logging"
)

// Guard decides whether a capture may be sent and keeps the local markers
// reconciled with the server.
type Guard struct {
	st      *store.Store
	client  api.Client
	session api.Session
	log     logging.Logger
}

func NewGuard(st *store.Store, client api.Client, session api.Session, log logging.Logger) *Guard {
	return &Guard{st: st, client: client, session: session, log: log}
}

// Day returns the user's local calendar day for the given instant. The
// quota boundary is midnight in the user's current timezone.
func (g *Guard) Day(now time.Time) string {
	return common.LocalDay(now, g.session.Timezone())
}

// CanSend reports whether the user may still send to the group today. The
// remote record is consulted first; when the service is unreachable the
// local marker decides, and an absent marker permits the send. The server
// re-checks at upload time, so an optimistic offline yes cannot become a
// duplicate send.
func (g *Guard) CanSend(ctx context.Context, groupID string, now time.Time) (bool, error) {
	day := g.Day(now)

	sent, err := g.client.CheckDailySend(ctx, groupID, day)
	if err == nil {
		return !sent, nil
	}
	if !errors.Is(err, common.ErrUnavailable) {
		return false, err
	}

	g.log.Debug(ctx, "daily-send check offline, using local marker", "group_id", groupID, "day", day)

	_, err = g.st.QuotaMarks.Get(ctx, g.session.UserID(), groupID, day)
	if errors.Is(err, common.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// Accept atomically writes the optimistic marker and the captured item.
// Returns ErrQuotaExceeded when a marker for the tuple already exists, in
// which case nothing is written.
func (g *Guard) Accept(ctx context.Context, item *models.ContentItem, now time.Time) error {
	marker := &models.QuotaMarker{
		UserID:    g.session.UserID(),
		GroupID:   item.GroupID,
		Day:       g.Day(now),
		CreatedAt: now.UTC(),
	}

	return dbx.WithTx(ctx, g.st.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		inserted, err := quotamarks.NewSQLiteRepository(tx).Insert(ctx, marker)
		if err != nil {
			return err
		}
		if !inserted {
			return fmt.Errorf("send for %s on %s: %w", item.GroupID, marker.Day, common.ErrQuotaExceeded)
		}
		return items.NewSQLiteRepository(tx).Create(ctx, item)
	})
}

// Confirm flips the marker to the confirmed-remote variant once the
// authoritative record exists. A missing marker is created confirmed, which
// happens when the remote record predates local state.
func (g *Guard) Confirm(ctx context.Context, groupID, day string) error {
	userID := g.session.UserID()

	err := g.st.QuotaMarks.Confirm(ctx, userID, groupID, day)
	if !errors.Is(err, common.ErrNotFound) {
		return err
	}

	_, err = g.st.QuotaMarks.Insert(ctx, &models.QuotaMarker{
		UserID:    userID,
		GroupID:   groupID,
		Day:       day,
		Confirmed: true,
		CreatedAt: time.Now().UTC(),
	})
	return err
}

// Release removes an optimistic marker whose send will never happen.
func (g *Guard) Release(ctx context.Context, groupID, day string) error {
	return g.st.QuotaMarks.Delete(ctx, g.session.UserID(), groupID, day)
}

// Reconcile walks the unconfirmed markers and settles each against the
// server: confirmed remotely means confirm locally, otherwise the marker is
// released unless an item in the group is still working toward the send.
// Unreachable service leaves markers untouched for the next pass.
func (g *Guard) Reconcile(ctx context.Context) error {
	marks, err := g.st.QuotaMarks.ListUnconfirmed(ctx)
	if err != nil {
		return fmt.Errorf("list unconfirmed markers: %w", err)
	}

	var errs []error
	for _, m := range marks {
		sent, err := g.client.CheckDailySend(ctx, m.GroupID, m.Day)
		if err != nil {
			if errors.Is(err, common.ErrUnavailable) {
				return nil
			}
			errs = append(errs, fmt.Errorf("reconcile %s/%s: %w", m.GroupID, m.Day, err))
			continue
		}

		if sent {
			if err := g.st.QuotaMarks.Confirm(ctx, m.UserID, m.GroupID, m.Day); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		pending, err := g.groupHasInFlight(ctx, m.GroupID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if pending {
			continue
		}

		g.log.Info(ctx, "releasing stale quota marker", "group_id", m.GroupID, "day", m.Day)
		if err := g.st.QuotaMarks.Delete(ctx, m.UserID, m.GroupID, m.Day); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// groupHasInFlight reports whether any item in the group could still
// complete a send: queued, mid-upload, or failed but retryable by the user.
func (g *Guard) groupHasInFlight(ctx context.Context, groupID string) (bool, error) {
	for _, state := range []models.ItemState{models.ItemStatePending, models.ItemStateUploading, models.ItemStateFailed} {
		list, err := g.st.Items.ListByState(ctx, state)
		if err != nil {
			return false, err
		}
		for _, it := range list {
			if it.GroupID == groupID {
				return true, nil
			}
		}
	}
	return false, nil
}
