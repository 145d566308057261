// Package syncer reconciles local state with the content service: it pulls
// new group content into the cache, sweeps out expired items and settles
// optimistic quota markers. Passes coalesce, so overlapping triggers cost
// one pass.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/antong314/dayly/internal/client/api"
	"github.com/antong314/dayly/internal/client/cache"
	"github.com/antong314/dayly/internal/client/models"
	"github.com/antong314/dayly/internal/client/quota"
	"github.com/antong314/dayly/internal/client/repositories/metadata"
	"github.com/antong314/dayly/internal/client/retry"
	"github.com/antong314/dayly/internal/client/store"
	"github.com/antong314/dayly/internal/common"
	"github.com/antong314/dayly/internal/logging"
)

const (
	// maxGroupConcurrency bounds parallel per-group passes.
	maxGroupConcurrency = 4

	// foregroundStaleness is how old the last pass may be before a
	// foreground transition forces a new one.
	foregroundStaleness = 5 * time.Minute
)

// Syncer coordinates synchronization passes. Safe for concurrent use.
type Syncer struct {
	st      *store.Store
	client  api.Client
	session api.Session
	cache   *cache.Cache
	guard   *quota.Guard
	policy  retry.Policy
	log     logging.Logger

	running atomic.Bool
}

func New(st *store.Store, client api.Client, session api.Session, c *cache.Cache, guard *quota.Guard, log logging.Logger) *Syncer {
	return &Syncer{
		st:      st,
		client:  client,
		session: session,
		cache:   c,
		guard:   guard,
		policy:  retry.Fast(),
		log:     log,
	}
}

// Sync runs one full pass: refresh group membership, sync every group with
// bounded concurrency, reconcile quota markers and stamp the pass time.
// A pass already in flight makes Sync a no-op. One group failing does not
// stop the others.
func (s *Syncer) Sync(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Debug(ctx, "sync already running, coalescing")
		return nil
	}
	defer s.running.Store(false)

	started := time.Now()

	remote, err := s.client.Groups(ctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	for _, rg := range remote {
		g := &models.Group{ID: rg.ID, Name: rg.Name, MemberIDs: rg.MemberIDs}
		if err := s.st.Groups.CreateOrUpdate(ctx, g); err != nil {
			return fmt.Errorf("upsert group %s: %w", rg.ID, err)
		}
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxGroupConcurrency)
	for _, rg := range remote {
		eg.Go(func() error {
			if err := s.SyncGroup(egCtx, rg.ID); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("group %s: %w", rg.ID, err))
				mu.Unlock()
			}
			return nil // isolate group failures from each other
		})
	}
	eg.Wait()

	if err := s.guard.Reconcile(ctx); err != nil {
		errs = append(errs, fmt.Errorf("quota reconcile: %w", err))
	}

	if err := s.st.Metadata.Set(ctx, metadata.KeyLastSyncAt,
		[]byte(started.UTC().Format(time.RFC3339Nano))); err != nil {
		errs = append(errs, err)
	}

	s.log.Info(ctx, "sync pass finished",
		"groups", len(remote), "took", time.Since(started), "errors", len(errs))
	return errors.Join(errs...)
}

// SyncGroup syncs a single group: sweep expired content, pull descriptors
// for the visibility window, insert the new ones and prefetch their
// payloads. Also used right after a capture to refresh just that group.
func (s *Syncer) SyncGroup(ctx context.Context, groupID string) error {
	now := time.Now()

	if err := s.cache.SweepGroup(ctx, groupID, now); err != nil {
		s.log.Warn(ctx, "group sweep failed", "group_id", groupID, "error", err)
	}

	since := now.Add(-common.VisibilityWindow)
	remote, err := s.client.ListContent(ctx, groupID, since)
	if err != nil {
		return err
	}

	known, err := s.st.Items.ListIDs(ctx, groupID)
	if err != nil {
		return err
	}
	have := make(map[string]struct{}, len(known))
	for _, id := range known {
		have[id] = struct{}{}
	}

	var lastContent time.Time
	var errs []error
	for _, ri := range remote {
		if !ri.ExpiresAt.After(now) {
			continue
		}
		if ri.CreatedAt.After(lastContent) {
			lastContent = ri.CreatedAt
		}

		if _, seen := have[ri.ID]; !seen {
			inserted, err := s.st.Items.InsertIfAbsent(ctx, remoteToItem(ri))
			if err != nil {
				errs = append(errs, fmt.Errorf("item %s: %w", ri.ID, err))
				continue
			}
			_ = inserted
		}

		if s.cache.Contains(ctx, ri.ID) || ri.FetchURL == "" {
			continue
		}
		if err := s.fetchPayload(ctx, ri, now); err != nil {
			// payload fetch failures are per-item: the descriptor is
			// local already, the next pass retries the bytes
			s.log.Warn(ctx, "payload fetch failed", "item_id", ri.ID, "error", err)
		}
	}

	if !lastContent.IsZero() {
		if err := s.st.Groups.SetLastContentAt(ctx, groupID, lastContent); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnForeground runs a pass when the last one is stale or missing.
func (s *Syncer) OnForeground(ctx context.Context) error {
	raw, err := s.st.Metadata.Get(ctx, metadata.KeyLastSyncAt)
	if err != nil {
		return err
	}
	if raw != nil {
		last, err := time.Parse(time.RFC3339Nano, string(raw))
		if err == nil && time.Since(last) < foregroundStaleness {
			return nil
		}
	}
	return s.Sync(ctx)
}

// RunPeriodic triggers a pass every interval until ctx ends. Failures are
// logged and the ticker keeps going.
func (s *Syncer) RunPeriodic(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.Sync(ctx); err != nil {
				s.log.Warn(ctx, "periodic sync failed", "error", err)
			}
		}
	}
}

// fetchPayload downloads and caches one payload, retrying transient
// failures on the fast schedule.
func (s *Syncer) fetchPayload(ctx context.Context, ri *api.RemoteItem, now time.Time) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		data, err := s.client.Fetch(ctx, ri.FetchURL)
		if err == nil {
			return s.cache.Put(ctx, ri.ID, data, now)
		}
		lastErr = err

		if retry.Classify(err) != retry.Retryable || s.policy.Exhausted(attempt+1) {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.policy.Delay(attempt)):
		}
	}
}

// remoteToItem maps a remote descriptor onto the local model. Remote items
// arrive already uploaded; the server's id is kept so concurrent passes
// stay idempotent.
func remoteToItem(ri *api.RemoteItem) *models.ContentItem {
	return &models.ContentItem{
		ID:        ri.ID,
		GroupID:   ri.GroupID,
		SenderID:  ri.SenderID,
		RemoteKey: ri.RemoteKey,
		SizeBytes: ri.SizeBytes,
		CreatedAt: ri.CreatedAt.UTC(),
		ExpiresAt: ri.ExpiresAt.UTC(),
		State:     models.ItemStateUploaded,
	}
}
