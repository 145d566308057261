// Package queue is the serial upload pipeline. A single worker drains a
// FIFO of item ids, drives each through destination issue, byte transfer
// and confirmation, and retries transient failures on a backoff schedule.
// One worker keeps bandwidth use predictable on mobile links and makes
// upload order match capture order.
package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/antong314/dayly/internal/client/api"
	"github.com/antong314/dayly/internal/client/models"
	"github.com/antong314/dayly/internal/client/quota"
	"github.com/antong314/dayly/internal/client/retry"
	"github.com/antong314/dayly/internal/client/store"
	"github.com/antong314/dayly/internal/client/transfer"
	"github.com/antong314/dayly/internal/common"
	"github.com/antong314/dayly/internal/logging"
)

// EventType discriminates queue events.
type EventType int

const (
	EventProgress EventType = iota
	EventCompleted
	EventFailed
)

// Event is delivered to subscribers. Fraction is meaningful for progress
// events, Err for failures.
type Event struct {
	Type     EventType
	ItemID   string
	Fraction float64
	Err      error
}

// Queue owns the upload worker. All exported methods are safe for
// concurrent use.
type Queue struct {
	st        *store.Store
	client    api.Client
	session   api.Session
	guard     *quota.Guard
	transfers *transfer.Manager
	policy    retry.Policy
	log       logging.Logger

	mu                sync.Mutex
	order             []string
	attempts          map[string]int
	timers            map[string]*time.Timer
	inFlight          string
	cancelInFlight    context.CancelFunc
	cancelledInFlight bool
	subs              []chan Event
	closed            bool

	wake    chan struct{}
	stopped chan struct{}
	stop    context.CancelFunc
}

func New(st *store.Store, client api.Client, session api.Session, guard *quota.Guard, transfers *transfer.Manager, policy retry.Policy, log logging.Logger) *Queue {
	return &Queue{
		st:        st,
		client:    client,
		session:   session,
		guard:     guard,
		transfers: transfers,
		policy:    policy,
		log:       log,
		attempts:  make(map[string]int),
		timers:    make(map[string]*time.Timer),
		wake:      make(chan struct{}, 1),
		stopped:   make(chan struct{}),
	}
}

// Start launches the worker. Call Close to stop it.
func (q *Queue) Start(ctx context.Context) {
	ctx, q.stop = context.WithCancel(ctx)
	go q.run(ctx)
}

// Close stops the worker and closes all subscriber channels. The item being
// uploaded, if any, reverts to pending so a relaunch resumes it.
func (q *Queue) Close() {
	if q.stop != nil {
		q.stop()
		<-q.stopped
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for _, t := range q.timers {
		t.Stop()
	}
	for _, ch := range q.subs {
		close(ch)
	}
	q.subs = nil
}

// Enqueue adds an item to the upload queue. Returns ErrAlreadyQueued if the
// item is queued, mid-upload or waiting out a retry delay.
func (q *Queue) Enqueue(itemID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.attempts[itemID]; ok || q.inFlight == itemID {
		return fmt.Errorf("item %s: %w", itemID, common.ErrAlreadyQueued)
	}
	q.attempts[itemID] = 0
	q.order = append(q.order, itemID)
	q.signal()
	return nil
}

// Cancel removes a queued item or aborts the in-flight upload. A cancelled
// in-flight item reverts to pending with no failure event and no attempt
// charged. Returns ErrNotQueued when the item is not known to the queue.
func (q *Queue) Cancel(itemID string) error {
	q.mu.Lock()

	if q.inFlight == itemID {
		q.cancelledInFlight = true
		cancel := q.cancelInFlight
		q.mu.Unlock()
		cancel()
		return nil
	}

	if _, ok := q.attempts[itemID]; !ok {
		q.mu.Unlock()
		return fmt.Errorf("item %s: %w", itemID, common.ErrNotQueued)
	}

	if t, ok := q.timers[itemID]; ok {
		t.Stop()
		delete(q.timers, itemID)
	}
	delete(q.attempts, itemID)
	if i := slices.Index(q.order, itemID); i >= 0 {
		q.order = slices.Delete(q.order, i, i+1)
	}
	q.mu.Unlock()
	return nil
}

// Subscribe returns a channel of queue events. Slow subscribers lose
// events rather than stall the worker. The channel closes with the queue.
func (q *Queue) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	q.mu.Lock()
	q.subs = append(q.subs, ch)
	q.mu.Unlock()
	return ch
}

// Stats returns the number of items waiting plus the id mid-upload, empty
// when idle.
func (q *Queue) Stats() (queued int, inFlight string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.attempts), q.inFlight
}

// Resume re-enqueues persisted work after a relaunch: items that were
// mid-upload when the process died, then items never started.
func (q *Queue) Resume(ctx context.Context) error {
	for _, state := range []models.ItemState{models.ItemStateUploading, models.ItemStatePending} {
		list, err := q.st.Items.ListByState(ctx, state)
		if err != nil {
			return fmt.Errorf("resume %s items: %w", state, err)
		}
		for _, it := range list {
			if err := q.Enqueue(it.ID); err != nil && !errors.Is(err, common.ErrAlreadyQueued) {
				return err
			}
		}
	}
	return nil
}

// RetryAllFailed moves every failed item back to pending with a fresh
// attempt budget and enqueues it. Returns how many were requeued.
func (q *Queue) RetryAllFailed(ctx context.Context) (int, error) {
	list, err := q.st.Items.ListByState(ctx, models.ItemStateFailed)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, it := range list {
		if err := q.st.Items.SetState(ctx, it.ID, models.ItemStatePending); err != nil {
			return n, err
		}
		if err := q.Enqueue(it.ID); err == nil {
			n++
		}
	}
	return n, nil
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.stopped)

	for {
		id, attempts, ok := q.dequeue(ctx)
		if !ok {
			return
		}

		itemCtx, cancel := context.WithCancel(ctx)
		q.mu.Lock()
		q.inFlight = id
		q.cancelInFlight = cancel
		q.cancelledInFlight = false
		q.mu.Unlock()

		err := q.process(itemCtx, id)
		cancel()
		q.settle(ctx, id, attempts, err)
	}
}

// dequeue blocks until an item is available or ctx ends.
func (q *Queue) dequeue(ctx context.Context) (string, int, bool) {
	for {
		q.mu.Lock()
		if len(q.order) > 0 {
			id := q.order[0]
			q.order = q.order[1:]
			attempts := q.attempts[id]
			q.mu.Unlock()
			return id, attempts, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", 0, false
		case <-q.wake:
		}
	}
}

// process drives one item through the full upload flow.
func (q *Queue) process(ctx context.Context, id string) error {
	item, err := q.st.Items.GetByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil // swept away while queued
	}
	if err != nil {
		return err
	}
	if item.State == models.ItemStateUploaded {
		return nil
	}

	now := time.Now()
	if item.Expired(now) {
		return fmt.Errorf("item %s: %w", id, common.ErrItemExpired)
	}

	// the quota day is fixed at capture time, not at upload time
	day := common.LocalDay(item.CreatedAt, q.session.Timezone())

	dest, err := q.client.IssueUploadDestination(ctx, item.GroupID, item.ID, day, item.SizeBytes)
	if err != nil {
		return err
	}

	if err := q.st.Items.SetState(ctx, id, models.ItemStateUploading); err != nil {
		return err
	}

	ts, err := q.transfers.Begin(ctx, item, dest, now)
	if err != nil {
		return err
	}

	err = q.transfers.Run(ctx, ts, func(sent, total int64) {
		fr := 1.0
		if total > 0 {
			fr = float64(sent) / float64(total)
		}
		q.emit(Event{Type: EventProgress, ItemID: id, Fraction: fr})
	})
	if err != nil {
		return err
	}

	if err := q.client.ConfirmUpload(ctx, &api.ConfirmRequest{
		ItemID:    item.ID,
		GroupID:   item.GroupID,
		RemoteKey: dest.RemoteKey,
		SizeBytes: item.SizeBytes,
		CreatedAt: item.CreatedAt,
		Day:       day,
	}); err != nil {
		return err
	}

	if err := q.st.Items.MarkUploaded(ctx, id, dest.RemoteKey); err != nil {
		return err
	}
	if err := q.guard.Confirm(ctx, item.GroupID, day); err != nil {
		return err
	}
	if err := q.st.Groups.SetLastContentAt(ctx, item.GroupID, item.CreatedAt); err != nil {
		q.log.Warn(ctx, "group activity update failed", "group_id", item.GroupID, "error", err)
	}
	if err := q.transfers.Finish(ctx, id); err != nil {
		q.log.Warn(ctx, "transfer cleanup failed", "item_id", id, "error", err)
	}
	return nil
}

// settle decides what a finished attempt means: done, retry later, or
// permanently failed.
func (q *Queue) settle(ctx context.Context, id string, attempts int, err error) {
	q.mu.Lock()
	cancelled := q.cancelledInFlight
	q.inFlight = ""
	q.cancelInFlight = nil
	q.cancelledInFlight = false
	q.mu.Unlock()

	if err == nil {
		q.forget(id)
		q.emit(Event{Type: EventCompleted, ItemID: id, Fraction: 1})
		return
	}

	if cancelled || errors.Is(err, context.Canceled) {
		// user cancel or shutdown: back to pending, no event, no attempt
		// charged
		q.forget(id)
		q.revert(id)
		return
	}

	attempts++
	class := retry.Classify(err)
	if class == retry.Retryable && !q.policy.Exhausted(attempts) {
		delay := q.policy.Delay(attempts - 1)
		q.log.Info(ctx, "upload retry scheduled",
			"item_id", id, "attempt", attempts, "delay", delay, "error", err)

		q.revert(id)
		q.mu.Lock()
		if !q.closed {
			q.attempts[id] = attempts
			q.timers[id] = time.AfterFunc(delay, func() { q.requeue(id) })
		}
		q.mu.Unlock()
		return
	}

	q.log.Warn(context.WithoutCancel(ctx), "upload failed",
		"item_id", id, "attempts", attempts, "class", class.String(), "error", err)

	q.forget(id)
	if serr := q.st.Items.SetState(context.WithoutCancel(ctx), id, models.ItemStateFailed); serr != nil {
		q.log.Error(context.WithoutCancel(ctx), "state update failed", "item_id", id, "error", serr)
	}
	q.emit(Event{Type: EventFailed, ItemID: id, Err: err})
}

func (q *Queue) requeue(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	delete(q.timers, id)
	if _, ok := q.attempts[id]; !ok {
		return // cancelled while waiting
	}
	q.order = append(q.order, id)
	q.signal()
}

func (q *Queue) forget(id string) {
	q.mu.Lock()
	delete(q.attempts, id)
	q.mu.Unlock()
}

// revert puts an interrupted item back to pending and drops its transfer
// descriptor.
func (q *Queue) revert(id string) {
	ctx := context.Background()
	if err := q.st.Items.SetState(ctx, id, models.ItemStatePending); err != nil && !errors.Is(err, common.ErrNotFound) {
		q.log.Error(ctx, "state revert failed", "item_id", id, "error", err)
	}
	if err := q.transfers.Finish(ctx, id); err != nil {
		q.log.Warn(ctx, "transfer cleanup failed", "item_id", id, "error", err)
	}
}

func (q *Queue) emit(e Event) {
	q.mu.Lock()
	subs := slices.Clone(q.subs)
	q.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}
}
