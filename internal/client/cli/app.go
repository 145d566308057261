// Package cli is the interactive shell of the Dayly client. It wires the
// engine together (store, cache, upload queue, syncer) and exposes the
// commands a user drives it with.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/antong314/dayly/internal/client/api"
	"github.com/antong314/dayly/internal/client/cache"
	"github.com/antong314/dayly/internal/client/config"
	"github.com/antong314/dayly/internal/client/queue"
	"github.com/antong314/dayly/internal/client/quota"
	"github.com/antong314/dayly/internal/client/retry"
	"github.com/antong314/dayly/internal/client/store"
	"github.com/antong314/dayly/internal/client/syncer"
	"github.com/antong314/dayly/internal/client/transfer"
	"github.com/antong314/dayly/internal/filex"
	"github.com/antong314/dayly/internal/logging"
)

type App struct {
	config  *config.Config
	log     logging.Logger
	st      *store.Store
	client  api.Client
	session api.Session
	cache   *cache.Cache
	guard   *quota.Guard
	queue   *queue.Queue
	syncer  *syncer.Syncer
	reader  *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	log := logging.NewSlogLogger(slog.Default())

	dataDir, err := filex.EnsureDir(c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	st, err := store.Open(ctx, filepath.Join(dataDir, "dayly.db"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	user := os.Getenv("DAYLY_USER")
	if user == "" {
		user = "me"
	}
	session := &api.StaticSession{
		User:  user,
		Token: os.Getenv("DAYLY_TOKEN"),
		Loc:   time.Local,
	}

	client := api.NewHTTPClient(c.ServerAddr, session)

	ch, err := cache.New(st, filepath.Join(dataDir, "cache"), log, &cache.Options{
		MaxMemoryEntries: c.CacheMemoryEntries,
		MaxMemoryBytes:   c.CacheMemoryBytes,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}

	guard := quota.NewGuard(st, client, session, log)
	tm := transfer.NewManager(st, client, log)
	q := queue.New(st, client, session, guard, tm, retry.Default(), log)
	sc := syncer.New(st, client, session, ch, guard, log)

	return &App{
		config:  c,
		log:     log,
		st:      st,
		client:  client,
		session: session,
		cache:   ch,
		guard:   guard,
		queue:   q,
		syncer:  sc,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts the engine and the command loop, and tears everything down on
// exit.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.queue.Start(ctx)
	defer a.queue.Close()

	if err := a.queue.Resume(ctx); err != nil {
		a.log.Warn(ctx, "resume interrupted uploads failed", "error", err)
	}

	go a.watchEvents(ctx)
	go a.syncer.RunPeriodic(ctx, a.config.SyncInterval)

	if err := a.syncer.OnForeground(ctx); err != nil {
		a.log.Warn(ctx, "startup sync failed", "error", err)
	}

	a.Root(ctx)

	a.client.Close()
	a.st.Close()
}

// watchEvents prints queue outcomes as they land.
func (a *App) watchEvents(ctx context.Context) {
	events := a.queue.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			switch e.Type {
			case queue.EventCompleted:
				printlnFn(fmt.Sprintf("upload finished: %s", e.ItemID))
			case queue.EventFailed:
				printlnFn(fmt.Sprintf("upload failed: %s (%v)", e.ItemID, e.Err))
			}
		}
	}
}
