// Package cache is the two-tier payload cache: a bounded in-memory LRU in
// front of a durable on-disk tier. The disk tier is tracked in the local
// store so restarts keep it; the memory tier is disposable.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/antong314/dayly/internal/client/models"
	"github.com/antong314/dayly/internal/client/repositories/cachemeta"
	"github.com/antong314/dayly/internal/client/repositories/items"
	"github.com/antong314/dayly/internal/client/store"
	"github.com/antong314/dayly/internal/common"
	"github.com/antong314/dayly/internal/dbx"
	"github.com/antong314/dayly/internal/filex"
	"github.com/antong314/dayly/internal/logging"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultMaxMemoryEntries = 64
	defaultMaxMemoryBytes   = 32 << 20 // 32 MiB
)

// Options bounds the memory tier.
type Options struct {
	MaxMemoryEntries int
	MaxMemoryBytes   int64
}

// Cache is safe for concurrent use.
type Cache struct {
	st  *store.Store
	log logging.Logger
	dir string

	mu          sync.Mutex
	mem         *lru.Cache[string, []byte]
	memBytes    int64
	maxMemBytes int64
}

// New creates a cache whose disk tier lives under dir.
func New(st *store.Store, dir string, log logging.Logger, opts *Options) (*Cache, error) {
	maxEntries := defaultMaxMemoryEntries
	maxBytes := int64(defaultMaxMemoryBytes)
	if opts != nil {
		if opts.MaxMemoryEntries > 0 {
			maxEntries = opts.MaxMemoryEntries
		}
		if opts.MaxMemoryBytes > 0 {
			maxBytes = opts.MaxMemoryBytes
		}
	}

	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}

	c := &Cache{st: st, log: log, dir: abs, maxMemBytes: maxBytes}

	// the evict callback runs under c.mu (all lru calls do)
	c.mem, err = lru.NewWithEvict(maxEntries, func(_ string, v []byte) {
		c.memBytes -= int64(len(v))
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Cache) payloadPath(itemID string) string {
	return filepath.Join(c.dir, itemID+".bin")
}

// Put stores a payload in both tiers.
func (c *Cache) Put(ctx context.Context, itemID string, data []byte, now time.Time) error {
	if err := filex.WriteAtomic(c.payloadPath(itemID), data); err != nil {
		return fmt.Errorf("cache disk write: %w", err)
	}

	entry := &models.CacheEntry{ItemID: itemID, SizeBytes: int64(len(data)), CachedAt: now.UTC()}
	if err := c.st.CacheMeta.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("cache meta write: %w", err)
	}

	c.memPut(itemID, data)
	return nil
}

// Get returns a payload, promoting disk hits into memory. Returns
// common.ErrNotFound when the payload is in neither tier.
func (c *Cache) Get(ctx context.Context, itemID string) ([]byte, error) {
	c.mu.Lock()
	if data, ok := c.mem.Get(itemID); ok {
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	if _, err := c.st.CacheMeta.Get(ctx, itemID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.payloadPath(itemID))
	if errors.Is(err, os.ErrNotExist) {
		// orphaned metadata row; heal it
		_ = c.st.CacheMeta.Delete(ctx, itemID)
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache disk read: %w", err)
	}

	c.memPut(itemID, data)
	return data, nil
}

// Contains reports whether the item's payload is cached in either tier.
func (c *Cache) Contains(ctx context.Context, itemID string) bool {
	c.mu.Lock()
	ok := c.mem.Contains(itemID)
	c.mu.Unlock()
	if ok {
		return true
	}
	_, err := c.st.CacheMeta.Get(ctx, itemID)
	return err == nil
}

// Remove drops the payload from both tiers: file first, then the metadata
// row, so a crash in between leaves no file referencing a deleted row.
func (c *Cache) Remove(ctx context.Context, itemID string) error {
	c.mu.Lock()
	c.mem.Remove(itemID)
	c.mu.Unlock()

	if err := os.Remove(c.payloadPath(itemID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cache disk remove: %w", err)
	}
	return c.st.CacheMeta.Delete(ctx, itemID)
}

// PurgeMemory drops the whole memory tier, e.g. on a low-memory signal.
// The disk tier is untouched.
func (c *Cache) PurgeMemory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem.Purge()
	c.memBytes = 0
}

// MemoryBytes returns the current memory-tier payload size.
func (c *Cache) MemoryBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memBytes
}

// MemoryLen returns the number of entries in the memory tier.
func (c *Cache) MemoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mem.Len()
}

// Sweep deletes every expired item: cache payload, cache metadata row and
// the item row are removed as one logical unit. A failure on one item does
// not stop the sweep. Returns the number of items removed.
func (c *Cache) Sweep(ctx context.Context, now time.Time) (int, error) {
	expired, err := c.st.Items.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}

	removed := 0
	var errs []error
	for _, item := range expired {
		if err := c.removeItem(ctx, item); err != nil {
			errs = append(errs, fmt.Errorf("sweep %s: %w", item.ID, err))
			continue
		}
		removed++
	}

	if removed > 0 {
		c.log.Info(ctx, "expiry sweep removed items", "count", removed)
	}
	return removed, errors.Join(errs...)
}

// SweepGroup is the per-group variant run at the start of a sync pass.
func (c *Cache) SweepGroup(ctx context.Context, groupID string, now time.Time) error {
	expired, err := c.st.Items.ListExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("list expired: %w", err)
	}

	var errs []error
	for _, item := range expired {
		if item.GroupID != groupID {
			continue
		}
		if err := c.removeItem(ctx, item); err != nil {
			errs = append(errs, fmt.Errorf("sweep %s: %w", item.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Cache) removeItem(ctx context.Context, item *models.ContentItem) error {
	c.mu.Lock()
	c.mem.Remove(item.ID)
	c.mu.Unlock()

	// payload first, rows second
	if err := os.Remove(c.payloadPath(item.ID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove payload: %w", err)
	}
	if item.LocalPath != "" {
		_ = os.Remove(item.LocalPath)
	}

	return dbx.WithTx(ctx, c.st.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := cachemeta.NewSQLiteRepository(tx).Delete(ctx, item.ID); err != nil {
			return err
		}
		return items.NewSQLiteRepository(tx).DeleteByID(ctx, item.ID)
	})
}

func (c *Cache) memPut(itemID string, data []byte) {
	if int64(len(data)) > c.maxMemBytes {
		return // larger than the whole budget, disk tier only
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.mem.Peek(itemID); ok {
		c.memBytes -= int64(len(prev))
	}
	c.mem.Add(itemID, data)
	c.memBytes += int64(len(data))

	for c.memBytes > c.maxMemBytes {
		if _, _, ok := c.mem.RemoveOldest(); !ok {
			break
		}
	}
}
