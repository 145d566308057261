package cli

import (
	"context"
	"fmt"

	"github.com/antong314/dayly/internal/client/models"
)

// Status prints queue depth, per-state item counts and cache usage.
func (a *App) Status(ctx context.Context) error {
	queued, inFlight := a.queue.Stats()
	if inFlight != "" {
		printlnFn(fmt.Sprintf("Uploading %s, %d more queued", inFlight, queued))
	} else {
		printlnFn(fmt.Sprintf("Queue: %d item(s)", queued))
	}

	for _, state := range []models.ItemState{
		models.ItemStatePending,
		models.ItemStateUploading,
		models.ItemStateUploaded,
		models.ItemStateFailed,
	} {
		list, err := a.st.Items.ListByState(ctx, state)
		if err != nil {
			return err
		}
		if len(list) > 0 {
			printlnFn(fmt.Sprintf("  %s: %d", state, len(list)))
		}
	}

	total, err := a.st.CacheMeta.TotalBytes(ctx)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Cache: %d entries in memory (%d bytes), %d bytes on disk",
		a.cache.MemoryLen(), a.cache.MemoryBytes(), total))
	return nil
}
