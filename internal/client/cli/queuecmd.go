package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/antong314/dayly/internal/common"
)

// RetryFailed requeues every failed upload with a fresh attempt budget.
func (a *App) RetryFailed(ctx context.Context) error {
	n, err := a.queue.RetryAllFailed(ctx)
	if err != nil {
		printlnFn("Cannot retry:", err)
		return err
	}
	printlnFn(fmt.Sprintf("Requeued %d failed upload(s)", n))
	return nil
}

// Cancel removes a queued upload or aborts the one in flight.
func (a *App) Cancel(ctx context.Context, args []string) error {
	if len(args) < 1 {
		printlnFn("Usage: cancel <item>")
		return nil
	}

	if err := a.queue.Cancel(args[0]); err != nil {
		if errors.Is(err, common.ErrNotQueued) {
			printlnFn("No such upload in the queue.")
		} else {
			printlnFn("Cannot cancel:", err)
		}
		return err
	}
	printlnFn("Cancelled", args[0])
	return nil
}
