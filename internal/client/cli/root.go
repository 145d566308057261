package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
)

func (a *App) getStatus() string {
	queued, inFlight := a.queue.Stats()
	if inFlight != "" {
		return fmt.Sprintf("(uploading, %d queued)", queued)
	}
	if queued > 0 {
		return fmt.Sprintf("(%d queued)", queued)
	}
	return "(idle)"
}

func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to Dayly CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
