package cli

import "context"

// Sync runs a full synchronization pass on demand.
func (a *App) Sync(ctx context.Context) error {
	printlnFn("Syncing...")
	if err := a.syncer.Sync(ctx); err != nil {
		printlnFn("Sync finished with errors:", err)
		return err
	}
	printlnFn("Sync finished.")
	return nil
}
