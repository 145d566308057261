package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/antong314/dayly/internal/client/models"
	"github.com/antong314/dayly/internal/common"
	"github.com/antong314/dayly/internal/filex"
	"time"
)

// Capture accepts a photo for a group and queues its upload. The payload is
// copied into the data directory first so the original file can disappear
// without breaking a retry days later.
func (a *App) Capture(ctx context.Context, args []string) error {
	if len(args) < 2 {
		printlnFn("Usage: capture <group> <file>")
		return nil
	}
	groupID, src := args[0], args[1]
	now := time.Now()

	ok, err := a.guard.CanSend(ctx, groupID, now)
	if err != nil {
		printlnFn("Cannot check today's quota:", err)
		return err
	}
	if !ok {
		printlnFn("Already sent to this group today. Try again tomorrow.")
		return common.ErrQuotaExceeded
	}

	info, err := os.Stat(src)
	if err != nil {
		printlnFn("Cannot read file:", err)
		return err
	}

	capturesDir, err := filex.EnsureSubDir(a.config.DataDir, "captures")
	if err != nil {
		return err
	}

	item := models.NewContentItem(groupID, a.session.UserID(), "", info.Size(), now)
	item.LocalPath = filepath.Join(capturesDir, item.ID+filepath.Ext(src))
	if _, err := filex.CopyFile(src, item.LocalPath); err != nil {
		printlnFn("Cannot copy file:", err)
		return err
	}

	if err := a.guard.Accept(ctx, item, now); err != nil {
		os.Remove(item.LocalPath)
		if errors.Is(err, common.ErrQuotaExceeded) {
			printlnFn("Already sent to this group today. Try again tomorrow.")
		} else {
			printlnFn("Cannot accept capture:", err)
		}
		return err
	}

	if err := a.queue.Enqueue(item.ID); err != nil {
		printlnFn("Cannot queue upload:", err)
		return err
	}
	printlnFn(fmt.Sprintf("Queued %s for upload to %s", item.ID, groupID))

	// refresh just this group so the new photo shows up promptly
	go func() {
		if err := a.syncer.SyncGroup(context.WithoutCancel(ctx), groupID); err != nil {
			a.log.Debug(ctx, "post-capture group sync failed", "group_id", groupID, "error", err)
		}
	}()
	return nil
}
