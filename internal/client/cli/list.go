package cli

import (
	"context"
	"fmt"
	"time"
)

// Groups prints the locally known groups. Works offline: the list reflects
// the last successful sync.
func (a *App) Groups(ctx context.Context) error {
	groups, err := a.st.Groups.List(ctx)
	if err != nil {
		printlnFn("Cannot list groups:", err)
		return err
	}
	if len(groups) == 0 {
		printlnFn("No groups yet. Run 'sync' while online.")
		return nil
	}

	for _, g := range groups {
		last := "no content yet"
		if !g.LastContentAt.IsZero() {
			last = "last photo " + g.LastContentAt.Local().Format("Jan 2 15:04")
		}
		printlnFn(fmt.Sprintf("%s  %s (%d members, %s)", g.ID, g.Name, len(g.MemberIDs), last))
	}
	return nil
}

// List prints a group's visible content, newest first. Expired items never
// show up even if a sweep has not removed them yet.
func (a *App) List(ctx context.Context, args []string) error {
	if len(args) < 1 {
		printlnFn("Usage: list <group>")
		return nil
	}
	groupID := args[0]

	items, err := a.st.Items.ListVisible(ctx, groupID, time.Now())
	if err != nil {
		printlnFn("Cannot list content:", err)
		return err
	}
	if len(items) == 0 {
		printlnFn("Nothing visible in this group.")
		return nil
	}

	for _, it := range items {
		cached := ""
		if a.cache.Contains(ctx, it.ID) {
			cached = " [cached]"
		}
		printlnFn(fmt.Sprintf("%s  from %s at %s, %s%s",
			it.ID, it.SenderID, it.CreatedAt.Local().Format("Jan 2 15:04"), it.State, cached))
	}
	return nil
}
