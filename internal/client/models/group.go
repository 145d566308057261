package models

import "time"

// Group is a small circle of people a user shares with.
type Group struct {
	ID        string
	Name      string
	MemberIDs []string

	// LastContentAt is derived from the newest known item for the group;
	// zero when the group has no visible content.
	LastContentAt time.Time
}
