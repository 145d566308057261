package models

import "time"

// QuotaMarker records one accepted send for (user, group, day). The local
// marker is optimistic: it is written at capture-accept time and confirmed
// only after the remote daily-send record exists. The Confirmed flag is the
// tagged variant that lets reconciliation tell the two apart.
type QuotaMarker struct {
	UserID  string
	GroupID string

	// Day is the user's local calendar day in common.DayFormat.
	Day string

	// Confirmed is false while the marker is a local optimistic guess and
	// true once the authoritative remote record has been written.
	Confirmed bool

	CreatedAt time.Time
}
