// Package models defines the server-side data model.
package models

import "time"

// Photo is a stored content item. Day is the sender's local calendar day
// the send counted against, kept so the first-photo-of-day check does not
// depend on the server's timezone.
type Photo struct {
	ID         string
	GroupID    string
	SenderID   string
	StorageKey string
	SizeBytes  int64
	Day        string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}
