package models

import "time"

// DailySend is the authoritative one-send-per-day record. The
// (UserID, GroupID, SentOn) tuple is unique; inserts race through the
// database constraint, not application locks.
type DailySend struct {
	UserID    string
	GroupID   string
	SentOn    string
	CreatedAt time.Time
}
