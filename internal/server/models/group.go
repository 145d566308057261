package models

import "time"

// Group is a sharing circle. MemberIDs is populated by the service layer,
// not by every repository query.
type Group struct {
	ID        string
	Name      string
	MemberIDs []string
	CreatedAt time.Time
}
