package common

import "time"

const (
	// ContentTTL is the fixed lifetime of a content item. ExpiresAt is
	// always CreatedAt + ContentTTL.
	ContentTTL = 48 * time.Hour

	// VisibilityWindow bounds how far back remote listings reach during
	// a sync pass. Anything older is past expiry anyway.
	VisibilityWindow = 48 * time.Hour

	// DayFormat is the canonical YYYY-MM-DD key for daily-send records.
	DayFormat = "2006-01-02"
)

// LocalDay returns the calendar day of t in the given location, formatted
// with DayFormat. Timestamps are stored in UTC; the conversion to the
// user's timezone happens here and nowhere else.
func LocalDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayFormat)
}
