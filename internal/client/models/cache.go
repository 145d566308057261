package models

import "time"

// CacheEntry is the disk-tier metadata row for a cached payload. The memory
// tier is tracked in-process only; losing it costs nothing but a re-read.
type CacheEntry struct {
	ItemID    string
	SizeBytes int64
	CachedAt  time.Time
}
