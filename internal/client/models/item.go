// Package models defines the client-side data model: content items, groups,
// quota markers, transfer descriptors and cache entries.
package models

import (
	"time"

	"github.com/antong314/dayly/internal/common"
	"github.com/google/uuid"
)

// ItemState is the upload lifecycle state of a content item.
type ItemState string

const (
	ItemStatePending   ItemState = "pending"
	ItemStateUploading ItemState = "uploading"
	ItemStateUploaded  ItemState = "uploaded"
	ItemStateFailed    ItemState = "failed"
)

// ContentItem is one shareable media unit plus its lifecycle metadata.
// Once uploaded, the row is immutable except for expiry-driven deletion.
type ContentItem struct {
	// ID is globally unique. Remote-origin items keep the server's id so
	// inserts stay idempotent across concurrent sync passes.
	ID string

	GroupID  string
	SenderID string

	// LocalPath points at the captured payload on disk; empty for items
	// whose payload lives only in the cache.
	LocalPath string

	// RemoteKey is the storage key assigned by the content service, set
	// once the item is uploaded or discovered remotely.
	RemoteKey string

	SizeBytes int64

	CreatedAt time.Time
	// ExpiresAt is always CreatedAt + common.ContentTTL.
	ExpiresAt time.Time

	State ItemState
}

// NewContentItem builds a pending item for a fresh local capture.
// Timestamps are UTC; ExpiresAt is derived, never stored independently.
func NewContentItem(groupID, senderID, localPath string, size int64, now time.Time) *ContentItem {
	created := now.UTC()
	return &ContentItem{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		SenderID:  senderID,
		LocalPath: localPath,
		SizeBytes: size,
		CreatedAt: created,
		ExpiresAt: created.Add(common.ContentTTL),
		State:     ItemStatePending,
	}
}

// Expired reports whether the item is past its expiry at the given instant.
func (i *ContentItem) Expired(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}
