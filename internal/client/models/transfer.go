package models

import "time"

// TransferState is the persisted descriptor of an in-flight byte transfer.
// It survives process restarts so a transfer finishing after a relaunch can
// be reassociated with its content item.
type TransferState struct {
	ItemID string

	// UploadURL is the presigned destination issued by the content service.
	UploadURL string

	// RemoteKey is the storage key the destination was issued for.
	RemoteKey string

	LocalPath  string
	BytesSent  int64
	TotalBytes int64

	StartedAt time.Time
}
