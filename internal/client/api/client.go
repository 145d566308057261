// Package api talks to the remote content service. The Client interface is
// the contract the engine depends on; the HTTP implementation lives in
// httpclient.go and test doubles implement the same interface.
package api

import (
	"context"
	"io"
	"time"
)

// RemoteItem is a content descriptor returned by a group listing. FetchURL
// is a short-lived presigned GET reference for the payload.
type RemoteItem struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	SenderID  string    `json:"sender_id"`
	RemoteKey string    `json:"remote_key"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	FetchURL  string    `json:"url"`
}

// RemoteGroup is a group descriptor from the server.
type RemoteGroup struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

// UploadDestination is a presigned PUT target for one item's payload.
type UploadDestination struct {
	RemoteKey string `json:"remote_key"`
	URL       string `json:"url"`
}

// ConfirmRequest registers an uploaded item's metadata with the server.
type ConfirmRequest struct {
	ItemID    string    `json:"item_id"`
	GroupID   string    `json:"group_id"`
	RemoteKey string    `json:"remote_key"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	Day       string    `json:"day"`
}

// Client is the remote content-service contract.
type Client interface {
	Close() error

	// Ping probes reachability.
	Ping(ctx context.Context) error

	// Groups lists the caller's groups.
	Groups(ctx context.Context) ([]*RemoteGroup, error)

	// IssueUploadDestination asks for a presigned PUT target for an item.
	// Fails with ErrQuotaExceeded if a daily-send record already exists
	// for (caller, group, day).
	IssueUploadDestination(ctx context.Context, groupID, itemID, day string, sizeBytes int64) (*UploadDestination, error)

	// ConfirmUpload registers the item remotely and upserts the
	// authoritative daily-send record. Idempotent: confirming twice is a
	// no-op.
	ConfirmUpload(ctx context.Context, req *ConfirmRequest) error

	// ListContent returns descriptors for a group created since the given
	// instant.
	ListContent(ctx context.Context, groupID string, since time.Time) ([]*RemoteItem, error)

	// CheckDailySend reports whether a daily-send record exists for
	// (caller, group, day).
	CheckDailySend(ctx context.Context, groupID, day string) (bool, error)

	// CommitDailySend idempotently upserts the daily-send record.
	CommitDailySend(ctx context.Context, groupID, day string) error

	// Fetch downloads a payload from a short-lived reference.
	Fetch(ctx context.Context, url string) ([]byte, error)

	// Upload streams a payload to a presigned destination.
	Upload(ctx context.Context, url string, body io.Reader, size int64) error
}

// Session supplies the current user identity and bearer credential. An
// implementation wrapping the real identity provider is injected at app
// start; tests use a static one.
type Session interface {
	// UserID returns the authenticated user's id.
	UserID() string

	// BearerToken returns a credential for the next request.
	BearerToken(ctx context.Context) (string, error)

	// Timezone returns the user's current local timezone, used for the
	// daily-quota midnight boundary.
	Timezone() *time.Location
}

// StaticSession is a fixed-identity Session.
type StaticSession struct {
	User  string
	Token string
	Loc   *time.Location
}

func (s *StaticSession) UserID() string { return s.User }

func (s *StaticSession) BearerToken(ctx context.Context) (string, error) { return s.Token, nil }

func (s *StaticSession) Timezone() *time.Location {
	if s.Loc == nil {
		return time.Local
	}
	return s.Loc
}
