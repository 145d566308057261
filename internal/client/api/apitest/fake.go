// Package apitest provides a configurable in-memory api.Client for tests.
package apitest

import (
	"context"
	"io"
	"time"

	"github.com/antong314/dayly/internal/client/api"
)

// Fake implements api.Client. Set the function field for each call a test
// cares about; unset calls succeed with zero values.
type Fake struct {
	PingFn                   func(ctx context.Context) error
	GroupsFn                 func(ctx context.Context) ([]*api.RemoteGroup, error)
	IssueUploadDestinationFn func(ctx context.Context, groupID, itemID, day string, sizeBytes int64) (*api.UploadDestination, error)
	ConfirmUploadFn          func(ctx context.Context, req *api.ConfirmRequest) error
	ListContentFn            func(ctx context.Context, groupID string, since time.Time) ([]*api.RemoteItem, error)
	CheckDailySendFn         func(ctx context.Context, groupID, day string) (bool, error)
	CommitDailySendFn        func(ctx context.Context, groupID, day string) error
	FetchFn                  func(ctx context.Context, url string) ([]byte, error)
	UploadFn                 func(ctx context.Context, url string, body io.Reader, size int64) error
}

var _ api.Client = (*Fake)(nil)

func (f *Fake) Close() error { return nil }

func (f *Fake) Ping(ctx context.Context) error {
	if f.PingFn == nil {
		return nil
	}
	return f.PingFn(ctx)
}

func (f *Fake) Groups(ctx context.Context) ([]*api.RemoteGroup, error) {
	if f.GroupsFn == nil {
		return nil, nil
	}
	return f.GroupsFn(ctx)
}

func (f *Fake) IssueUploadDestination(ctx context.Context, groupID, itemID, day string, sizeBytes int64) (*api.UploadDestination, error) {
	if f.IssueUploadDestinationFn == nil {
		return &api.UploadDestination{RemoteKey: "key-" + itemID, URL: "http://unused"}, nil
	}
	return f.IssueUploadDestinationFn(ctx, groupID, itemID, day, sizeBytes)
}

func (f *Fake) ConfirmUpload(ctx context.Context, req *api.ConfirmRequest) error {
	if f.ConfirmUploadFn == nil {
		return nil
	}
	return f.ConfirmUploadFn(ctx, req)
}

func (f *Fake) ListContent(ctx context.Context, groupID string, since time.Time) ([]*api.RemoteItem, error) {
	if f.ListContentFn == nil {
		return nil, nil
	}
	return f.ListContentFn(ctx, groupID, since)
}

func (f *Fake) CheckDailySend(ctx context.Context, groupID, day string) (bool, error) {
	if f.CheckDailySendFn == nil {
		return false, nil
	}
	return f.CheckDailySendFn(ctx, groupID, day)
}

func (f *Fake) CommitDailySend(ctx context.Context, groupID, day string) error {
	if f.CommitDailySendFn == nil {
		return nil
	}
	return f.CommitDailySendFn(ctx, groupID, day)
}

func (f *Fake) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.FetchFn == nil {
		return nil, nil
	}
	return f.FetchFn(ctx, url)
}

func (f *Fake) Upload(ctx context.Context, url string, body io.Reader, size int64) error {
	if f.UploadFn == nil {
		_, err := io.Copy(io.Discard, body)
		return err
	}
	return f.UploadFn(ctx, url, body, size)
}
