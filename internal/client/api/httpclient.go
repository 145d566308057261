package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const requestTimeout = 15 * time.Second

// HTTPClient implements Client against the content service's REST API.
// JSON calls go through http with a short timeout; payload byte transfers
// go through stream, which has none, and rely on the caller's context.
type HTTPClient struct {
	baseURL string
	session Session
	http    *http.Client
	stream  *http.Client
}

// NewHTTPClient builds a client for the service at baseURL.
func NewHTTPClient(baseURL string, session Session) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		session: session,
		http:    &http.Client{Timeout: requestTimeout},
		stream:  &http.Client{},
	}
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	c.stream.CloseIdleConnections()
	return nil
}

// do issues an authenticated request and decodes a JSON body into out when
// out is non-nil. Transport failures map to ErrUnavailable, statuses map
// through mapStatus.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.session.BearerToken(ctx)
	if err != nil {
		return fmt.Errorf("session token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return mapTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapStatus(resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

func (c *HTTPClient) Groups(ctx context.Context) ([]*RemoteGroup, error) {
	var resp struct {
		Groups []*RemoteGroup `json:"groups"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/groups", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

func (c *HTTPClient) IssueUploadDestination(ctx context.Context, groupID, itemID, day string, sizeBytes int64) (*UploadDestination, error) {
	req := struct {
		GroupID   string `json:"group_id"`
		ItemID    string `json:"item_id"`
		Day       string `json:"day"`
		SizeBytes int64  `json:"size_bytes"`
	}{GroupID: groupID, ItemID: itemID, Day: day, SizeBytes: sizeBytes}

	var dest UploadDestination
	if err := c.do(ctx, http.MethodPost, "/api/photos/upload-url", req, &dest); err != nil {
		return nil, err
	}
	return &dest, nil
}

func (c *HTTPClient) ConfirmUpload(ctx context.Context, req *ConfirmRequest) error {
	return c.do(ctx, http.MethodPost, "/api/photos/confirm", req, nil)
}

func (c *HTTPClient) ListContent(ctx context.Context, groupID string, since time.Time) ([]*RemoteItem, error) {
	path := fmt.Sprintf("/api/photos/group/%s?since=%s",
		url.PathEscape(groupID), url.QueryEscape(since.UTC().Format(time.RFC3339Nano)))

	var resp struct {
		Photos []*RemoteItem `json:"photos"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Photos, nil
}

func (c *HTTPClient) CheckDailySend(ctx context.Context, groupID, day string) (bool, error) {
	path := fmt.Sprintf("/api/sends/check?group_id=%s&day=%s",
		url.QueryEscape(groupID), url.QueryEscape(day))

	var resp struct {
		Sent bool `json:"sent"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Sent, nil
}

func (c *HTTPClient) CommitDailySend(ctx context.Context, groupID, day string) error {
	req := struct {
		GroupID string `json:"group_id"`
		Day     string `json:"day"`
	}{GroupID: groupID, Day: day}
	return c.do(ctx, http.MethodPost, "/api/sends", req, nil)
}

// Fetch downloads a payload from a presigned reference. No auth header: the
// signature in the URL is the credential.
func (c *HTTPClient) Fetch(ctx context.Context, fetchURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, mapTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, mapStatus(resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mapTransportErr(err)
	}
	return data, nil
}

// Upload streams a payload to a presigned destination. Like Fetch, the URL
// signature is the credential, so no auth header is sent.
func (c *HTTPClient) Upload(ctx context.Context, dst string, body io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, dst, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return mapTransportErr(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapStatus(resp.StatusCode)
	}
	return nil
}
