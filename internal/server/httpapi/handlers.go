package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/antong314/dayly/internal/common"
	"github.com/antong314/dayly/internal/server/models"
)

// Wire DTOs. Field names are part of the client contract.

type groupResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

type uploadURLRequest struct {
	GroupID   string `json:"group_id"`
	ItemID    string `json:"item_id"`
	Day       string `json:"day"`
	SizeBytes int64  `json:"size_bytes"`
}

type uploadURLResponse struct {
	RemoteKey string `json:"remote_key"`
	URL       string `json:"url"`
}

type confirmRequest struct {
	ItemID    string    `json:"item_id"`
	GroupID   string    `json:"group_id"`
	RemoteKey string    `json:"remote_key"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	Day       string    `json:"day"`
}

type photoResponse struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	SenderID  string    `json:"sender_id"`
	RemoteKey string    `json:"remote_key"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	FetchURL  string    `json:"url"`
}

type commitSendRequest struct {
	GroupID string `json:"group_id"`
	Day     string `json:"day"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps service errors onto HTTP statuses. The mapping is the
// inverse of the client's status handling.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		writeErrorStatus(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, common.ErrQuotaExceeded):
		writeErrorStatus(w, http.StatusConflict, "daily send already spent")
	case errors.Is(err, common.ErrPayloadInvalid):
		writeErrorStatus(w, http.StatusUnprocessableEntity, "invalid payload")
	case errors.Is(err, common.ErrNotFound):
		writeErrorStatus(w, http.StatusNotFound, "not found")
	default:
		writeErrorStatus(w, http.StatusInternalServerError, "internal error")
	}
}

func (rt *Routes) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Routes) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := rt.svc.Groups(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		rt.log.Error(r.Context(), "list groups failed", "error", err)
		writeError(w, err)
		return
	}

	resp := struct {
		Groups []groupResponse `json:"groups"`
	}{Groups: make([]groupResponse, 0, len(groups))}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, groupResponse{ID: g.ID, Name: g.Name, MemberIDs: g.MemberIDs})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Routes) issueUploadURL(w http.ResponseWriter, r *http.Request) {
	var req uploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "malformed request body")
		return
	}

	grant, err := rt.svc.IssueUploadURL(r.Context(), userIDFrom(r.Context()),
		req.GroupID, req.ItemID, req.Day, req.SizeBytes)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadURLResponse{RemoteKey: grant.StorageKey, URL: grant.URL})
}

func (rt *Routes) confirmUpload(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "malformed request body")
		return
	}

	photo := &models.Photo{
		ID:         req.ItemID,
		GroupID:    req.GroupID,
		StorageKey: req.RemoteKey,
		SizeBytes:  req.SizeBytes,
		Day:        req.Day,
		CreatedAt:  req.CreatedAt.UTC(),
	}
	if err := rt.svc.ConfirmUpload(r.Context(), userIDFrom(r.Context()), photo); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Routes) listGroupContent(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	since := time.Time{}
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeErrorStatus(w, http.StatusBadRequest, "malformed since parameter")
			return
		}
		since = parsed
	}

	items, err := rt.svc.ListGroupContent(r.Context(), userIDFrom(r.Context()), groupID, since)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := struct {
		Photos []photoResponse `json:"photos"`
	}{Photos: make([]photoResponse, 0, len(items))}
	for _, it := range items {
		resp.Photos = append(resp.Photos, photoResponse{
			ID:        it.Photo.ID,
			GroupID:   it.Photo.GroupID,
			SenderID:  it.Photo.SenderID,
			RemoteKey: it.Photo.StorageKey,
			SizeBytes: it.Photo.SizeBytes,
			CreatedAt: it.Photo.CreatedAt,
			ExpiresAt: it.Photo.ExpiresAt,
			FetchURL:  it.FetchURL,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Routes) checkDailySend(w http.ResponseWriter, r *http.Request) {
	groupID := r.URL.Query().Get("group_id")
	day := r.URL.Query().Get("day")
	if groupID == "" || day == "" {
		writeErrorStatus(w, http.StatusBadRequest, "group_id and day are required")
		return
	}

	sent, err := rt.svc.CheckDailySend(r.Context(), userIDFrom(r.Context()), groupID, day)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Sent bool `json:"sent"`
	}{Sent: sent})
}

func (rt *Routes) commitDailySend(w http.ResponseWriter, r *http.Request) {
	var req commitSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := rt.svc.CommitDailySend(r.Context(), userIDFrom(r.Context()), req.GroupID, req.Day); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
