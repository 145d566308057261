// Package httpapi exposes the content service over REST. Handlers translate
// between the wire JSON and the service layer; business rules live below.
package httpapi

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/antong314/dayly/internal/logging"
	"github.com/antong314/dayly/internal/server/models"
	"github.com/antong314/dayly/internal/server/services"
)

// ContentAPI is the service surface the handlers depend on. ContentService
// implements it; handler tests use a fake.
type ContentAPI interface {
	Groups(ctx context.Context, userID string) ([]*models.Group, error)
	IssueUploadURL(ctx context.Context, userID, groupID, photoID, day string, sizeBytes int64) (*services.UploadGrant, error)
	ConfirmUpload(ctx context.Context, userID string, photo *models.Photo) error
	ListGroupContent(ctx context.Context, userID, groupID string, since time.Time) ([]*services.ContentItem, error)
	CheckDailySend(ctx context.Context, userID, groupID, day string) (bool, error)
	CommitDailySend(ctx context.Context, userID, groupID, day string) error
}

// Routes holds handler dependencies.
type Routes struct {
	svc ContentAPI
	log logging.Logger
}

func NewRoutes(svc ContentAPI, log logging.Logger) *Routes {
	return &Routes{svc: svc, log: log}
}

// NewRouter builds the full API router. Everything under /api except the
// health probe requires a bearer token signed with secretKey.
func NewRouter(svc ContentAPI, secretKey string, log logging.Logger) *chi.Mux {
	rt := NewRoutes(svc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", rt.health)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(secretKey))

			r.Get("/groups", rt.listGroups)
			r.Post("/photos/upload-url", rt.issueUploadURL)
			r.Post("/photos/confirm", rt.confirmUpload)
			r.Get("/photos/group/{groupID}", rt.listGroupContent)
			r.Get("/sends/check", rt.checkDailySend)
			r.Post("/sends", rt.commitDailySend)
		})
	})

	return r
}
