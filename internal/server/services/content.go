// Package services holds the server's business logic: issuing upload
// destinations, confirming uploads, listing group content, daily-send
// bookkeeping, and expiry sweeping.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/antong314/dayly/internal/common"
	"github.com/antong314/dayly/internal/dbx"
	"github.com/antong314/dayly/internal/logging"
	sc "github.com/antong314/dayly/internal/server/config"
	"github.com/antong314/dayly/internal/server/models"
	"github.com/antong314/dayly/internal/server/repositories/repomanager"
)

// UploadGrant is a presigned PUT destination for one photo.
type UploadGrant struct {
	StorageKey string
	URL        string
}

// ContentItem is a photo plus a short-lived fetch URL, as returned by a
// group listing.
type ContentItem struct {
	Photo    *models.Photo
	FetchURL string
}

// Storage is the object-store surface ContentService depends on.
type Storage interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

type ContentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	storage     Storage
	notifier    Notifier
	config      *sc.Config
	log         logging.Logger
}

func NewContentService(db *sql.DB, repomanager repomanager.RepositoryManager,
	storage Storage, notifier Notifier, config *sc.Config, log logging.Logger) *ContentService {
	return &ContentService{
		db:          db,
		repomanager: repomanager,
		storage:     storage,
		notifier:    notifier,
		config:      config,
		log:         log,
	}
}

// Groups returns the caller's groups with member lists populated.
func (s *ContentService) Groups(ctx context.Context, userID string) ([]*models.Group, error) {
	repo := s.repomanager.Groups(s.db)

	groups, err := repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, g := range groups {
		members, err := repo.MembersOf(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		g.MemberIDs = members
	}

	return groups, nil
}

func (s *ContentService) requireMember(ctx context.Context, groupID, userID string) error {
	ok, err := s.repomanager.Groups(s.db).IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %s in group %s: %w", userID, groupID, common.ErrUnauthorized)
	}
	return nil
}

// IssueUploadURL validates the send and hands out a presigned PUT target.
// The daily-send check here is advisory; the record is only written at
// confirm time, so an abandoned upload never burns the day's send.
func (s *ContentService) IssueUploadURL(ctx context.Context, userID, groupID, photoID, day string, sizeBytes int64) (*UploadGrant, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	if _, err := time.Parse(common.DayFormat, day); err != nil {
		return nil, fmt.Errorf("day %q: %w", day, common.ErrPayloadInvalid)
	}
	if sizeBytes <= 0 || sizeBytes > s.config.MaxPhotoBytes {
		return nil, fmt.Errorf("size %d bytes: %w", sizeBytes, common.ErrPayloadInvalid)
	}

	sent, err := s.repomanager.DailySends(s.db).Exists(ctx, userID, groupID, day)
	if err != nil {
		return nil, err
	}
	if sent {
		return nil, fmt.Errorf("user %s group %s day %s: %w", userID, groupID, day, common.ErrQuotaExceeded)
	}

	key := StorageKeyFor(groupID, photoID)
	url, err := s.storage.PresignPut(ctx, key)
	if err != nil {
		return nil, err
	}

	return &UploadGrant{StorageKey: key, URL: url}, nil
}

// ConfirmUpload registers the uploaded photo and writes the authoritative
// daily-send record in one transaction. Confirming the same photo twice is
// a no-op. The first photo a group receives on a given day triggers a
// notification to the other members.
func (s *ContentService) ConfirmUpload(ctx context.Context, userID string, photo *models.Photo) error {
	if err := s.requireMember(ctx, photo.GroupID, userID); err != nil {
		return err
	}
	if _, err := time.Parse(common.DayFormat, photo.Day); err != nil {
		return fmt.Errorf("day %q: %w", photo.Day, common.ErrPayloadInvalid)
	}

	photo.SenderID = userID
	photo.ExpiresAt = photo.CreatedAt.Add(common.ContentTTL)

	var firstOfDay bool
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		photoRepo := s.repomanager.Photos(tx)

		before, err := photoRepo.CountOnDay(ctx, photo.GroupID, photo.Day)
		if err != nil {
			return err
		}

		inserted, err := photoRepo.Create(ctx, photo)
		if err != nil {
			return err
		}
		firstOfDay = inserted && before == 0

		_, err = s.repomanager.DailySends(tx).Insert(ctx, userID, photo.GroupID, photo.Day)
		return err
	})
	if err != nil {
		return err
	}

	if firstOfDay {
		members, err := s.repomanager.Groups(s.db).MembersOf(ctx, photo.GroupID)
		if err != nil {
			s.log.Warn(ctx, "notify members lookup failed", "group_id", photo.GroupID, "error", err)
			return nil
		}
		recipients := make([]string, 0, len(members))
		for _, m := range members {
			if m != userID {
				recipients = append(recipients, m)
			}
		}
		s.notifier.FirstContentOfDay(ctx, photo.GroupID, userID, photo.Day, recipients)
	}

	return nil
}

// ListGroupContent returns the group's unexpired photos created after the
// given instant, each with a presigned fetch URL.
func (s *ContentService) ListGroupContent(ctx context.Context, userID, groupID string, since time.Time) ([]*ContentItem, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	photos, err := s.repomanager.Photos(s.db).ListByGroupSince(ctx, groupID, since)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	items := make([]*ContentItem, 0, len(photos))
	for _, p := range photos {
		if !p.ExpiresAt.After(now) {
			continue
		}
		url, err := s.storage.PresignGet(ctx, p.StorageKey)
		if err != nil {
			s.log.Warn(ctx, "presign fetch url failed", "photo_id", p.ID, "error", err)
			url = ""
		}
		items = append(items, &ContentItem{Photo: p, FetchURL: url})
	}

	return items, nil
}

// CheckDailySend reports whether the caller already has a daily-send record
// for the group and day.
func (s *ContentService) CheckDailySend(ctx context.Context, userID, groupID, day string) (bool, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return false, err
	}
	return s.repomanager.DailySends(s.db).Exists(ctx, userID, groupID, day)
}

// CommitDailySend upserts the daily-send record. Idempotent.
func (s *ContentService) CommitDailySend(ctx context.Context, userID, groupID, day string) error {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return err
	}
	if _, err := time.Parse(common.DayFormat, day); err != nil {
		return fmt.Errorf("day %q: %w", day, common.ErrPayloadInvalid)
	}
	_, err := s.repomanager.DailySends(s.db).Insert(ctx, userID, groupID, day)
	return err
}
