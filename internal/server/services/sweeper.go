package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/antong314/dayly/internal/logging"
	"github.com/antong314/dayly/internal/server/repositories/repomanager"
)

// SweepService purges photos whose expiry has passed: the stored object
// first, then the row. A photo that outlives its expiry by up to one sweep
// interval is acceptable; listings already filter expired rows out.
type SweepService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	storage     Storage
	log         logging.Logger
}

func NewSweepService(db *sql.DB, repomanager repomanager.RepositoryManager,
	storage Storage, log logging.Logger) *SweepService {
	return &SweepService{db: db, repomanager: repomanager, storage: storage, log: log}
}

// SweepOnce removes everything expired as of now and returns the number of
// photos purged. A failure on one photo does not stop the rest.
func (s *SweepService) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	repo := s.repomanager.Photos(s.db)

	expired, err := repo.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range expired {
		if err := s.storage.DeleteObject(ctx, p.StorageKey); err != nil {
			s.log.Warn(ctx, "delete expired object failed", "photo_id", p.ID, "key", p.StorageKey, "error", err)
			continue
		}
		if err := repo.DeleteByID(ctx, p.ID); err != nil {
			s.log.Warn(ctx, "delete expired row failed", "photo_id", p.ID, "error", err)
			continue
		}
		removed++
	}

	return removed, nil
}

// Run sweeps on the given interval until the context is cancelled.
func (s *SweepService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepOnce(ctx, time.Now())
			if err != nil {
				s.log.Error(ctx, "sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.log.Info(ctx, "sweep removed expired photos", "count", n)
			}
		}
	}
}
