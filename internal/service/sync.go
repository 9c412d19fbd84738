package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/internal/importer"
	"github.com/amiyamandal-dev/podsync/internal/repository"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

// SyncService runs import and update cycles for stored feeds
type SyncService struct {
	feedRepo  repository.FeedRepository
	engine    *importer.Engine
	principal string
	logger    *logger.Logger
}

// NewSyncService creates a new sync service. principal is the author of
// items imported by scheduled cycles when the feed names none.
func NewSyncService(
	feedRepo repository.FeedRepository,
	engine *importer.Engine,
	principal string,
	logger *logger.Logger,
) *SyncService {
	return &SyncService{
		feedRepo:  feedRepo,
		engine:    engine,
		principal: principal,
		logger:    logger.WithComponent("sync-service"),
	}
}

// ImportChunk processes one page of an interactive import
func (s *SyncService) ImportChunk(ctx context.Context, feedID string, req *domain.ChunkRequest, principal string) (*domain.ChunkResult, error) {
	feed, err := s.feedRepo.Get(ctx, feedID)
	if err != nil {
		return nil, err
	}
	return s.engine.ProcessChunk(ctx, feed, req.Offset, req.Limit, principal)
}

// RunFeed runs the scheduled cycle of one feed: new items are imported when
// ongoing import is on, then changed items are updated when auto-update is on.
func (s *SyncService) RunFeed(ctx context.Context, feedID string) (*domain.CycleReport, error) {
	feed, err := s.feedRepo.Get(ctx, feedID)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFeed(feed.ID, feed.FeedURL)
	report := &domain.CycleReport{FeedID: feed.ID}

	var errs []error
	if feed.OngoingImport {
		log.Info("Auto-fetch started")
		results, err := s.engine.ImportAll(ctx, feed, s.principal)
		if err != nil {
			log.Error("Auto-fetch failed", "error", err)
			errs = append(errs, fmt.Errorf("auto-fetch: %w", err))
		} else {
			report.Imported = results
			log.Info("Auto-fetch completed", "imported", domain.SuccessCount(results), "results", len(results))
		}
	}

	if feed.AutoUpdate {
		// Reload so the stored marker reflects any write made above
		current, err := s.feedRepo.Get(ctx, feedID)
		if err != nil {
			return report, errors.Join(append(errs, err)...)
		}
		updated, err := s.engine.Reconcile(ctx, current)
		if err != nil {
			log.Error("Auto-update failed", "error", err)
			errs = append(errs, fmt.Errorf("auto-update: %w", err))
		} else {
			report.UpdatedTitles = updated
			log.Info("Auto-update completed", "updated", len(updated))
		}
	}

	return report, errors.Join(errs...)
}

// TriggerSync manually runs the scheduled cycle of a feed
func (s *SyncService) TriggerSync(ctx context.Context, feedID string) (*domain.CycleReport, error) {
	return s.RunFeed(ctx, feedID)
}

// Handle is the scheduler callback. Failures are logged; the next tick retries.
func (s *SyncService) Handle(ctx context.Context, feedID string) {
	if _, err := s.RunFeed(ctx, feedID); err != nil {
		if errors.Is(err, domain.ErrFeedNotFound) {
			s.logger.Warn("Scheduled feed no longer exists", "feed_id", feedID)
			return
		}
		s.logger.WithError(err).Error("Scheduled cycle failed", "feed_id", feedID)
	}
}
