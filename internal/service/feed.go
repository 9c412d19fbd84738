package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/internal/repository"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

// Scheduler registers the periodic trigger of a feed
type Scheduler interface {
	Schedule(feedID string, interval time.Duration)
	Cancel(feedID string)
	Reconcile(intents map[string]time.Duration)
}

// SnapshotInvalidator drops cached feed bodies
type SnapshotInvalidator interface {
	Invalidate(feedID string)
}

// FeedService handles feed configuration and its scheduling intent
type FeedService struct {
	feedRepo        repository.FeedRepository
	scheduler       Scheduler
	snapshots       SnapshotInvalidator
	defaultInterval int
	logger          *logger.Logger
}

// NewFeedService creates a new feed service
func NewFeedService(
	feedRepo repository.FeedRepository,
	scheduler Scheduler,
	snapshots SnapshotInvalidator,
	defaultIntervalMinutes int,
	logger *logger.Logger,
) *FeedService {
	if defaultIntervalMinutes < 1 {
		defaultIntervalMinutes = domain.DefaultAutoFetchMinutes
	}
	return &FeedService{
		feedRepo:        feedRepo,
		scheduler:       scheduler,
		snapshots:       snapshots,
		defaultInterval: defaultIntervalMinutes,
		logger:          logger.WithComponent("feed-service"),
	}
}

// Create stores a new feed configuration keyed by the identity of its URL
func (s *FeedService) Create(ctx context.Context, req *domain.FeedCreateRequest) (*domain.FeedConfig, error) {
	id := domain.FeedIdentity(req.FeedURL)

	_, err := s.feedRepo.Get(ctx, id)
	if err == nil {
		return nil, domain.ErrFeedExists
	}
	if !errors.Is(err, domain.ErrFeedNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	feed := &domain.FeedConfig{
		ID:               id,
		FeedURL:          req.FeedURL,
		CutoffDate:       req.CutoffDate,
		PostStatus:       req.PostStatus,
		DefaultCategory:  req.DefaultCategory,
		Author:           req.Author,
		OngoingImport:    req.OngoingImport,
		AutoFetchMinutes: s.interval(req.AutoFetch),
		AutoUpdate:       req.AutoUpdate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if feed.PostStatus == "" {
		feed.PostStatus = domain.StatusPublish
	}

	if err := feed.Validate(); err != nil {
		return nil, err
	}

	if err := s.feedRepo.Put(ctx, feed); err != nil {
		s.logger.Error("Failed to create feed", "feed_url", req.FeedURL, "error", err)
		return nil, fmt.Errorf("failed to create feed: %w", err)
	}

	s.applyIntent(feed)
	s.logger.Info("Feed created successfully", "feed_id", feed.ID, "feed_url", feed.FeedURL)

	return feed, nil
}

// Get retrieves a feed by id
func (s *FeedService) Get(ctx context.Context, id string) (*domain.FeedConfig, error) {
	return s.feedRepo.Get(ctx, id)
}

// List retrieves all feeds
func (s *FeedService) List(ctx context.Context) ([]*domain.FeedConfig, error) {
	return s.feedRepo.List(ctx)
}

// Update edits a feed. Changing the interval or the scheduled flags replaces
// the feed's timer.
func (s *FeedService) Update(ctx context.Context, id string, req *domain.FeedUpdateRequest) (*domain.FeedConfig, error) {
	feed, err := s.feedRepo.Update(ctx, id, func(feed *domain.FeedConfig) error {
		if req.CutoffDate != nil {
			feed.CutoffDate = *req.CutoffDate
		}
		if req.PostStatus != "" {
			feed.PostStatus = req.PostStatus
		}
		if req.DefaultCategory != nil {
			feed.DefaultCategory = *req.DefaultCategory
		}
		if req.Author != nil {
			feed.Author = *req.Author
		}
		if req.OngoingImport != nil {
			feed.OngoingImport = *req.OngoingImport
		}
		if req.AutoUpdate != nil {
			feed.AutoUpdate = *req.AutoUpdate
		}
		if req.AutoFetch != 0 {
			feed.AutoFetchMinutes = s.interval(req.AutoFetch)
		}
		return feed.Validate()
	})
	if err != nil {
		if !errors.Is(err, domain.ErrFeedNotFound) {
			s.logger.Error("Failed to update feed", "feed_id", id, "error", err)
		}
		return nil, err
	}

	// The cutoff may have changed the eligible set
	s.snapshots.Invalidate(id)
	s.applyIntent(feed)
	s.logger.Info("Feed updated successfully", "feed_id", id)

	return feed, nil
}

// Delete removes a feed configuration and cancels its timer. Imported
// episodes are kept.
func (s *FeedService) Delete(ctx context.Context, id string) error {
	if err := s.feedRepo.Delete(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrFeedNotFound) {
			s.logger.Error("Failed to delete feed", "feed_id", id, "error", err)
		}
		return err
	}

	s.scheduler.Cancel(id)
	s.snapshots.Invalidate(id)
	s.logger.Info("Feed deleted successfully", "feed_id", id)

	return nil
}

// Intents returns the desired scheduling table of all stored feeds
func (s *FeedService) Intents(ctx context.Context) (map[string]time.Duration, error) {
	feeds, err := s.feedRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.ScheduleIntents(feeds), nil
}

// SyncSchedules reconciles the scheduler against the stored feeds
func (s *FeedService) SyncSchedules(ctx context.Context) error {
	intents, err := s.Intents(ctx)
	if err != nil {
		return err
	}
	s.scheduler.Reconcile(intents)
	s.logger.Info("Schedules reconciled", "scheduled_feeds", len(intents))
	return nil
}

func (s *FeedService) applyIntent(feed *domain.FeedConfig) {
	if feed.Scheduled() {
		s.scheduler.Schedule(feed.ID, feed.Interval())
		return
	}
	s.scheduler.Cancel(feed.ID)
}

func (s *FeedService) interval(minutes int) int {
	if minutes < 1 {
		return s.defaultInterval
	}
	return minutes
}
