package importer

import (
	"context"
	"time"

	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/internal/repository"
)

// Mode distinguishes interactive from scheduled cycles
type Mode string

const (
	ModeManual    Mode = "manual"
	ModeScheduled Mode = "scheduled"
)

// StatsTracker records cycle statistics on the feed configuration
type StatsTracker struct {
	feeds repository.FeedRepository
	now   func() time.Time
}

// NewStatsTracker creates a new statistics tracker
func NewStatsTracker(feeds repository.FeedRepository, now func() time.Time) *StatsTracker {
	if now == nil {
		now = time.Now
	}
	return &StatsTracker{feeds: feeds, now: now}
}

// RecordCycle stores the outcome of a cycle. Manual cycles overwrite the first
// import statistics; scheduled cycles accumulate into the auto-fetch counter.
func (s *StatsTracker) RecordCycle(ctx context.Context, feedID string, mode Mode, importedCount int) (*domain.FeedConfig, error) {
	now := s.now().UTC()
	return s.feeds.Update(ctx, feedID, func(feed *domain.FeedConfig) error {
		switch mode {
		case ModeManual:
			feed.Stats.ImportedAt = now
			feed.Stats.FirstImportCount = importedCount
		case ModeScheduled:
			feed.Stats.LastFetched = now
			feed.Stats.AutoFetchedCount += importedCount
		}
		return nil
	})
}
