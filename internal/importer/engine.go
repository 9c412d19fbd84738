package importer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/internal/metrics"
	"github.com/amiyamandal-dev/podsync/internal/repository"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

// Transport fetches feed documents
type Transport interface {
	GetBody(ctx context.Context, url string) ([]byte, error)
	LastModified(ctx context.Context, url string) (string, bool)
}

// Parser turns a raw feed body into structured items
type Parser interface {
	Parse(body []byte) (*domain.ParsedFeed, error)
}

// Options tunes the engine
type Options struct {
	SnapshotTTL      time.Duration
	SnapshotCapacity int
	Location         *time.Location // interpretation of cutoff dates
	SideloadTimeout  time.Duration
	Now              func() time.Time
}

// Engine synchronizes podcast feeds into the content store
type Engine struct {
	feeds        repository.FeedRepository
	store        repository.ContentStore
	transport    Transport
	parser       Parser
	cache        *SnapshotCache
	materializer *Materializer
	dupes        *DuplicateDetector
	stats        *StatsTracker
	locks        *feedLocks
	loc          *time.Location
	now          func() time.Time
	logger       *logger.Logger
}

// NewEngine creates a new feed synchronization engine
func NewEngine(
	feeds repository.FeedRepository,
	store repository.ContentStore,
	transport Transport,
	parser Parser,
	opts Options,
	logger *logger.Logger,
) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.SnapshotCapacity < 1 {
		opts.SnapshotCapacity = 256
	}
	if opts.SideloadTimeout <= 0 {
		opts.SideloadTimeout = 300 * time.Second
	}

	return &Engine{
		feeds:        feeds,
		store:        store,
		transport:    transport,
		parser:       parser,
		cache:        NewSnapshotCache(opts.SnapshotCapacity, opts.SnapshotTTL, opts.Now),
		materializer: NewMaterializer(store, opts.SideloadTimeout, opts.Now, logger),
		dupes:        NewDuplicateDetector(store),
		stats:        NewStatsTracker(feeds, opts.Now),
		locks:        newFeedLocks(),
		loc:          opts.Location,
		now:          opts.Now,
		logger:       logger.WithComponent("importer"),
	}
}

// Invalidate drops the cached snapshot of a feed
func (e *Engine) Invalidate(feedID string) {
	e.cache.Invalidate(feedID)
}

// loadFeed returns the parsed feed, fetching the body through the snapshot cache
func (e *Engine) loadFeed(ctx context.Context, cfg *domain.FeedConfig) (*domain.ParsedFeed, error) {
	body, err := e.cache.GetOrFetch(ctx, cfg.ID, func(ctx context.Context) ([]byte, error) {
		return e.fetch(ctx, cfg.FeedURL)
	})
	if err != nil {
		e.logger.Error("Error fetching feed", "feed_url", cfg.FeedURL, "error", err)
		return nil, err
	}

	parsed, err := e.parser.Parse(body)
	if err != nil {
		e.logger.Error("Invalid feed", "feed_url", cfg.FeedURL, "error", err)
		return nil, err
	}
	return parsed, nil
}

func (e *Engine) fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	defer func() { metrics.FetchDuration.Observe(time.Since(start).Seconds()) }()

	body, err := e.transport.GetBody(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, domain.ErrEmptyFeed
	}
	return body, nil
}

// eligibleItems loads the feed and applies the cutoff filter
func (e *Engine) eligibleItems(ctx context.Context, cfg *domain.FeedConfig) ([]*domain.FeedItem, error) {
	cutoff, err := CutoffInstant(cfg.CutoffDate, e.loc)
	if err != nil {
		return nil, err
	}

	parsed, err := e.loadFeed(ctx, cfg)
	if err != nil {
		return nil, err
	}

	eligible := FilterEligible(parsed.Items, cutoff)
	e.logger.Info("Processing feed", "feed_url", cfg.FeedURL, "eligible_items", len(eligible))
	return eligible, nil
}

// ProcessChunk materializes the eligible items in [offset, offset+limit).
// Duplicates are skipped silently but still count toward the swept window.
// When the sweep is done, statistics are recorded and the snapshot dropped.
func (e *Engine) ProcessChunk(ctx context.Context, cfg *domain.FeedConfig, offset, limit int, principal string) (*domain.ChunkResult, error) {
	if offset < 0 {
		return nil, domain.NewValidationError("offset", "offset must not be negative")
	}
	if limit < 1 {
		return nil, domain.NewValidationError("limit", "limit must be positive")
	}

	items, err := e.eligibleItems(ctx, cfg)
	if err != nil {
		metrics.RecordCycle(string(ModeManual), err)
		return nil, err
	}
	total := len(items)

	unlock := e.locks.lock(cfg.ID)
	defer unlock()

	start, end := chunkWindow(offset, limit, total)
	results := make([]*domain.ImportResult, 0, end-start)
	for i := start; i < end; i++ {
		if res := e.materializer.Materialize(ctx, items[i], cfg, principal); res != nil {
			results = append(results, res)
		}
	}

	newOffset := math.MaxInt
	if limit <= math.MaxInt-offset {
		newOffset = offset + limit
	}
	done := newOffset >= total
	if done {
		if _, err := e.stats.RecordCycle(ctx, cfg.ID, ModeManual, total); err != nil {
			e.logger.Warn("Failed to record import statistics", "feed_id", cfg.ID, "error", err)
		}
		e.cache.Invalidate(cfg.ID)
		metrics.RecordCycle(string(ModeManual), nil)
		e.logger.Info("Manual import completed", "feed_url", cfg.FeedURL, "total", total)
	}

	return &domain.ChunkResult{
		Processed: len(results),
		Total:     total,
		NewOffset: newOffset,
		Done:      done,
		Results:   results,
	}, nil
}

// chunkWindow clamps [offset, offset+limit) to the eligible range without
// overflowing on huge limits.
func chunkWindow(offset, limit, total int) (int, int) {
	if offset >= total {
		return total, total
	}
	return offset, offset + min(limit, total-offset)
}

// ImportAll sweeps the whole eligible set in one call, as the scheduled
// auto-fetch does, and accumulates the successes into the feed statistics.
func (e *Engine) ImportAll(ctx context.Context, cfg *domain.FeedConfig, principal string) ([]*domain.ImportResult, error) {
	items, err := e.eligibleItems(ctx, cfg)
	if err != nil {
		metrics.RecordCycle(string(ModeScheduled), err)
		return nil, err
	}

	unlock := e.locks.lock(cfg.ID)
	defer unlock()

	results := make([]*domain.ImportResult, 0)
	for _, item := range items {
		if res := e.materializer.Materialize(ctx, item, cfg, principal); res != nil {
			results = append(results, res)
		}
	}

	imported := domain.SuccessCount(results)
	if _, err := e.stats.RecordCycle(ctx, cfg.ID, ModeScheduled, imported); err != nil {
		e.logger.Warn("Failed to record auto-fetch statistics", "feed_id", cfg.ID, "error", err)
	}
	e.cache.Invalidate(cfg.ID)
	metrics.RecordCycle(string(ModeScheduled), nil)

	return results, nil
}

// Sweep drives ProcessChunk from offset 0 until done and collects all results
func (e *Engine) Sweep(ctx context.Context, cfg *domain.FeedConfig, limit int, principal string) (*domain.ChunkResult, error) {
	summary := &domain.ChunkResult{Results: []*domain.ImportResult{}}
	offset := 0
	for {
		chunk, err := e.ProcessChunk(ctx, cfg, offset, limit, principal)
		if err != nil {
			return nil, fmt.Errorf("chunk at offset %d: %w", offset, err)
		}
		summary.Results = append(summary.Results, chunk.Results...)
		summary.Processed += chunk.Processed
		summary.Total = chunk.Total
		summary.NewOffset = chunk.NewOffset
		if chunk.Done {
			summary.Done = true
			return summary, nil
		}
		offset = chunk.NewOffset
	}
}
