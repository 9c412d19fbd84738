package importer

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/amiyamandal-dev/podsync/internal/metrics"
)

// DefaultSnapshotTTL is how long a fetched feed body is reused
const DefaultSnapshotTTL = 300 * time.Second

// Snapshot is a cached raw feed body
type Snapshot struct {
	Body      []byte
	FetchedAt time.Time
}

// FetchFunc retrieves a fresh feed body
type FetchFunc func(ctx context.Context) ([]byte, error)

// SnapshotCache keeps feed bodies keyed by feed identity for a fixed TTL.
// Concurrent misses for the same feed share one fetch.
type SnapshotCache struct {
	entries *expirable.LRU[string, *Snapshot]
	group   singleflight.Group
	ttl     time.Duration
	now     func() time.Time
}

// NewSnapshotCache creates a cache holding up to capacity feeds
func NewSnapshotCache(capacity int, ttl time.Duration, now func() time.Time) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SnapshotCache{
		entries: expirable.NewLRU[string, *Snapshot](capacity, nil, ttl),
		ttl:     ttl,
		now:     now,
	}
}

// GetOrFetch returns the cached body for feedID, calling fetch on a miss.
// Failed fetches are not cached.
func (c *SnapshotCache) GetOrFetch(ctx context.Context, feedID string, fetch FetchFunc) ([]byte, error) {
	if body, ok := c.lookup(feedID); ok {
		metrics.RecordSnapshot(true)
		return body, nil
	}

	// The shared fetch outlives any single caller; each caller only stops
	// waiting when its own context ends.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(feedID, func() (interface{}, error) {
		if body, ok := c.lookup(feedID); ok {
			return body, nil
		}
		metrics.RecordSnapshot(false)

		body, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.entries.Add(feedID, &Snapshot{Body: body, FetchedAt: c.now()})
		return body, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Invalidate drops the entry for feedID
func (c *SnapshotCache) Invalidate(feedID string) {
	c.entries.Remove(feedID)
}

// Len returns the number of cached feeds
func (c *SnapshotCache) Len() int {
	return c.entries.Len()
}

func (c *SnapshotCache) lookup(feedID string) ([]byte, bool) {
	snap, ok := c.entries.Get(feedID)
	if !ok {
		return nil, false
	}
	if c.now().Sub(snap.FetchedAt) >= c.ttl {
		c.entries.Remove(feedID)
		return nil, false
	}
	return snap.Body, true
}
