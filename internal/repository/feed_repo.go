package repository

import (
	"context"

	"github.com/amiyamandal-dev/podsync/internal/domain"
)

// FeedRepository is the keyed store of feed configurations
type FeedRepository interface {
	// Get retrieves a feed by identity
	Get(ctx context.Context, id string) (*domain.FeedConfig, error)

	// Put creates or replaces a feed
	Put(ctx context.Context, feed *domain.FeedConfig) error

	// Delete deletes a feed by identity
	Delete(ctx context.Context, id string) error

	// List retrieves all feeds
	List(ctx context.Context) ([]*domain.FeedConfig, error)

	// Update applies fn to the stored feed inside a single transaction and
	// persists the result. Concurrent updates of the same feed are retried.
	Update(ctx context.Context, id string, fn func(feed *domain.FeedConfig) error) (*domain.FeedConfig, error)
}
