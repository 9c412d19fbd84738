package repository

import (
	"context"
	"time"

	"github.com/amiyamandal-dev/podsync/internal/domain"
)

// ContentStore persists imported episodes, their metadata, categories and images
type ContentStore interface {
	// LookupByMetadata returns the ids of items carrying key=value
	LookupByMetadata(ctx context.Context, key, value string) ([]string, error)

	// Create stores a new content item and returns its id
	Create(ctx context.Context, draft *domain.ContentDraft) (string, error)

	// Get retrieves a content item by id
	Get(ctx context.Context, id string) (*domain.ContentItem, error)

	// Update rewrites the title and body of an existing item
	Update(ctx context.Context, id, title, body string, modified time.Time) error

	// Delete removes an item together with its metadata and category links
	Delete(ctx context.Context, id string) error

	// SetMetadata writes key=value on an item. With unique set, the write fails with
	// domain.ErrDuplicateIdentity when another item already carries the same pair.
	SetMetadata(ctx context.Context, id, key, value string, unique bool) error

	// GetMetadata returns the value of key, or "" when unset
	GetMetadata(ctx context.Context, id, key string) (string, error)

	// DeleteMetadata removes key from an item
	DeleteMetadata(ctx context.Context, id, key string) error

	// SideloadImage downloads url and stores it as an asset owned by ownerID
	SideloadImage(ctx context.Context, url, ownerID string) (string, error)

	// SetFeaturedImage marks an asset as the item's featured image; "" clears it
	SetFeaturedImage(ctx context.Context, ownerID, assetID string) error

	// ResolveOrCreateCategory returns the id of the category with exactly this name
	ResolveOrCreateCategory(ctx context.Context, name string) (string, error)

	// SetCategories replaces the item's category set
	SetCategories(ctx context.Context, ownerID string, categoryIDs []string) error

	// GetCategories returns the item's category ids
	GetCategories(ctx context.Context, ownerID string) ([]string, error)

	// CategoryNames resolves category ids to names, skipping unknown ids
	CategoryNames(ctx context.Context, categoryIDs []string) ([]string, error)
}

// AssetFetcher downloads binary assets for sideloading
type AssetFetcher interface {
	GetAsset(ctx context.Context, url string) ([]byte, string, error)
}
