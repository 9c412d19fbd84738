package search

import (
	"context"
	"time"

	"github.com/amiyamandal-dev/podsync/internal/domain"
)

// EpisodeDocument represents an imported episode in the search index
type EpisodeDocument struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	FeedID     string    `json:"feed_id"`
	Status     string    `json:"status"`
	Categories []string  `json:"categories"`
	Published  time.Time `json:"published"`
}

// Query represents a search query
type Query struct {
	Text     string
	FeedID   string
	Category string
	Status   string
	Page     int
	Limit    int
}

// Result represents a page of matching episode ids, newest first
type Result struct {
	IDs        []string
	Total      int
	Page       int
	Limit      int
	TotalPages int
	QueryTime  int64 // milliseconds
}

// Index defines the interface for episode search indexing
type Index interface {
	// IndexEpisode indexes or replaces an episode document
	IndexEpisode(ctx context.Context, doc *EpisodeDocument) error

	// DeleteEpisode removes an episode from the index
	DeleteEpisode(ctx context.Context, id string) error

	// Search searches the index
	Search(ctx context.Context, query *Query) (*Result, error)

	// Count returns the number of documents in the index
	Count() (uint64, error)

	// Close closes the search index
	Close() error
}

// EpisodeToDocument converts a stored item and its resolved metadata to a search document
func EpisodeToDocument(item *domain.ContentItem, feedID string, categories []string) *EpisodeDocument {
	if categories == nil {
		categories = []string{}
	}
	return &EpisodeDocument{
		ID:         item.ID,
		Title:      item.Title,
		Body:       item.Body,
		FeedID:     feedID,
		Status:     item.Status,
		Categories: categories,
		Published:  item.Published,
	}
}
