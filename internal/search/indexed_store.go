package search

import (
	"context"
	"time"

	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/internal/repository"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

// IndexedStore keeps the search index in step with a content store. Index
// failures are logged and never fail the underlying write.
type IndexedStore struct {
	repository.ContentStore
	index  Index
	logger *logger.Logger
}

// NewIndexedStore wraps store so that every content write is reindexed
func NewIndexedStore(store repository.ContentStore, index Index, logger *logger.Logger) *IndexedStore {
	return &IndexedStore{
		ContentStore: store,
		index:        index,
		logger:       logger.WithComponent("indexed-store"),
	}
}

// Create stores the item and indexes it
func (s *IndexedStore) Create(ctx context.Context, draft *domain.ContentDraft) (string, error) {
	id, err := s.ContentStore.Create(ctx, draft)
	if err != nil {
		return "", err
	}
	s.reindex(ctx, id)
	return id, nil
}

// Update rewrites the item and reindexes it
func (s *IndexedStore) Update(ctx context.Context, id, title, body string, modified time.Time) error {
	if err := s.ContentStore.Update(ctx, id, title, body, modified); err != nil {
		return err
	}
	s.reindex(ctx, id)
	return nil
}

// Delete removes the item and its document
func (s *IndexedStore) Delete(ctx context.Context, id string) error {
	if err := s.ContentStore.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.index.DeleteEpisode(ctx, id); err != nil {
		s.logger.Warn("Failed to remove episode from index", "post_id", id, "error", err)
	}
	return nil
}

// SetMetadata writes metadata, reindexing when the owning feed changes
func (s *IndexedStore) SetMetadata(ctx context.Context, id, key, value string, unique bool) error {
	if err := s.ContentStore.SetMetadata(ctx, id, key, value, unique); err != nil {
		return err
	}
	if key == domain.MetaFeedID {
		s.reindex(ctx, id)
	}
	return nil
}

// SetCategories replaces the category set and reindexes the item
func (s *IndexedStore) SetCategories(ctx context.Context, ownerID string, categoryIDs []string) error {
	if err := s.ContentStore.SetCategories(ctx, ownerID, categoryIDs); err != nil {
		return err
	}
	s.reindex(ctx, ownerID)
	return nil
}

// Document builds the current search document of an item
func (s *IndexedStore) Document(ctx context.Context, id string) (*EpisodeDocument, error) {
	item, err := s.ContentStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	feedID, err := s.ContentStore.GetMetadata(ctx, id, domain.MetaFeedID)
	if err != nil {
		return nil, err
	}
	catIDs, err := s.ContentStore.GetCategories(ctx, id)
	if err != nil {
		return nil, err
	}
	names, err := s.ContentStore.CategoryNames(ctx, catIDs)
	if err != nil {
		return nil, err
	}
	return EpisodeToDocument(item, feedID, names), nil
}

func (s *IndexedStore) reindex(ctx context.Context, id string) {
	doc, err := s.Document(ctx, id)
	if err != nil {
		s.logger.Warn("Failed to load episode for indexing", "post_id", id, "error", err)
		return
	}
	if err := s.index.IndexEpisode(ctx, doc); err != nil {
		s.logger.Warn("Failed to index episode", "post_id", id, "error", err)
	}
}
