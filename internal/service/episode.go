package service

import (
	"context"
	"errors"

	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/internal/repository"
	"github.com/amiyamandal-dev/podsync/internal/search"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

// EpisodeService reads imported episodes
type EpisodeService struct {
	store  repository.ContentStore
	index  search.Index
	logger *logger.Logger
}

// NewEpisodeService creates a new episode service
func NewEpisodeService(store repository.ContentStore, index search.Index, logger *logger.Logger) *EpisodeService {
	return &EpisodeService{
		store:  store,
		index:  index,
		logger: logger.WithComponent("episode-service"),
	}
}

// Get returns an episode with its metadata and category names
func (s *EpisodeService) Get(ctx context.Context, id string) (*domain.Episode, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	episode := &domain.Episode{ContentItem: item}
	for key, dst := range map[string]*string{
		domain.MetaItemIdentity: &episode.Identity,
		domain.MetaFeedID:       &episode.FeedID,
		domain.MetaAudioURL:     &episode.AudioURL,
		domain.MetaImageURL:     &episode.ImageURL,
	} {
		if *dst, err = s.store.GetMetadata(ctx, id, key); err != nil {
			return nil, err
		}
	}

	catIDs, err := s.store.GetCategories(ctx, id)
	if err != nil {
		return nil, err
	}
	if episode.Categories, err = s.store.CategoryNames(ctx, catIDs); err != nil {
		return nil, err
	}

	return episode, nil
}

// Search runs a full-text query and loads the matching episodes. Ids whose
// item no longer exists are skipped.
func (s *EpisodeService) Search(ctx context.Context, query *search.Query) ([]*domain.Episode, *search.Result, error) {
	result, err := s.index.Search(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	episodes := make([]*domain.Episode, 0, len(result.IDs))
	for _, id := range result.IDs {
		episode, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrContentNotFound) {
				s.logger.Warn("Search hit without stored episode", "post_id", id)
				continue
			}
			return nil, nil, err
		}
		episodes = append(episodes, episode)
	}

	s.logger.Debug("Search completed",
		"query", query.Text,
		"results", result.Total,
		"page", result.Page,
	)

	return episodes, result, nil
}

// IndexStats returns statistics about the search index
func (s *EpisodeService) IndexStats(ctx context.Context) (map[string]interface{}, error) {
	count, err := s.index.Count()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"total_documents": count,
	}, nil
}
