package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// BleveIndex implements the Index interface using Bleve
type BleveIndex struct {
	index  bleve.Index
	mu     sync.RWMutex
	logger *logger.Logger
}

// NewBleveIndex creates a new Bleve search index
func NewBleveIndex(logger *logger.Logger) *BleveIndex {
	return &BleveIndex{
		logger: logger.WithComponent("bleve-index"),
	}
}

// Open opens or creates the search index
func (b *BleveIndex) Open(indexPath string) error {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	var err error
	b.index, err = bleve.Open(indexPath)
	if err == nil {
		b.logger.Info("Opened existing search index", "path", indexPath)
		return nil
	}

	b.index, err = bleve.New(indexPath, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create search index: %w", err)
	}

	b.logger.Info("Created new search index", "path", indexPath)
	return nil
}

// OpenInMemory creates a memory-only index
func (b *BleveIndex) OpenInMemory() error {
	var err error
	b.index, err = bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create search index: %w", err)
	}
	return nil
}

// buildIndexMapping builds the index mapping for episodes
func buildIndexMapping() mapping.IndexMapping {
	episodeMapping := bleve.NewDocumentMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = "en"
	titleFieldMapping.Store = true
	episodeMapping.AddFieldMappingsAt("title", titleFieldMapping)

	bodyFieldMapping := bleve.NewTextFieldMapping()
	bodyFieldMapping.Analyzer = "en"
	bodyFieldMapping.Store = false
	episodeMapping.AddFieldMappingsAt("body", bodyFieldMapping)

	// Filters match exactly
	for _, field := range []string{"feed_id", "status", "categories"} {
		keyword := bleve.NewKeywordFieldMapping()
		keyword.Store = true
		keyword.IncludeInAll = false
		episodeMapping.AddFieldMappingsAt(field, keyword)
	}

	publishedFieldMapping := bleve.NewDateTimeFieldMapping()
	publishedFieldMapping.Store = true
	publishedFieldMapping.IncludeInAll = false
	episodeMapping.AddFieldMappingsAt("published", publishedFieldMapping)

	idFieldMapping := bleve.NewKeywordFieldMapping()
	idFieldMapping.Index = false
	idFieldMapping.IncludeInAll = false
	episodeMapping.AddFieldMappingsAt("id", idFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("episode", episodeMapping)
	indexMapping.DefaultMapping = episodeMapping
	// Free text queries run against _all and must stem like title and body
	indexMapping.DefaultAnalyzer = "en"

	return indexMapping
}

// Close closes the search index
func (b *BleveIndex) Close() error {
	if b.index != nil {
		if err := b.index.Close(); err != nil {
			return fmt.Errorf("failed to close index: %w", err)
		}
		b.logger.Info("Closed search index")
	}
	return nil
}

// IndexEpisode indexes an episode, overwriting any previous document
func (b *BleveIndex) IndexEpisode(ctx context.Context, doc *EpisodeDocument) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.index.Index(doc.ID, doc); err != nil {
		b.logger.Error("Failed to index episode", "post_id", doc.ID, "error", err)
		return fmt.Errorf("failed to index episode: %w", err)
	}

	b.logger.Debug("Indexed episode", "post_id", doc.ID)
	return nil
}

// DeleteEpisode removes an episode from the index
func (b *BleveIndex) DeleteEpisode(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.index.Delete(id); err != nil {
		b.logger.Error("Failed to delete episode from index", "post_id", id, "error", err)
		return fmt.Errorf("failed to delete from index: %w", err)
	}

	b.logger.Debug("Deleted episode from index", "post_id", id)
	return nil
}

// Search searches the index
func (b *BleveIndex) Search(ctx context.Context, q *Query) (*Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	startTime := time.Now()

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	request := bleve.NewSearchRequestOptions(buildSearchQuery(q), limit, (page-1)*limit, false)
	request.SortBy([]string{"-published", "_id"})

	results, err := b.index.SearchInContext(ctx, request)
	if err != nil {
		b.logger.Error("Search failed", "error", err)
		return nil, fmt.Errorf("search failed: %w", err)
	}

	ids := make([]string, 0, len(results.Hits))
	for _, hit := range results.Hits {
		ids = append(ids, hit.ID)
	}

	total := int(results.Total)
	totalPages := total / limit
	if total%limit > 0 {
		totalPages++
	}

	queryTime := time.Since(startTime).Milliseconds()
	b.logger.Debug("Search completed",
		"query", q.Text,
		"results", total,
		"time_ms", queryTime,
	)

	return &Result{
		IDs:        ids,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		QueryTime:  queryTime,
	}, nil
}

// buildSearchQuery builds a Bleve query from search parameters
func buildSearchQuery(q *Query) query.Query {
	var queries []query.Query

	if q.Text != "" {
		queries = append(queries, bleve.NewMatchQuery(q.Text))
	}

	for field, value := range map[string]string{
		"feed_id":    q.FeedID,
		"categories": q.Category,
		"status":     q.Status,
	} {
		if value == "" {
			continue
		}
		term := bleve.NewTermQuery(value)
		term.SetField(field)
		queries = append(queries, term)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

// Count returns the number of documents in the index
func (b *BleveIndex) Count() (uint64, error) {
	count, err := b.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}
	return count, nil
}
