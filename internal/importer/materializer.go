package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/internal/metrics"
	"github.com/amiyamandal-dev/podsync/internal/repository"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

// maxKeywordCategories is how many itunes:keywords terms become categories
const maxKeywordCategories = 2

// Materializer turns eligible feed items into content items
type Materializer struct {
	store           repository.ContentStore
	dupes           *DuplicateDetector
	policy          *bluemonday.Policy
	sideloadTimeout time.Duration
	now             func() time.Time
	logger          *logger.Logger
}

// NewMaterializer creates a new item materializer
func NewMaterializer(store repository.ContentStore, sideloadTimeout time.Duration, now func() time.Time, logger *logger.Logger) *Materializer {
	if now == nil {
		now = time.Now
	}
	return &Materializer{
		store:           store,
		dupes:           NewDuplicateDetector(store),
		policy:          bluemonday.UGCPolicy(),
		sideloadTimeout: sideloadTimeout,
		now:             now,
		logger:          logger.WithComponent("materializer"),
	}
}

// Materialize imports one item. It returns nil when the item was already
// imported, otherwise a result whose status is "success" or the store error.
func (m *Materializer) Materialize(ctx context.Context, item *domain.FeedItem, cfg *domain.FeedConfig, principal string) *domain.ImportResult {
	identity := item.Identity()
	if identity == "" {
		m.logger.Warn("Skipping item without guid or link", "feed_url", cfg.FeedURL, "title", item.Title)
		metrics.RecordItem("skipped")
		return nil
	}

	dup, err := m.dupes.IsDuplicate(ctx, identity)
	if err != nil {
		m.logger.Error("Duplicate lookup failed", "feed_url", cfg.FeedURL, "identity", identity, "error", err)
		metrics.RecordItem("failed")
		return &domain.ImportResult{Title: item.Title, Status: err.Error()}
	}
	if dup {
		metrics.RecordItem("duplicate")
		return nil
	}

	author := cfg.Author
	if author == "" {
		author = principal
	}

	id, err := m.store.Create(ctx, &domain.ContentDraft{
		Title:     item.Title,
		Body:      m.BuildBody(item),
		Status:    cfg.PostStatus,
		Type:      domain.ContentTypePost,
		Published: m.publishTime(item),
		AuthorID:  author,
	})
	if err != nil {
		m.logger.Error("Error inserting post", "title", item.Title, "error", err)
		metrics.RecordItem("failed")
		return &domain.ImportResult{Title: item.Title, Status: err.Error()}
	}

	if err := m.store.SetMetadata(ctx, id, domain.MetaItemIdentity, identity, true); err != nil {
		// A concurrent cycle imported the same item first; drop ours.
		if derr := m.store.Delete(ctx, id); derr != nil {
			m.logger.Error("Failed to roll back post", "post_id", id, "error", derr)
		}
		if errors.Is(err, domain.ErrDuplicateIdentity) {
			m.logger.Warn("Identity claimed concurrently, post rolled back", "identity", identity, "post_id", id)
		} else {
			m.logger.Error("Failed to record item identity", "identity", identity, "error", err)
		}
		metrics.RecordItem("failed")
		return &domain.ImportResult{Title: item.Title, Status: err.Error()}
	}

	m.setMeta(ctx, id, domain.MetaFeedID, cfg.ID)
	if item.EnclosureURL != "" {
		m.setMeta(ctx, id, domain.MetaAudioURL, item.EnclosureURL)
	}

	if item.ImageURL != "" {
		if err := m.attachImage(ctx, id, item.ImageURL); err != nil {
			m.logger.Warn("Featured image error", "post_id", id, "image_url", item.ImageURL, "error", err)
			metrics.AssetFailures.Inc()
		}
	}

	catIDs := m.resolveCategories(ctx, item, cfg)
	if len(catIDs) > 0 {
		if err := m.store.SetCategories(ctx, id, catIDs); err != nil {
			m.logger.Warn("Failed to assign categories", "post_id", id, "error", err)
		}
	}

	metrics.RecordItem(domain.ResultSuccess)
	return &domain.ImportResult{Title: item.Title, Status: domain.ResultSuccess}
}

// BuildBody prefers the encoded content over the description and prepends an
// audio directive when the item has an enclosure.
func (m *Materializer) BuildBody(item *domain.FeedItem) string {
	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}
	body = m.policy.Sanitize(body)

	if item.EnclosureURL != "" {
		src := strings.ReplaceAll(item.EnclosureURL, `"`, "%22")
		body = fmt.Sprintf(`[audio src="%s"]`, src) + "\n\n" + body
	}
	return body
}

// publishTime clamps future dates to now; items without a date publish now
func (m *Materializer) publishTime(item *domain.FeedItem) time.Time {
	now := m.now().UTC()
	if item.Published == nil || item.Published.After(now) {
		return now
	}
	return *item.Published
}

// attachImage sideloads url and makes it the featured image of id. The download
// gets its own deadline that outlives the caller's request.
func (m *Materializer) attachImage(ctx context.Context, id, url string) error {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.sideloadTimeout)
	defer cancel()

	assetID, err := m.store.SideloadImage(sctx, url, id)
	if err != nil {
		return err
	}
	if err := m.store.SetFeaturedImage(sctx, id, assetID); err != nil {
		return fmt.Errorf("set featured image: %w", err)
	}
	return m.store.SetMetadata(sctx, id, domain.MetaImageURL, url, false)
}

// resolveCategories maps category names to ids, creating missing categories
func (m *Materializer) resolveCategories(ctx context.Context, item *domain.FeedItem, cfg *domain.FeedConfig) []string {
	names := CategoryNames(item.Keywords, cfg.DefaultCategory)
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, err := m.store.ResolveOrCreateCategory(ctx, name)
		if err != nil {
			m.logger.Warn("Failed to resolve category", "category", name, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (m *Materializer) setMeta(ctx context.Context, id, key, value string) {
	if err := m.store.SetMetadata(ctx, id, key, value, false); err != nil {
		m.logger.Warn("Failed to set metadata", "post_id", id, "key", key, "error", err)
	}
}

// CategoryNames returns the first two comma separated keywords, trimmed, followed
// by the default category when set.
func CategoryNames(keywords, defaultCategory string) []string {
	var names []string
	if keywords != "" {
		terms := strings.Split(keywords, ",")
		if len(terms) > maxKeywordCategories {
			terms = terms[:maxKeywordCategories]
		}
		for _, term := range terms {
			if term = strings.TrimSpace(term); term != "" {
				names = append(names, term)
			}
		}
	}
	if def := strings.TrimSpace(defaultCategory); def != "" {
		names = append(names, def)
	}
	return names
}

// normalizeIDs sorts and deduplicates category ids for set comparison
func normalizeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
