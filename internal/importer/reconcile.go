package importer

import (
	"context"
	"slices"

	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/internal/metrics"
)

// Reconcile updates already imported items whose upstream fields changed.
// It returns the titles of updated items. Nothing is done unless auto-update
// is enabled, and nothing is written when the modification marker is unchanged.
func (e *Engine) Reconcile(ctx context.Context, cfg *domain.FeedConfig) ([]string, error) {
	if !cfg.AutoUpdate {
		e.logger.Info("Auto-update skipped (not enabled)", "feed_url", cfg.FeedURL)
		return nil, nil
	}

	var prefetched *domain.ParsedFeed
	marker, ok := e.transport.LastModified(ctx, cfg.FeedURL)
	if !ok {
		// No header: fall back to the channel's lastBuildDate
		if body, err := e.fetch(ctx, cfg.FeedURL); err == nil {
			if parsed, err := e.parser.Parse(body); err == nil {
				prefetched = parsed
				marker = parsed.LastBuildDate
			}
		}
	}

	if marker != "" && marker == cfg.LastModified {
		e.logger.Info("Auto-update: feed not modified since last check", "feed_url", cfg.FeedURL)
		return []string{}, nil
	}

	if _, err := e.feeds.Update(ctx, cfg.ID, func(feed *domain.FeedConfig) error {
		feed.LastModified = marker
		return nil
	}); err != nil {
		return nil, err
	}

	cutoff, err := CutoffInstant(cfg.CutoffDate, e.loc)
	if err != nil {
		return nil, err
	}

	parsed := prefetched
	if parsed == nil {
		parsed, err = e.loadFeed(ctx, cfg)
		if err != nil {
			metrics.RecordCycle("update", err)
			return nil, err
		}
	}

	unlock := e.locks.lock(cfg.ID)
	defer unlock()

	updated := []string{}
	for _, item := range FilterEligible(parsed.Items, cutoff) {
		identity := item.Identity()
		if identity == "" {
			continue
		}
		id, found, err := e.dupes.Find(ctx, identity)
		if err != nil {
			e.logger.Error("Duplicate lookup failed", "identity", identity, "error", err)
			continue
		}
		if !found {
			continue
		}

		changed, err := e.reconcileItem(ctx, id, item, cfg)
		if err != nil {
			e.logger.Error("Auto-update failed", "post_id", id, "error", err)
			metrics.RecordItem("failed")
			continue
		}
		if changed {
			e.logger.Info("Auto-update: updated post", "post_id", id, "title", item.Title)
			metrics.RecordItem("updated")
			updated = append(updated, item.Title)
		} else {
			e.logger.Debug("Auto-update: no changes", "post_id", id)
		}
	}

	// The next cycle must see fresh content
	e.cache.Invalidate(cfg.ID)
	metrics.RecordCycle("update", nil)
	return updated, nil
}

// reconcileItem recomputes the item's fields, compares them with the stored
// post and rewrites the post when any differ.
func (e *Engine) reconcileItem(ctx context.Context, id string, item *domain.FeedItem, cfg *domain.FeedConfig) (bool, error) {
	current, err := e.store.Get(ctx, id)
	if err != nil {
		return false, err
	}

	m := e.materializer
	body := m.BuildBody(item)
	needsUpdate := current.Title != item.Title || current.Body != body

	if item.EnclosureURL != "" {
		audio, err := e.store.GetMetadata(ctx, id, domain.MetaAudioURL)
		if err != nil {
			return false, err
		}
		if audio != item.EnclosureURL {
			needsUpdate = true
		}
	}

	image, err := e.store.GetMetadata(ctx, id, domain.MetaImageURL)
	if err != nil {
		return false, err
	}
	if image != item.ImageURL {
		needsUpdate = true
	}

	wantCats := normalizeIDs(m.resolveCategories(ctx, item, cfg))
	haveCats, err := e.store.GetCategories(ctx, id)
	if err != nil {
		return false, err
	}
	if !slices.Equal(wantCats, normalizeIDs(haveCats)) {
		needsUpdate = true
	}

	if !needsUpdate {
		return false, nil
	}

	if err := e.store.Update(ctx, id, item.Title, body, e.now().UTC()); err != nil {
		return false, err
	}
	if item.EnclosureURL != "" {
		m.setMeta(ctx, id, domain.MetaAudioURL, item.EnclosureURL)
	}

	if image != item.ImageURL {
		if item.ImageURL != "" {
			if err := m.attachImage(ctx, id, item.ImageURL); err != nil {
				e.logger.Warn("Featured image error", "post_id", id, "image_url", item.ImageURL, "error", err)
				metrics.AssetFailures.Inc()
			}
		} else {
			if err := e.store.SetFeaturedImage(ctx, id, ""); err != nil {
				e.logger.Warn("Failed to clear featured image", "post_id", id, "error", err)
			}
			if err := e.store.DeleteMetadata(ctx, id, domain.MetaImageURL); err != nil {
				e.logger.Warn("Failed to clear image metadata", "post_id", id, "error", err)
			}
		}
	}

	if err := e.store.SetCategories(ctx, id, wantCats); err != nil {
		e.logger.Warn("Failed to assign categories", "post_id", id, "error", err)
	}
	return true, nil
}
