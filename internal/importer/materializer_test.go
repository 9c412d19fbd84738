package importer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amiyamandal-dev/podsync/internal/domain"
)

func importOne(t *testing.T, h *harness) *domain.ChunkResult {
	t.Helper()
	res, err := h.engine.ProcessChunk(context.Background(), h.cfg, 0, 10, "admin")
	require.NoError(t, err)
	return res
}

func TestMaterializeStoresEpisode(t *testing.T) {
	items := []testItem{{
		GUID:      "ep-1",
		Title:     "Pilot",
		Desc:      "short notes",
		Content:   "<p>Hello listeners</p><script>alert(1)</script>",
		Published: base,
		Audio:     "https://cdn.example.com/pilot.mp3",
		Image:     "https://img/pilot.png",
	}}
	h := newHarness(t, renderFeed("", items), func(c *domain.FeedConfig) {
		c.PostStatus = domain.StatusDraft
		c.Author = "editor"
	})

	res := importOne(t, h)
	require.Len(t, res.Results, 1)
	assert.Equal(t, domain.ResultSuccess, res.Results[0].Status)

	post := h.postFor(t, "ep-1")
	assert.Equal(t, "Pilot", post.Title)
	assert.Equal(t, "[audio src=\"https://cdn.example.com/pilot.mp3\"]\n\n<p>Hello listeners</p>", post.Body)
	assert.Equal(t, domain.StatusDraft, post.Status)
	assert.Equal(t, domain.ContentTypePost, post.Type)
	assert.Equal(t, "editor", post.AuthorID)
	assert.True(t, post.Published.Equal(base))
	assert.NotEmpty(t, post.Featured)

	ctx := context.Background()
	audio, err := h.store.GetMetadata(ctx, post.ID, domain.MetaAudioURL)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/pilot.mp3", audio)

	image, err := h.store.GetMetadata(ctx, post.ID, domain.MetaImageURL)
	require.NoError(t, err)
	assert.Equal(t, "https://img/pilot.png", image)

	feedID, err := h.store.GetMetadata(ctx, post.ID, domain.MetaFeedID)
	require.NoError(t, err)
	assert.Equal(t, h.cfg.ID, feedID)
}

func TestMaterializeFallsBackToDescriptionAndPrincipal(t *testing.T) {
	items := []testItem{{GUID: "ep-1", Title: "Plain", Desc: "just a description", Published: base}}
	h := newHarness(t, renderFeed("", items))

	importOne(t, h)

	post := h.postFor(t, "ep-1")
	assert.Equal(t, "just a description", post.Body)
	assert.Equal(t, "admin", post.AuthorID)
	assert.Equal(t, domain.StatusPublish, post.Status)
	assert.Empty(t, post.Featured)
}

func TestMaterializeClampsFutureAndUndatedItems(t *testing.T) {
	items := []testItem{
		{GUID: "future", Title: "Future", Desc: "f", Published: time.Date(2024, 6, 11, 12, 0, 0, 0, time.UTC)},
		{GUID: "undated", Title: "Undated", Desc: "u", PubDate: "not a date"},
	}
	h := newHarness(t, renderFeed("", items))

	importOne(t, h)

	assert.True(t, h.postFor(t, "future").Published.Equal(h.clock.Now()))
	assert.True(t, h.postFor(t, "undated").Published.Equal(h.clock.Now()))
}

func TestMaterializeKeepsPostWhenImageFails(t *testing.T) {
	items := []testItem{{GUID: "ep-1", Title: "Pilot", Desc: "d", Published: base, Image: "https://broken.example.com/x.png"}}
	h := newHarness(t, renderFeed("", items))

	res := importOne(t, h)
	require.Len(t, res.Results, 1)
	assert.Equal(t, domain.ResultSuccess, res.Results[0].Status)

	post := h.postFor(t, "ep-1")
	assert.Empty(t, post.Featured)
	image, err := h.store.GetMetadata(context.Background(), post.ID, domain.MetaImageURL)
	require.NoError(t, err)
	assert.Empty(t, image)
}

func TestMaterializeCategoryCap(t *testing.T) {
	items := []testItem{{
		GUID:      "ep-1",
		Title:     "Tagged",
		Desc:      "d",
		Published: base,
		Keywords:  "tech, news, science, culture, extra",
	}}
	h := newHarness(t, renderFeed("", items), func(c *domain.FeedConfig) { c.DefaultCategory = "Podcasts" })

	ctx := context.Background()
	techID, err := h.store.ResolveOrCreateCategory(ctx, "tech")
	require.NoError(t, err)

	importOne(t, h)

	post := h.postFor(t, "ep-1")
	ids, err := h.store.GetCategories(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Contains(t, ids, techID)

	names, err := h.store.CategoryNames(ctx, ids)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tech", "news", "Podcasts"}, names)
}

func TestMaterializeIdentity(t *testing.T) {
	items := []testItem{
		{Link: "https://example.com/ep/1", Title: "Linked", Desc: "l", Published: base},
		{Title: "Anonymous", Desc: "a", Published: base.Add(-time.Hour)},
	}
	h := newHarness(t, renderFeed("", items))

	res := importOne(t, h)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Processed, "items without guid or link are skipped")
	assert.Equal(t, "Linked", h.postFor(t, "https://example.com/ep/1").Title)
}

func TestBuildBody(t *testing.T) {
	h := newHarness(t, nil)
	m := h.engine.materializer

	assert.Equal(t, "<p>content</p>", m.BuildBody(&domain.FeedItem{Content: "<p>content</p>", Description: "desc"}))
	assert.Equal(t, "desc", m.BuildBody(&domain.FeedItem{Content: "   ", Description: "desc"}))
	assert.Equal(t, "[audio src=\"https://a/b.mp3\"]\n\n", m.BuildBody(&domain.FeedItem{EnclosureURL: "https://a/b.mp3"}))
}

func TestCategoryNames(t *testing.T) {
	tests := []struct {
		name     string
		keywords string
		def      string
		want     []string
	}{
		{"empty", "", "", nil},
		{"default only", "", "Shows", []string{"Shows"}},
		{"first two", "a, b, c", "", []string{"a", "b"}},
		{"blank term dropped", " , b, c", "", []string{"b"}},
		{"with default", "a,b,c,d", " Shows ", []string{"a", "b", "Shows"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryNames(tt.keywords, tt.def))
		})
	}
}

func TestNormalizeIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, normalizeIDs([]string{"c", "a", "b", "a"}))
	assert.Equal(t, []string{}, normalizeIDs(nil))
}
