package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/internal/feed"
	"github.com/amiyamandal-dev/podsync/internal/repository"
	"github.com/amiyamandal-dev/podsync/internal/repository/badger"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

// testItem describes one <item> of a generated feed
type testItem struct {
	GUID      string
	Link      string
	Title     string
	Desc      string
	Content   string
	PubDate   string
	Published time.Time
	Audio     string
	Image     string
	Keywords  string
}

func renderFeed(lastBuild string, items []testItem) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel><title>Test Cast</title><link>https://example.com</link>`)
	if lastBuild != "" {
		fmt.Fprintf(&b, "<lastBuildDate>%s</lastBuildDate>", lastBuild)
	}
	for _, it := range items {
		b.WriteString("<item>")
		fmt.Fprintf(&b, "<title>%s</title>", it.Title)
		if it.GUID != "" {
			fmt.Fprintf(&b, "<guid>%s</guid>", it.GUID)
		}
		if it.Link != "" {
			fmt.Fprintf(&b, "<link>%s</link>", it.Link)
		}
		pub := it.PubDate
		if pub == "" && !it.Published.IsZero() {
			pub = it.Published.UTC().Format(time.RFC1123Z)
		}
		if pub != "" {
			fmt.Fprintf(&b, "<pubDate>%s</pubDate>", pub)
		}
		if it.Desc != "" {
			fmt.Fprintf(&b, "<description>%s</description>", it.Desc)
		}
		if it.Content != "" {
			fmt.Fprintf(&b, "<content:encoded><![CDATA[%s]]></content:encoded>", it.Content)
		}
		if it.Audio != "" {
			fmt.Fprintf(&b, `<enclosure url="%s" type="audio/mpeg" length="1"/>`, it.Audio)
		}
		if it.Image != "" {
			fmt.Fprintf(&b, `<itunes:image href="%s"/>`, it.Image)
		}
		if it.Keywords != "" {
			fmt.Fprintf(&b, "<itunes:keywords>%s</itunes:keywords>", it.Keywords)
		}
		b.WriteString("</item>")
	}
	b.WriteString("</channel></rss>")
	return []byte(b.String())
}

// numberedItems builds n items published one hour apart, newest first
func numberedItems(n int, base time.Time) []testItem {
	items := make([]testItem, n)
	for i := 0; i < n; i++ {
		items[i] = testItem{
			GUID:      fmt.Sprintf("ep-%02d", n-i),
			Title:     fmt.Sprintf("Episode %d", n-i),
			Desc:      fmt.Sprintf("Notes for episode %d", n-i),
			Published: base.Add(-time.Duration(i) * time.Hour),
		}
	}
	return items
}

type fakeTransport struct {
	mu        sync.Mutex
	body      []byte
	err       error
	marker    string
	getCalls  int
	headCalls int
}

func (f *fakeTransport) GetBody(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func (f *fakeTransport) LastModified(ctx context.Context, url string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headCalls++
	return f.marker, f.marker != ""
}

func (f *fakeTransport) setBody(body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = body
}

func (f *fakeTransport) gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

type imageFetcher struct{}

func (imageFetcher) GetAsset(ctx context.Context, url string) ([]byte, string, error) {
	if strings.HasPrefix(url, "https://img/") {
		return pngHeader, "image/png", nil
	}
	return nil, "", errors.New("image host unreachable")
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// countingStore counts writes made through the content store
type countingStore struct {
	repository.ContentStore
	mu     sync.Mutex
	writes int
}

func (s *countingStore) inc() {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
}

func (s *countingStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *countingStore) Create(ctx context.Context, d *domain.ContentDraft) (string, error) {
	s.inc()
	return s.ContentStore.Create(ctx, d)
}

func (s *countingStore) Update(ctx context.Context, id, title, body string, modified time.Time) error {
	s.inc()
	return s.ContentStore.Update(ctx, id, title, body, modified)
}

func (s *countingStore) Delete(ctx context.Context, id string) error {
	s.inc()
	return s.ContentStore.Delete(ctx, id)
}

func (s *countingStore) SetMetadata(ctx context.Context, id, key, value string, unique bool) error {
	s.inc()
	return s.ContentStore.SetMetadata(ctx, id, key, value, unique)
}

func (s *countingStore) DeleteMetadata(ctx context.Context, id, key string) error {
	s.inc()
	return s.ContentStore.DeleteMetadata(ctx, id, key)
}

func (s *countingStore) SideloadImage(ctx context.Context, url, ownerID string) (string, error) {
	s.inc()
	return s.ContentStore.SideloadImage(ctx, url, ownerID)
}

func (s *countingStore) SetFeaturedImage(ctx context.Context, ownerID, assetID string) error {
	s.inc()
	return s.ContentStore.SetFeaturedImage(ctx, ownerID, assetID)
}

func (s *countingStore) ResolveOrCreateCategory(ctx context.Context, name string) (string, error) {
	s.inc()
	return s.ContentStore.ResolveOrCreateCategory(ctx, name)
}

func (s *countingStore) SetCategories(ctx context.Context, ownerID string, ids []string) error {
	s.inc()
	return s.ContentStore.SetCategories(ctx, ownerID, ids)
}

// countingFeeds counts writes made through the feed repository
type countingFeeds struct {
	repository.FeedRepository
	mu     sync.Mutex
	writes int
}

func (f *countingFeeds) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *countingFeeds) Put(ctx context.Context, feed *domain.FeedConfig) error {
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	return f.FeedRepository.Put(ctx, feed)
}

func (f *countingFeeds) Update(ctx context.Context, id string, fn func(*domain.FeedConfig) error) (*domain.FeedConfig, error) {
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	return f.FeedRepository.Update(ctx, id, fn)
}

type harness struct {
	engine    *Engine
	transport *fakeTransport
	store     *countingStore
	feeds     *countingFeeds
	clock     *fakeClock
	cfg       *domain.FeedConfig
}

func newHarness(t *testing.T, body []byte, mutate ...func(*domain.FeedConfig)) *harness {
	t.Helper()

	db, err := badger.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logger.Nop()
	store := &countingStore{ContentStore: badger.NewContentStore(db, imageFetcher{}, log)}
	feeds := &countingFeeds{FeedRepository: badger.NewFeedRepo(db)}
	transport := &fakeTransport{body: body}
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}

	url := "https://example.com/feed.xml"
	cfg := &domain.FeedConfig{
		ID:               domain.FeedIdentity(url),
		FeedURL:          url,
		PostStatus:       domain.StatusPublish,
		AutoFetchMinutes: 60,
	}
	for _, fn := range mutate {
		fn(cfg)
	}
	require.NoError(t, feeds.FeedRepository.Put(context.Background(), cfg))

	engine := NewEngine(feeds, store, transport, feed.NewParser(), Options{
		SnapshotTTL:      DefaultSnapshotTTL,
		SnapshotCapacity: 16,
		Location:         time.UTC,
		SideloadTimeout:  5 * time.Second,
		Now:              clock.Now,
	}, log)

	return &harness{engine: engine, transport: transport, store: store, feeds: feeds, clock: clock, cfg: cfg}
}

func (h *harness) postFor(t *testing.T, identity string) *domain.ContentItem {
	t.Helper()
	ids, err := h.store.LookupByMetadata(context.Background(), domain.MetaItemIdentity, identity)
	require.NoError(t, err)
	require.Len(t, ids, 1, "identity %s", identity)
	item, err := h.store.Get(context.Background(), ids[0])
	require.NoError(t, err)
	return item
}

func (h *harness) countFor(t *testing.T, identity string) int {
	t.Helper()
	ids, err := h.store.LookupByMetadata(context.Background(), domain.MetaItemIdentity, identity)
	require.NoError(t, err)
	return len(ids)
}

func (h *harness) reloadConfig(t *testing.T) *domain.FeedConfig {
	t.Helper()
	cfg, err := h.feeds.Get(context.Background(), h.cfg.ID)
	require.NoError(t, err)
	return cfg
}
