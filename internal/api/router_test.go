package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amiyamandal-dev/podsync/internal/api/handlers"
	"github.com/amiyamandal-dev/podsync/internal/auth"
	"github.com/amiyamandal-dev/podsync/internal/config"
	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/internal/feed"
	"github.com/amiyamandal-dev/podsync/internal/importer"
	"github.com/amiyamandal-dev/podsync/internal/repository/badger"
	"github.com/amiyamandal-dev/podsync/internal/scheduler"
	"github.com/amiyamandal-dev/podsync/internal/search"
	"github.com/amiyamandal-dev/podsync/internal/service"
	"github.com/amiyamandal-dev/podsync/internal/transport"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

const testSecret = "router-test-secret-0123456789abcdef"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// podcastServer serves a three episode feed and its cover image
func podcastServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/cover.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"><channel><title>Show</title>`)
		base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		for i, title := range []string{"Pilot", "Second", "Third"} {
			fmt.Fprintf(&b, `<item><title>%s</title><guid>ep-%d</guid><pubDate>%s</pubDate><description>notes about %s</description>`,
				title, i, base.Add(-time.Duration(i)*time.Hour).Format(time.RFC1123Z), strings.ToLower(title))
			if i == 0 {
				fmt.Fprintf(&b, `<itunes:image href="%s/cover.png"/>`, srv.URL)
			}
			b.WriteString(`</item>`)
		}
		b.WriteString(`</channel></rss>`)
		_, _ = w.Write([]byte(b.String()))
	})

	return srv
}

type testEnv struct {
	handler http.Handler
	token   string
	podcast *httptest.Server
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log, err := logger.NewWithFile("info", "json", filepath.Join(t.TempDir(), "podsync.log"))
	require.NoError(t, err)

	db, err := badger.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	idx := search.NewBleveIndex(log)
	require.NoError(t, idx.OpenInMemory())
	t.Cleanup(func() { _ = idx.Close() })

	client := transport.NewClient(5*time.Second, "podsync-test")
	contentStore := badger.NewContentStore(db, client, log)
	store := search.NewIndexedStore(contentStore, idx, log)
	feeds := badger.NewFeedRepo(db)
	engine := importer.NewEngine(feeds, store, client, feed.NewParser(), importer.Options{
		SnapshotTTL: 300 * time.Second,
		Location:    time.UTC,
	}, log)

	syncService := service.NewSyncService(feeds, engine, "system", log)
	sched := scheduler.New(syncService.Handle, log)
	t.Cleanup(sched.Stop)

	jwtManager := auth.NewJWTManager(testSecret, time.Hour)
	token, _, err := jwtManager.GenerateToken("alice", "Alice")
	require.NoError(t, err)

	help, err := handlers.NewHelpHandler(log)
	require.NoError(t, err)

	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: "test"},
		RateLimit: config.RateLimitConfig{RequestsPerMinute: 1000, Burst: 1000},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	health := handlers.NewHealthHandler(log,
		handlers.DatabaseProbe(db),
		handlers.SearchProbe(idx),
		handlers.SchedulerProbe(true, sched.Intents),
	)

	h := Handlers{
		Auth:    handlers.NewAuthHandler(jwtManager, log),
		Feed:    handlers.NewFeedHandler(service.NewFeedService(feeds, sched, engine, 60, log), syncService, log),
		Episode: handlers.NewEpisodeHandler(service.NewEpisodeService(store, idx, log), log),
		Asset:   handlers.NewAssetHandler(contentStore, log),
		Log:     handlers.NewLogHandler(service.NewLogService(log), log),
		Help:    help,
		Health:  health,
	}

	return &testEnv{
		handler: NewRouter(h, jwtManager, cfg, log).Setup(),
		token:   token,
		podcast: podcastServer(t),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, authed bool) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, &env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestHealthEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	w, _ := env.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, "/health/live", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, "/health/ready", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)

	w, _ = env.do(t, http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := setupTestEnv(t)

	w, _ := env.do(t, http.MethodGet, "/api/v1/feeds", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := env.do(t, http.MethodGet, "/api/v1/auth/me", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var me map[string]string
	decode(t, body.Data, &me)
	assert.Equal(t, "alice", me["principal"])
	assert.Equal(t, "Alice", me["name"])
}

func TestFeedLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	feedURL := env.podcast.URL + "/feed.xml"

	w, body := env.do(t, http.MethodPost, "/api/v1/feeds", map[string]interface{}{"feed_url": "not a url"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, body.Success)

	w, body = env.do(t, http.MethodPost, "/api/v1/feeds", map[string]interface{}{
		"feed_url":    feedURL,
		"default_cat": "Podcasts",
	}, true)
	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.FeedConfig
	decode(t, body.Data, &created)
	assert.Equal(t, domain.FeedIdentity(feedURL), created.ID)
	assert.Equal(t, domain.StatusPublish, created.PostStatus)
	assert.Equal(t, 60, created.AutoFetchMinutes)

	w, body = env.do(t, http.MethodPost, "/api/v1/feeds", map[string]interface{}{"feed_url": feedURL}, true)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", body.Code)

	w, body = env.do(t, http.MethodGet, "/api/v1/feeds", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var list []*domain.FeedConfig
	decode(t, body.Data, &list)
	require.Len(t, list, 1)

	w, body = env.do(t, http.MethodPut, "/api/v1/feeds/"+created.ID, map[string]interface{}{"post_status": "draft"}, true)
	require.Equal(t, http.StatusOK, w.Code)
	var updated domain.FeedConfig
	decode(t, body.Data, &updated)
	assert.Equal(t, domain.StatusDraft, updated.PostStatus)
	assert.Equal(t, "Podcasts", updated.DefaultCategory)

	w, _ = env.do(t, http.MethodPut, "/api/v1/feeds/"+created.ID, map[string]interface{}{"post_status": "pending"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/api/v1/feeds/"+created.ID, nil, true)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/v1/feeds/"+created.ID, nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChunkedImportAndEpisodes(t *testing.T) {
	env := setupTestEnv(t)
	feedURL := env.podcast.URL + "/feed.xml"
	feedID := domain.FeedIdentity(feedURL)

	w, _ := env.do(t, http.MethodPost, "/api/v1/feeds/"+feedID+"/import/chunk", map[string]interface{}{"offset": 0, "limit": 2}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodPost, "/api/v1/feeds", map[string]interface{}{
		"feed_url":    feedURL,
		"default_cat": "Podcasts",
	}, true)
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = env.do(t, http.MethodPost, "/api/v1/feeds/"+feedID+"/import/chunk", map[string]interface{}{"offset": 0}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := env.do(t, http.MethodPost, "/api/v1/feeds/"+feedID+"/import/chunk", map[string]interface{}{"offset": 0, "limit": 2}, true)
	require.Equal(t, http.StatusOK, w.Code)
	var chunk domain.ChunkResult
	decode(t, body.Data, &chunk)
	assert.Equal(t, 2, chunk.Processed)
	assert.Equal(t, 3, chunk.Total)
	assert.Equal(t, 2, chunk.NewOffset)
	assert.False(t, chunk.Done)
	require.Len(t, chunk.Results, 2)
	assert.Equal(t, domain.ResultSuccess, chunk.Results[0].Status)

	w, body = env.do(t, http.MethodPost, "/api/v1/feeds/"+feedID+"/import/chunk", map[string]interface{}{"offset": 2, "limit": 2}, true)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, body.Data, &chunk)
	assert.True(t, chunk.Done)
	assert.Equal(t, 1, chunk.Processed)

	w, body = env.do(t, http.MethodGet, "/api/v1/episodes/search?feed_id="+feedID, nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Results    []*domain.Episode `json:"results"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	decode(t, body.Data, &page)
	assert.Equal(t, 3, page.Pagination.Total)
	require.Len(t, page.Results, 3)
	assert.Equal(t, "Pilot", page.Results[0].Title)

	w, body = env.do(t, http.MethodGet, "/api/v1/episodes/search?q=second", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, body.Data, &page)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Second", page.Results[0].Title)

	w, _ = env.do(t, http.MethodGet, "/api/v1/episodes/search?status=pending", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = env.do(t, http.MethodGet, "/api/v1/episodes/search?q=pilot", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, body.Data, &page)
	require.Len(t, page.Results, 1)
	pilotID := page.Results[0].ID

	w, body = env.do(t, http.MethodGet, "/api/v1/episodes/"+pilotID, nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var episode domain.Episode
	decode(t, body.Data, &episode)
	assert.Equal(t, "alice", episode.AuthorID)
	assert.Equal(t, "ep-0", episode.Identity)
	assert.Equal(t, feedID, episode.FeedID)
	assert.Equal(t, []string{"Podcasts"}, episode.Categories)
	require.NotEmpty(t, episode.Featured)

	// Assets are public
	w, _ = env.do(t, http.MethodGet, "/api/v1/assets/"+episode.Featured, nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, w.Body.Bytes())

	w, _ = env.do(t, http.MethodGet, "/api/v1/assets/missing", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/v1/episodes/missing", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = env.do(t, http.MethodGet, "/api/v1/episodes/stats", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]int
	decode(t, body.Data, &stats)
	assert.Equal(t, 3, stats["total_documents"])

	// A rerun skips everything already imported
	w, body = env.do(t, http.MethodPost, "/api/v1/feeds/"+feedID+"/import/chunk", map[string]interface{}{"offset": 0, "limit": 10}, true)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, body.Data, &chunk)
	assert.True(t, chunk.Done)
	assert.Empty(t, chunk.Results)
}

func TestSyncReportsUnreachableFeed(t *testing.T) {
	env := setupTestEnv(t)
	feedURL := env.podcast.URL + "/feed.xml"
	feedID := domain.FeedIdentity(feedURL)

	w, _ := env.do(t, http.MethodPost, "/api/v1/feeds", map[string]interface{}{
		"feed_url":       feedURL,
		"ongoing_import": true,
	}, true)
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := env.do(t, http.MethodPost, "/api/v1/feeds/"+feedID+"/sync", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var report domain.CycleReport
	decode(t, body.Data, &report)
	assert.Len(t, report.Imported, 3)

	env.podcast.Close()

	// The snapshot is still cached; a new feed URL forces a fetch
	other := env.podcast.URL + "/feed.xml?v=2"
	w, _ = env.do(t, http.MethodPost, "/api/v1/feeds", map[string]interface{}{
		"feed_url":       other,
		"ongoing_import": true,
	}, true)
	require.Equal(t, http.StatusCreated, w.Code)

	w, body = env.do(t, http.MethodPost, "/api/v1/feeds/"+domain.FeedIdentity(other)+"/sync", nil, true)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "upstream_failed", body.Code)
	assert.Contains(t, body.Error, domain.ErrFetchFailed.Error())
}

func TestHelpAndLogs(t *testing.T) {
	env := setupTestEnv(t)

	w, _ := env.do(t, http.MethodGet, "/api/v1/help", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<table>")

	w, _ = env.do(t, http.MethodGet, "/api/v1/help?format=markdown", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "# podsync"))

	w, body := env.do(t, http.MethodGet, "/api/v1/logs", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var logs struct {
		Enabled bool   `json:"enabled"`
		Content string `json:"content"`
	}
	decode(t, body.Data, &logs)
	assert.True(t, logs.Enabled)
	assert.Contains(t, logs.Content, "/api/v1/help")

	w, _ = env.do(t, http.MethodDelete, "/api/v1/logs", nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	w, body = env.do(t, http.MethodGet, "/api/v1/logs", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, body.Data, &logs)
	assert.NotContains(t, logs.Content, "/api/v1/help")
}
