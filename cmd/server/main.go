package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/amiyamandal-dev/podsync/internal/api"
	"github.com/amiyamandal-dev/podsync/internal/api/handlers"
	"github.com/amiyamandal-dev/podsync/internal/auth"
	"github.com/amiyamandal-dev/podsync/internal/config"
	"github.com/amiyamandal-dev/podsync/internal/feed"
	"github.com/amiyamandal-dev/podsync/internal/importer"
	"github.com/amiyamandal-dev/podsync/internal/repository/badger"
	"github.com/amiyamandal-dev/podsync/internal/scheduler"
	"github.com/amiyamandal-dev/podsync/internal/search"
	"github.com/amiyamandal-dev/podsync/internal/service"
	"github.com/amiyamandal-dev/podsync/internal/transport"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewWithFile(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting podsync server",
		"version", version,
		"mode", cfg.Server.Mode,
	)

	// Initialize database
	var db *badger.DB
	if cfg.Database.InMemory {
		db, err = badger.NewInMemory()
	} else {
		db, err = badger.New(cfg.Database.Path)
	}
	if err != nil {
		log.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	log.Info("Database initialized", "path", cfg.Database.Path, "in_memory", cfg.Database.InMemory)

	// Initialize search index
	searchIndex := search.NewBleveIndex(log)
	if err := searchIndex.Open(cfg.Search.IndexPath); err != nil {
		log.Error("Failed to open search index", "error", err)
		os.Exit(1)
	}
	defer searchIndex.Close()

	count, _ := searchIndex.Count()
	log.Info("Search index opened", "path", cfg.Search.IndexPath, "document_count", count)

	loc, err := cfg.Importer.Location()
	if err != nil {
		log.Error("Failed to load time zone", "timezone", cfg.Importer.Timezone, "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	client := transport.NewClient(cfg.Importer.FetchTimeout, cfg.Importer.UserAgent)
	contentStore := badger.NewContentStore(db, client, log)
	store := search.NewIndexedStore(contentStore, searchIndex, log)
	feedRepo := badger.NewFeedRepo(db)

	// Initialize importer
	engine := importer.NewEngine(feedRepo, store, client, feed.NewParser(), importer.Options{
		SnapshotTTL:      cfg.Importer.SnapshotTTL,
		SnapshotCapacity: cfg.Importer.SnapshotCapacity,
		Location:         loc,
		SideloadTimeout:  cfg.Importer.SideloadTimeout,
	}, log)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)

	// Initialize services
	syncService := service.NewSyncService(feedRepo, engine, cfg.Importer.SystemPrincipal, log)
	sched := scheduler.New(syncService.Handle, log)
	feedService := service.NewFeedService(feedRepo, sched, engine, cfg.Scheduler.DefaultIntervalMinutes, log)
	episodeService := service.NewEpisodeService(store, searchIndex, log)
	logService := service.NewLogService(log)

	ctx := context.Background()
	if cfg.Scheduler.Enabled {
		if err := feedService.SyncSchedules(ctx); err != nil {
			log.Error("Failed to restore schedules", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("Scheduler disabled, feeds only sync on demand")
	}

	// Initialize handlers
	helpHandler, err := handlers.NewHelpHandler(log)
	if err != nil {
		log.Error("Failed to render help", "error", err)
		os.Exit(1)
	}

	health := handlers.NewHealthHandler(log,
		handlers.DatabaseProbe(db),
		handlers.SearchProbe(searchIndex),
		handlers.SchedulerProbe(cfg.Scheduler.Enabled, sched.Intents),
	)

	router := api.NewRouter(api.Handlers{
		Auth:    handlers.NewAuthHandler(jwtManager, log),
		Feed:    handlers.NewFeedHandler(feedService, syncService, log),
		Episode: handlers.NewEpisodeHandler(episodeService, log),
		Asset:   handlers.NewAssetHandler(contentStore, log),
		Log:     handlers.NewLogHandler(logService, log),
		Help:    helpHandler,
		Health:  health,
	}, jwtManager, cfg, log)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("HTTP server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Stop scheduled cycles before the store closes
	sched.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server stopped gracefully")
}
