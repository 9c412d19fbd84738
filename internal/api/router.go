package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amiyamandal-dev/podsync/internal/api/handlers"
	"github.com/amiyamandal-dev/podsync/internal/api/middleware"
	"github.com/amiyamandal-dev/podsync/internal/auth"
	"github.com/amiyamandal-dev/podsync/internal/config"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

// Handlers groups the HTTP handlers served by the router
type Handlers struct {
	Auth    *handlers.AuthHandler
	Feed    *handlers.FeedHandler
	Episode *handlers.EpisodeHandler
	Asset   *handlers.AssetHandler
	Log     *handlers.LogHandler
	Help    *handlers.HelpHandler
	Health  *handlers.HealthHandler
}

// Router sets up the HTTP router with all routes and middleware
type Router struct {
	engine     *gin.Engine
	handlers   Handlers
	jwtManager *auth.JWTManager
	cfg        *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new router
func NewRouter(h Handlers, jwtManager *auth.JWTManager, cfg *config.Config, logger *logger.Logger) *Router {
	return &Router{
		handlers:   h,
		jwtManager: jwtManager,
		cfg:        cfg,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.cfg.Server.Mode)

	r.engine = gin.New()
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.CORSMiddleware(r.cfg.CORS.AllowedOrigins))
	r.engine.Use(middleware.LoggerMiddleware(r.logger))

	// Health check endpoints (no rate limiting, no auth)
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/health/ready", r.handlers.Health.Readiness)
	r.engine.GET("/health/live", r.handlers.Health.Liveness)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.engine.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(
		r.cfg.RateLimit.RequestsPerMinute,
		r.cfg.RateLimit.Burst,
	))
	{
		v1.GET("/help", r.handlers.Help.Get)

		// Images are referenced from episode bodies and stay public
		v1.GET("/assets/:id", r.handlers.Asset.Get)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(r.jwtManager))
		{
			protected.GET("/auth/me", r.handlers.Auth.Me)
			protected.POST("/auth/refresh", r.handlers.Auth.Refresh)

			feeds := protected.Group("/feeds")
			{
				feeds.POST("", r.handlers.Feed.Create)
				feeds.GET("", r.handlers.Feed.List)
				feeds.GET("/:id", r.handlers.Feed.Get)
				feeds.PUT("/:id", r.handlers.Feed.Update)
				feeds.DELETE("/:id", r.handlers.Feed.Delete)
				feeds.POST("/:id/import/chunk", r.handlers.Feed.ImportChunk)
				feeds.POST("/:id/sync", r.handlers.Feed.TriggerSync)
			}

			episodes := protected.Group("/episodes")
			{
				episodes.GET("/search", r.handlers.Episode.Search)
				episodes.GET("/stats", r.handlers.Episode.Stats)
				episodes.GET("/:id", r.handlers.Episode.Get)
			}

			logs := protected.Group("/logs")
			{
				logs.GET("", r.handlers.Log.Get)
				logs.DELETE("", r.handlers.Log.Clear)
			}
		}
	}

	return r.engine
}
