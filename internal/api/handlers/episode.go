package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/podsync/internal/search"
	"github.com/amiyamandal-dev/podsync/internal/service"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
	"github.com/amiyamandal-dev/podsync/pkg/response"
)

// EpisodeHandler handles requests for imported episodes
type EpisodeHandler struct {
	episodeService *service.EpisodeService
	logger         *logger.Logger
}

// NewEpisodeHandler creates a new episode handler
func NewEpisodeHandler(episodeService *service.EpisodeService, logger *logger.Logger) *EpisodeHandler {
	return &EpisodeHandler{
		episodeService: episodeService,
		logger:         logger.WithComponent("episode-handler"),
	}
}

// Search performs a search query
func (h *EpisodeHandler) Search(c *gin.Context) {
	params := NewQueryParamParser(c)
	page := params.Pagination(20)
	query := &search.Query{
		Text:     params.String("q", ""),
		FeedID:   params.String("feed_id", ""),
		Category: params.String("category", ""),
		Status:   params.OneOf("status", "publish", "draft"),
		Page:     page.Page,
		Limit:    page.Limit,
	}
	if err := params.Error(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	episodes, result, err := h.episodeService.Search(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.logger, err, "Search failed")
		return
	}

	c.JSON(200, gin.H{
		"success": true,
		"data": gin.H{
			"results": episodes,
			"pagination": gin.H{
				"page":        result.Page,
				"limit":       result.Limit,
				"total":       result.Total,
				"total_pages": result.TotalPages,
			},
			"query_time_ms": result.QueryTime,
		},
	})
}

// Get retrieves one episode
func (h *EpisodeHandler) Get(c *gin.Context) {
	episode, err := h.episodeService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get episode")
		return
	}

	response.Success(c, episode)
}

// Stats returns search index statistics
func (h *EpisodeHandler) Stats(c *gin.Context) {
	stats, err := h.episodeService.IndexStats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to read index stats")
		return
	}

	response.Success(c, stats)
}
