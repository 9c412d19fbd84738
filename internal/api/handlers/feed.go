package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/podsync/internal/api/middleware"
	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/internal/service"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
	"github.com/amiyamandal-dev/podsync/pkg/response"
)

// FeedHandler handles feed configuration and import requests
type FeedHandler struct {
	feedService *service.FeedService
	syncService *service.SyncService
	logger      *logger.Logger
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(feedService *service.FeedService, syncService *service.SyncService, logger *logger.Logger) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
		syncService: syncService,
		logger:      logger.WithComponent("feed-handler"),
	}
}

// Create stores a new feed configuration
func (h *FeedHandler) Create(c *gin.Context) {
	var req domain.FeedCreateRequest
	if !bindJSON(c, &req) {
		return
	}

	feed, err := h.feedService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create feed")
		return
	}

	response.Created(c, feed)
}

// List retrieves all feeds
func (h *FeedHandler) List(c *gin.Context) {
	feeds, err := h.feedService.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to list feeds")
		return
	}
	if feeds == nil {
		feeds = []*domain.FeedConfig{}
	}

	response.Success(c, feeds)
}

// Get retrieves a feed by id
func (h *FeedHandler) Get(c *gin.Context) {
	feed, err := h.feedService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get feed")
		return
	}

	response.Success(c, feed)
}

// Update edits a feed configuration
func (h *FeedHandler) Update(c *gin.Context) {
	var req domain.FeedUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	feed, err := h.feedService.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update feed")
		return
	}

	response.Success(c, feed)
}

// Delete removes a feed configuration
func (h *FeedHandler) Delete(c *gin.Context) {
	if err := h.feedService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "Failed to delete feed")
		return
	}

	response.SuccessWithMessage(c, "Feed deleted", nil)
}

// ImportChunk processes one page of an interactive import
func (h *FeedHandler) ImportChunk(c *gin.Context) {
	var req domain.ChunkRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.syncService.ImportChunk(c.Request.Context(), c.Param("id"), &req, middleware.GetPrincipal(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to import feed")
		return
	}

	response.Success(c, result)
}

// TriggerSync runs the scheduled cycle of a feed now
func (h *FeedHandler) TriggerSync(c *gin.Context) {
	report, err := h.syncService.TriggerSync(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to sync feed")
		return
	}

	response.Success(c, report)
}
