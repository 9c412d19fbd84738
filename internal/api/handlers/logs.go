package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/podsync/internal/service"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
	"github.com/amiyamandal-dev/podsync/pkg/response"
)

// LogHandler exposes the persistent log file
type LogHandler struct {
	logService *service.LogService
	logger     *logger.Logger
}

// NewLogHandler creates a new log handler
func NewLogHandler(logService *service.LogService, logger *logger.Logger) *LogHandler {
	return &LogHandler{
		logService: logService,
		logger:     logger.WithComponent("log-handler"),
	}
}

// Get returns the log file contents
func (h *LogHandler) Get(c *gin.Context) {
	content, err := h.logService.Read()
	if err != nil {
		respondError(c, h.logger, err, "Failed to read log")
		return
	}

	response.Success(c, gin.H{
		"enabled": h.logService.Enabled(),
		"content": content,
	})
}

// Clear truncates the log file
func (h *LogHandler) Clear(c *gin.Context) {
	if err := h.logService.Clear(); err != nil {
		respondError(c, h.logger, err, "Failed to clear log")
		return
	}

	response.SuccessWithMessage(c, "Log cleared", nil)
}
