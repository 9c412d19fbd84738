package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/internal/validator"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
	"github.com/amiyamandal-dev/podsync/pkg/response"
)

// respondError maps a service error to an HTTP response. Unexpected errors
// are logged and reported with fallback as the message.
func respondError(c *gin.Context, log *logger.Logger, err error, fallback string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(c, verr.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrFeedNotFound):
		response.NotFound(c, "Feed not found")
	case errors.Is(err, domain.ErrContentNotFound):
		response.NotFound(c, "Episode not found")
	case errors.Is(err, domain.ErrAssetNotFound):
		response.NotFound(c, "Asset not found")
	case errors.Is(err, domain.ErrFeedExists):
		response.Conflict(c, "Feed already exists")
	case domain.IsCycleError(err):
		response.BadGateway(c, err.Error())
	default:
		log.Error(fallback, "path", c.Request.URL.Path, "error", err)
		response.InternalServerError(c, fallback)
	}
}

// bindJSON decodes and validates the request body, answering 400 on failure
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.BadRequest(c, validator.Format(err).Error())
		return false
	}
	return true
}
