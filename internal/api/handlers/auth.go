package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/podsync/internal/api/middleware"
	"github.com/amiyamandal-dev/podsync/internal/auth"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
	"github.com/amiyamandal-dev/podsync/pkg/response"
)

// AuthHandler handles token requests
type AuthHandler struct {
	jwtManager *auth.JWTManager
	logger     *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(jwtManager *auth.JWTManager, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		jwtManager: jwtManager,
		logger:     logger.WithComponent("auth-handler"),
	}
}

// Me returns the invoking principal of the current token
func (h *AuthHandler) Me(c *gin.Context) {
	response.Success(c, gin.H{
		"principal": middleware.GetPrincipal(c),
		"name":      middleware.GetName(c),
	})
}

// Refresh issues a fresh token for the current principal
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, expiresAt, err := h.jwtManager.GenerateToken(middleware.GetPrincipal(c), middleware.GetName(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to issue token")
		return
	}

	response.Success(c, gin.H{
		"access_token": token,
		"expires_at":   expiresAt,
	})
}
