package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/podsync/internal/domain"
	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

// AssetReader loads sideloaded assets
type AssetReader interface {
	GetAsset(ctx context.Context, id string) (*domain.Asset, []byte, error)
}

// AssetHandler serves sideloaded episode images
type AssetHandler struct {
	assets AssetReader
	logger *logger.Logger
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(assets AssetReader, logger *logger.Logger) *AssetHandler {
	return &AssetHandler{
		assets: assets,
		logger: logger.WithComponent("asset-handler"),
	}
}

// Get writes the asset bytes with their sniffed content type
func (h *AssetHandler) Get(c *gin.Context) {
	asset, data, err := h.assets.GetAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to load asset")
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, asset.ContentType, data)
}
