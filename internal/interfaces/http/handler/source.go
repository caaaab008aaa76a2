package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/interfaces/http/dto"
)

// SourceDirectory lists the configured stock data sources
type SourceDirectory interface {
	List(ctx context.Context) ([]productsync.StockDataSource, error)
}

// SourceHandler exposes stock data sources
type SourceHandler struct {
	BaseHandler
	sources SourceDirectory
}

// NewSourceHandler creates a SourceHandler
func NewSourceHandler(sources SourceDirectory) *SourceHandler {
	return &SourceHandler{sources: sources}
}

// List godoc
// @ID           listSources
// @Summary      List stock data sources
// @Description  Credentials are never returned
// @Tags         sources
// @Produce      json
// @Success      200 {object} APIResponse[[]dto.SourceResponse]
// @Security     BearerAuth
// @Router       /sources [get]
func (h *SourceHandler) List(c *gin.Context) {
	sources, err := h.sources.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]dto.SourceResponse, 0, len(sources))
	for _, s := range sources {
		out = append(out, dto.ToSourceResponse(s))
	}
	h.Success(c, out)
}
