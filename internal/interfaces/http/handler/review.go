package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/interfaces/http/dto"
)

// ReviewQueue lists unmatched variants and toggles their visibility
type ReviewQueue interface {
	List(ctx context.Context, includeHidden bool) ([]productsync.UnmatchedProductForReview, error)
	Hide(ctx context.Context, productID, variantID int64) error
	Unhide(ctx context.Context, productID, variantID int64) error
}

// ReviewHandler exposes the review registry
type ReviewHandler struct {
	BaseHandler
	reviews ReviewQueue
}

// NewReviewHandler creates a ReviewHandler
func NewReviewHandler(reviews ReviewQueue) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// List godoc
// @ID           listReviewItems
// @Summary      List unmatched variants
// @Description  Returns the storefront variants of the last live run that matched no supplier row, with possible matches found by SKU
// @Tags         review
// @Produce      json
// @Param        include_hidden query bool false "Include hidden variants" default(false)
// @Success      200 {object} APIResponse[[]dto.ReviewItemResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /review [get]
func (h *ReviewHandler) List(c *gin.Context) {
	includeHidden := false
	if raw := c.Query("include_hidden"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Invalid include_hidden parameter")
			return
		}
		includeHidden = v
	}

	items, err := h.reviews.List(c.Request.Context(), includeHidden)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToReviewItemResponses(items))
}

// Hide godoc
// @ID           hideReviewItem
// @Summary      Hide a variant from review
// @Tags         review
// @Accept       json
// @Param        request body dto.ReviewVisibilityRequest true "Variant to hide"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /review/hide [post]
func (h *ReviewHandler) Hide(c *gin.Context) {
	h.setVisibility(c, h.reviews.Hide)
}

// Unhide godoc
// @ID           unhideReviewItem
// @Summary      Show a hidden variant again
// @Tags         review
// @Accept       json
// @Param        request body dto.ReviewVisibilityRequest true "Variant to unhide"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /review/unhide [post]
func (h *ReviewHandler) Unhide(c *gin.Context) {
	h.setVisibility(c, h.reviews.Unhide)
}

func (h *ReviewHandler) setVisibility(c *gin.Context, apply func(ctx context.Context, productID, variantID int64) error) {
	var req dto.ReviewVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}
	if err := apply(c.Request.Context(), req.ProductID, req.VariantID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
