package handler

import (
	"context"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	syncapp "github.com/stocksync/backend/internal/application/productsync"
	"github.com/stocksync/backend/internal/domain/productsync"
	csvimport "github.com/stocksync/backend/internal/infrastructure/import"
	"github.com/stocksync/backend/internal/interfaces/http/dto"
)

// FeedImporter stores uploaded supplier feeds
type FeedImporter interface {
	Import(ctx context.Context, name string, r io.Reader, mapping csvimport.ColumnMapping, encodingName string) (*syncapp.CSVImportResult, error)
	List(ctx context.Context) ([]productsync.CustomCSV, error)
}

// CSVImportResponse reports how an upload was parsed
type CSVImportResponse struct {
	Feed         *dto.CustomCSVResponse `json:"feed,omitempty"`
	TotalRows    int                    `json:"total_rows"`
	ImportedRows int                    `json:"imported_rows"`
	ErrorRows    int                    `json:"error_rows"`
	Errors       []csvimport.RowError   `json:"errors,omitempty"`
	IsTruncated  bool                   `json:"is_truncated,omitempty"`
}

// CSVFeedHandler accepts custom CSV uploads
type CSVFeedHandler struct {
	BaseHandler
	feeds FeedImporter
}

// NewCSVFeedHandler creates a CSVFeedHandler
func NewCSVFeedHandler(feeds FeedImporter) *CSVFeedHandler {
	return &CSVFeedHandler{feeds: feeds}
}

// Upload godoc
// @ID           uploadCSVFeed
// @Summary      Upload a custom supplier feed
// @Description  Parses the CSV and stores its rows as a new feed. The name defaults to the uploaded file name.
// @Tags         csv-feeds
// @Accept       multipart/form-data
// @Produce      json
// @Param        file     formData file   true  "Supplier CSV"
// @Param        name     formData string false "Feed name"
// @Param        encoding formData string false "Source charset, e.g. windows-1252" default(utf-8)
// @Success      201 {object} APIResponse[CSVImportResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /csv-feeds [post]
func (h *CSVFeedHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, "Multipart field \"file\" is required")
		return
	}
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = fileHeader.Filename
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer file.Close()

	result, err := h.feeds.Import(c.Request.Context(), name, file, csvimport.DefaultColumnMapping(), c.PostForm("encoding"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := CSVImportResponse{
		TotalRows:    result.TotalRows,
		ImportedRows: result.ImportedRows,
		ErrorRows:    result.ErrorRows,
		Errors:       result.Errors,
		IsTruncated:  result.IsTruncated,
	}
	if result.Feed != nil {
		feed := dto.ToCustomCSVResponse(*result.Feed)
		resp.Feed = &feed
	}
	h.Created(c, resp)
}

// List godoc
// @ID           listCSVFeeds
// @Summary      List custom supplier feeds
// @Tags         csv-feeds
// @Produce      json
// @Success      200 {object} APIResponse[[]dto.CustomCSVResponse]
// @Security     BearerAuth
// @Router       /csv-feeds [get]
func (h *CSVFeedHandler) List(c *gin.Context) {
	feeds, err := h.feeds.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToCustomCSVResponses(feeds))
}
