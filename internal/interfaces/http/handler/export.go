package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	syncapp "github.com/stocksync/backend/internal/application/productsync"
	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/interfaces/http/dto"
)

// LedgerExporter renders update log groups as CSV
type LedgerExporter interface {
	Export(ctx context.Context, w io.Writer, gid int64, filter productsync.ExportFilter, upload bool) (*syncapp.ExportResult, error)
}

// ExportHandler serves update log exports
type ExportHandler struct {
	BaseHandler
	exporter LedgerExporter
}

// NewExportHandler creates an ExportHandler
func NewExportHandler(exporter LedgerExporter) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

// Export godoc
// gid "latest" selects the newest group. With upload the CSV goes to object
// storage and the response carries the presigned link instead of the file.
// @ID           exportUpdateLog
// @Summary      Export an update log group as CSV
// @Description  Returns the CSV as an attachment, or with upload=true the presigned link to the uploaded copy
// @Tags         update-logs
// @Produce      text/csv
// @Produce      json
// @Param        gid    path  string true  "Group ID or latest"
// @Param        filter query string false "Rows to include" Enums(all, matched, unmatched) default(all)
// @Param        upload query bool   false "Upload to object storage and return a link" default(false)
// @Success      200 {object} APIResponse[dto.ExportUploadResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /update-logs/{gid}/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	gid, ok := h.parseGroupID(c)
	if !ok {
		return
	}
	filter, err := productsync.ParseExportFilter(c.Query("filter"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	upload := c.Query("upload") == "true"

	if upload {
		result, err := h.exporter.Export(c.Request.Context(), nil, gid, filter, true)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, dto.ExportUploadResponse{GID: result.GID, Rows: result.Rows, URL: result.URL})
		return
	}

	// Buffer so a failed export still gets a JSON error instead of a truncated file
	var buf bytes.Buffer
	result, err := h.exporter.Export(c.Request.Context(), &buf, gid, filter, false)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="update-log-%d-%s.csv"`, result.GID, filter))
	c.Header("X-Export-Rows", strconv.Itoa(result.Rows))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *ExportHandler) parseGroupID(c *gin.Context) (int64, bool) {
	raw := c.Param("gid")
	if raw == "latest" {
		return 0, true
	}
	gid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || gid <= 0 {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Invalid group ID")
		return 0, false
	}
	return gid, true
}
