package middleware

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func feedUploadRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(BodyLimit(limit))
	router.POST("/csv-feeds", func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusBadRequest, "unreadable feed")
			return
		}
		c.String(http.StatusOK, "%d bytes", len(data))
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	feed := "barcode,sku,price\n012345678905,AB-1,9.99\n"
	whole := fmt.Sprintf("%d bytes", len(feed))

	tests := []struct {
		name          string
		limit         int64
		contentLength int64
		wantStatus    int
		wantBody      string
	}{
		{"feed within limit", 1024, int64(len(feed)), http.StatusOK, whole},
		{"declared size over limit", 16, int64(len(feed)), http.StatusRequestEntityTooLarge, "ERR_REQUEST_TOO_LARGE"},
		{"chunked body over limit fails on read", 16, -1, http.StatusBadRequest, "unreadable feed"},
		{"zero disables the limit", 0, int64(len(feed)), http.StatusOK, whole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/csv-feeds", strings.NewReader(feed))
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			feedUploadRouter(tt.limit).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}
