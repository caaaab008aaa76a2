// Package handler implements the admin API endpoints.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/infrastructure/logger"
	"github.com/stocksync/backend/internal/interfaces/http/dto"
	"github.com/stocksync/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 response for work handed to the scheduler
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeBadRequest, message)
}

// HandleError maps an application error to a response. Internal errors are
// logged and answered with a generic message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	code := dto.ErrorCodeFor(err)
	if code == dto.ErrCodeInternal {
		logger.FromContext(c.Request.Context()).Error("Admin API request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		_ = c.Error(err)
		h.ErrorWithCode(c, code, "An internal error occurred")
		return
	}
	h.ErrorWithCode(c, code, err.Error())
}

// parseJobID reads the :id path parameter
func (h *BaseHandler) parseJobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Invalid job ID format")
		return uuid.Nil, false
	}
	return id, true
}

// intQuery reads a non-negative integer query parameter
func (h *BaseHandler) intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Invalid "+name+" parameter")
		return 0, false
	}
	return n, true
}
