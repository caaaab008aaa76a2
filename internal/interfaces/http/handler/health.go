package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/infrastructure/logger"
)

// HealthCheck checks one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports the state of the database and the lock backend
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler; checks maps a component name to its check
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 3 * time.Second, now: time.Now}
}

// Health checks every component in name order; any failure turns the response into a 503
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "healthy", http.StatusOK
	components := make(gin.H, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			logger.FromContext(c.Request.Context()).Warn("Health check failed",
				zap.String("component", name),
				zap.Error(err))
			components[name] = "error"
			status, code = "unhealthy", http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":     status,
		"time":       h.now().Format(time.RFC3339),
		"components": components,
	})
}
