package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedRouter(t *testing.T) (*gin.Engine, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	router := gin.New()
	router.Use(RequestID())
	router.Use(Tracing(TracingConfig{ServiceName: "stocksync", Enabled: true, Provider: tp})...)
	router.Use(func(c *gin.Context) {
		c.Set(JWTOperatorKey, "ops@example.com")
		c.Next()
	}, SpanOperator())
	router.GET("/sync/jobs/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})
	return router, exporter
}

func spanAttr(s tracetest.SpanStub, key attribute.Key) string {
	for _, kv := range s.Attributes {
		if kv.Key == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestTracing(t *testing.T) {
	router, exporter := newTracedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/sync/jobs/42", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	router.ServeHTTP(httptest.NewRecorder(), req)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sync/jobs/missing", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Contains(t, ok.Name, "/sync/jobs/:id")
	assert.Equal(t, "req-1", spanAttr(ok, "request_id"))
	assert.Equal(t, "ops@example.com", spanAttr(ok, "operator"))
	assert.Equal(t, codes.Unset, ok.Status.Code)

	notFound := spans[1]
	assert.Equal(t, codes.Error, notFound.Status.Code)
	assert.Equal(t, "Not Found", notFound.Status.Description)
}

func TestTracing_Disabled(t *testing.T) {
	assert.Empty(t, Tracing(TracingConfig{ServiceName: "stocksync"}))
}
