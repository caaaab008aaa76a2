package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig switches admin API tracing on. A nil Provider uses the
// global provider installed by telemetry.NewTracerProvider.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	Provider    trace.TracerProvider
}

// Tracing returns the otelgin server span middleware followed by a handler
// that fails the span on 4xx and 5xx responses. It returns nothing when
// tracing is off.
func Tracing(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	var opts []otelgin.Option
	if cfg.Provider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.Provider))
	}
	return []gin.HandlerFunc{otelgin.Middleware(cfg.ServiceName, opts...), spanStatus}
}

func spanStatus(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if status := c.Writer.Status(); span.IsRecording() && status >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

// SpanOperator tags the request span with the request id and the
// authenticated operator. Mount it after OperatorAuth.
func SpanOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			span.SetAttributes(
				attribute.String("request_id", GetRequestID(c)),
				attribute.String("operator", GetOperator(c)),
			)
		}
		c.Next()
	}
}
