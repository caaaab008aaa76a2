package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

// Context keys. RunIDKey and SourceIDKey double as the log field names.
const (
	LoggerKey   contextKey = "logger"
	RunIDKey    contextKey = "run_id"
	SourceIDKey contextKey = "source_id"
)

// WithContext stores logger in ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.NewNop()
}

// WithRunID tags ctx and logger with the sync run. The tagged logger is
// stored in the returned context.
func WithRunID(ctx context.Context, logger *zap.Logger, runID string) (context.Context, *zap.Logger) {
	logger = logger.With(zap.String(string(RunIDKey), runID))
	ctx = context.WithValue(ctx, RunIDKey, runID)
	return WithContext(ctx, logger), logger
}

// WithSourceID is WithRunID for the stock data source
func WithSourceID(ctx context.Context, logger *zap.Logger, sourceID int64) (context.Context, *zap.Logger) {
	logger = logger.With(zap.Int64(string(SourceIDKey), sourceID))
	ctx = context.WithValue(ctx, SourceIDKey, sourceID)
	return WithContext(ctx, logger), logger
}

func GetRunID(ctx context.Context) string {
	runID, _ := ctx.Value(RunIDKey).(string)
	return runID
}

func GetSourceID(ctx context.Context) int64 {
	id, _ := ctx.Value(SourceIDKey).(int64)
	return id
}

// L returns the context logger with trace_id and span_id added when ctx
// carries a valid span, so run log lines can be joined to their traces.
//
//	logger.L(ctx).Info("Fetched variants", zap.Int("count", n))
func L(ctx context.Context) *zap.Logger {
	log := FromContext(ctx)
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return log
	}
	return log.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
