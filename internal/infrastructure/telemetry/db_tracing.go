package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stocksync/backend/internal/infrastructure/logger"
)

// Span attribute keys added to SQL spans
const (
	AttrRunID          = attribute.Key("sync.run_id")
	AttrSlowQuery      = attribute.Key("db.slow_query")
	AttrQueryElapsedMS = attribute.Key("db.query_duration_ms")
)

// DBTracingConfig controls the SQL child spans of sync runs
type DBTracingConfig struct {
	Enabled bool
	// QueryVariables puts bound values into db.statement. Supplier prices
	// and tokens end up in traces, so keep it off outside development.
	QueryVariables bool
	// SlowQueryThreshold marks spans of slower statements; zero disables it
	SlowQueryThreshold time.Duration
	DBName             string
	// Provider defaults to the global tracer provider
	Provider trace.TracerProvider
}

type queryStartKey struct{}

// RegisterDBTracing installs otelgorm on db so ledger, registry and catalog
// statements become children of the run and batch spans. Each SQL span is
// tagged with the run id from the context and flagged when slow.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, log *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	opts := []otelgorm.Option{otelgorm.WithoutMetrics()}
	if cfg.DBName != "" {
		opts = append(opts, otelgorm.WithDBName(cfg.DBName))
	}
	if !cfg.QueryVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if cfg.Provider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(cfg.Provider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := registerRunTagger(db, runTagger{slow: cfg.SlowQueryThreshold}); err != nil {
		return err
	}

	log.Info("Database tracing enabled",
		zap.Bool("query_variables", cfg.QueryVariables),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold))
	return nil
}

// registerRunTagger wraps every gorm statement: start runs before it, tag
// runs after it but before otelgorm ends the span.
func registerRunTagger(db *gorm.DB, t runTagger) error {
	cb := db.Callback()
	hooks := []struct {
		name     string
		register func(name string, fn func(*gorm.DB)) error
		fn       func(*gorm.DB)
	}{
		{"start:create", cb.Create().Before("gorm:create").Register, t.start},
		{"tag:create", cb.Create().After("gorm:create").Before("otel:after:create").Register, t.tag},
		{"start:query", cb.Query().Before("gorm:query").Register, t.start},
		{"tag:query", cb.Query().After("gorm:query").Before("otel:after:select").Register, t.tag},
		{"start:update", cb.Update().Before("gorm:update").Register, t.start},
		{"tag:update", cb.Update().After("gorm:update").Before("otel:after:update").Register, t.tag},
		{"start:delete", cb.Delete().Before("gorm:delete").Register, t.start},
		{"tag:delete", cb.Delete().After("gorm:delete").Before("otel:after:delete").Register, t.tag},
		{"start:row", cb.Row().Before("gorm:row").Register, t.start},
		{"tag:row", cb.Row().After("gorm:row").Before("otel:after:row").Register, t.tag},
		{"start:raw", cb.Raw().Before("gorm:raw").Register, t.start},
		{"tag:raw", cb.Raw().After("gorm:raw").Before("otel:after:raw").Register, t.tag},
	}
	for _, h := range hooks {
		if err := h.register("stocksync:trace_"+h.name, h.fn); err != nil {
			return err
		}
	}
	return nil
}

type runTagger struct {
	slow time.Duration
}

func (r runTagger) start(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (r runTagger) tag(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if runID := logger.GetRunID(ctx); runID != "" {
		span.SetAttributes(AttrRunID.String(runID))
	}
	if sourceID := logger.GetSourceID(ctx); sourceID != 0 {
		span.SetAttributes(AttrSourceID.Int64(sourceID))
	}
	if errors.Is(db.Error, gorm.ErrRecordNotFound) || r.slow <= 0 {
		return
	}
	started, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(started); elapsed > r.slow {
		span.SetAttributes(AttrSlowQuery.Bool(true), AttrQueryElapsedMS.Int64(elapsed.Milliseconds()))
		span.AddEvent("slow_query")
	}
}
