// Package telemetry provides tracing and metrics for sync runs.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stocksync/backend/internal/domain/productsync"
)

// TracerName names the tracer of the sync engine
const TracerName = "stocksync/sync"

// Span attribute keys of sync spans
const (
	AttrSourceID   = attribute.Key("sync.source.id")
	AttrSourceName = attribute.Key("sync.source.name")
	AttrSourceKind = attribute.Key("sync.source.kind")
	AttrDryRun     = attribute.Key("sync.dry_run")
	AttrOutcome    = attribute.Key("sync.outcome")
	AttrVariants   = attribute.Key("sync.variants")
	AttrMatched    = attribute.Key("sync.matched")
	AttrBatchSize  = attribute.Key("sync.batch.size")
)

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartRun opens the root span of one sync run. The caller ends it,
// normally through FinishRun.
func StartRun(ctx context.Context, source productsync.StockDataSource, dry bool) (context.Context, trace.Span) {
	return tracer().Start(ctx, "sync.run", trace.WithAttributes(
		AttrSourceID.Int64(source.ID),
		AttrSourceName.String(source.Name),
		AttrSourceKind.String(source.Kind.String()),
		AttrDryRun.Bool(dry),
	))
}

// StartBatch opens the span of one resolver batch inside a run
func StartBatch(ctx context.Context, size int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "sync.batch", trace.WithAttributes(AttrBatchSize.Int(size)))
}

// FinishRun records the outcome and counters of a run on its span.
// An aborted run is not an error; it gets an "aborted" event.
func FinishRun(span trace.Span, outcome string, stats productsync.RunStats, err error) {
	span.SetAttributes(
		AttrOutcome.String(outcome),
		AttrVariants.Int(stats.Variants),
		AttrMatched.Int(stats.Matched),
	)
	if outcome == "aborted" {
		span.AddEvent("aborted")
	}
	RecordError(span, err)
}

// RecordError marks the span failed; nil errors and nil spans are ignored
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
