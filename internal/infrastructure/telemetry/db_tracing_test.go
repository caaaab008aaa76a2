package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stocksync/backend/internal/infrastructure/logger"
)

type ledgerRow struct {
	ID  int64 `gorm:"primaryKey"`
	GID int64
	SKU string
}

func tracedDB(t *testing.T, cfg DBTracingConfig) (*gorm.DB, *sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ledgerRow{}))

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	cfg.Provider = tp
	require.NoError(t, RegisterDBTracing(db, cfg, zaptest.NewLogger(t)))
	return db, tp, exporter
}

func TestRegisterDBTracing_StatementsAreChildrenOfTheRunSpan(t *testing.T) {
	db, tp, exporter := tracedDB(t, DBTracingConfig{Enabled: true, DBName: "stocksync"})

	ctx, run := tp.Tracer(TracerName).Start(context.Background(), "sync.run")
	ctx, _ = logger.WithRunID(ctx, zaptest.NewLogger(t), "run-42")
	ctx, _ = logger.WithSourceID(ctx, zaptest.NewLogger(t), 7)

	require.NoError(t, db.WithContext(ctx).Create(&ledgerRow{GID: 3, SKU: "AB-1"}).Error)
	var got []ledgerRow
	require.NoError(t, db.WithContext(ctx).Where("gid = ?", 3).Find(&got).Error)
	run.End()

	var sqlSpans []tracetest.SpanStub
	for _, s := range exporter.GetSpans() {
		if s.Name != "sync.run" {
			sqlSpans = append(sqlSpans, s)
		}
	}
	require.Len(t, sqlSpans, 2)
	for _, s := range sqlSpans {
		assert.Equal(t, run.SpanContext().SpanID(), s.Parent.SpanID(), "span %s", s.Name)
		a := attrs(s)
		assert.Equal(t, "run-42", a[AttrRunID].AsString())
		assert.Equal(t, int64(7), a[AttrSourceID].AsInt64())
		_, slow := a[AttrSlowQuery]
		assert.False(t, slow, "no threshold configured")
	}
}

func TestRegisterDBTracing_FlagsSlowStatements(t *testing.T) {
	db, tp, exporter := tracedDB(t, DBTracingConfig{Enabled: true, SlowQueryThreshold: time.Nanosecond})

	ctx, run := tp.Tracer(TracerName).Start(context.Background(), "sync.batch")
	var count int64
	require.NoError(t, db.WithContext(ctx).Model(&ledgerRow{}).Count(&count).Error)
	run.End()

	var flagged int
	for _, s := range exporter.GetSpans() {
		if attrs(s)[AttrSlowQuery].AsBool() {
			flagged++
			require.NotEmpty(t, s.Events)
			assert.Equal(t, "slow_query", s.Events[0].Name)
		}
	}
	assert.Equal(t, 1, flagged)
}

func TestRegisterDBTracing_DisabledLeavesGormUntouched(t *testing.T) {
	db, tp, exporter := tracedDB(t, DBTracingConfig{Enabled: false})

	ctx, run := tp.Tracer(TracerName).Start(context.Background(), "sync.run")
	require.NoError(t, db.WithContext(ctx).Create(&ledgerRow{GID: 1, SKU: "X"}).Error)
	run.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "sync.run", spans[0].Name)
}
