package logger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLoggerWithOptions(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)

	gormLog := NewGormLogger(zap.New(core), gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithMaxSQLLength(10),
	)

	assert.Equal(t, 500*time.Millisecond, gormLog.slowThreshold)
	assert.Equal(t, 10, gormLog.maxSQLLength)
}

func TestGormLogger_LogMode(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	gormLog := NewGormLogger(zap.New(core), gormlogger.Info)

	newLogger := gormLog.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gormLog.level)
	newGormLog, ok := newLogger.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, newGormLog.level)
}

func TestGormLogger_Trace(t *testing.T) {
	query := func(sql string) func() (string, int64) {
		return func() (string, int64) { return sql, 3 }
	}

	t.Run("logs errors with run and source", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gormLog := NewGormLogger(zap.New(core), gormlogger.Error)
		ctx, log := WithRunID(context.Background(), zap.NewNop(), "run-9")
		ctx, _ = WithSourceID(ctx, log, 3)

		gormLog.Trace(ctx, time.Now(), query("SELECT 1"), errors.New("boom"))

		entries := recorded.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "SQL error", entries[0].Message)
		assert.Equal(t, "run-9", entries[0].ContextMap()["run_id"])
		assert.Equal(t, int64(3), entries[0].ContextMap()["source_id"])
	})

	t.Run("ignores record not found", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gormLog := NewGormLogger(zap.New(core), gormlogger.Error)

		gormLog.Trace(context.Background(), time.Now(), query("SELECT 1"), gormlogger.ErrRecordNotFound)

		assert.Zero(t, recorded.Len())
	})

	t.Run("warns on slow query", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gormLog := NewGormLogger(zap.New(core), gormlogger.Warn, WithSlowThreshold(time.Millisecond))

		gormLog.Trace(context.Background(), time.Now().Add(-time.Second), query("SELECT 1"), nil)

		entries := recorded.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "Slow SQL", entries[0].Message)
	})

	t.Run("truncates long statements", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gormLog := NewGormLogger(zap.New(core), gormlogger.Info, WithMaxSQLLength(16), WithSlowThreshold(0))

		long := "INSERT INTO supplier_products VALUES " + strings.Repeat("(?),", 100)
		gormLog.Trace(context.Background(), time.Now(), query(long), nil)

		entries := recorded.All()
		require.Len(t, entries, 1)
		sql := entries[0].ContextMap()["sql"].(string)
		assert.True(t, strings.HasPrefix(sql, "INSERT INTO supp..."))
		assert.Contains(t, sql, "bytes)")
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gormLog := NewGormLogger(zap.New(core), gormlogger.Silent)

		gormLog.Trace(context.Background(), time.Now(), query("SELECT 1"), errors.New("boom"))

		assert.Zero(t, recorded.Len())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"silent": gormlogger.Silent,
		"error":  gormlogger.Error,
		"warn":   gormlogger.Warn,
		"info":   gormlogger.Warn,
		"debug":  gormlogger.Info,
		"other":  gormlogger.Warn,
	}
	for in, want := range tests {
		assert.Equal(t, want, MapGormLogLevel(in), in)
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)
