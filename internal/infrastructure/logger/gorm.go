package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// Catalog reloads and ledger batches produce statements with tens of
// thousands of placeholders; only their head is logged.
const (
	defaultMaxSQLLength  = 2048
	defaultSlowThreshold = 500 * time.Millisecond
)

// GormLogger routes GORM output to zap and tags statements with the
// run and source they were issued for.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	maxSQLLength  int
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow; 0 disables it
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithMaxSQLLength truncates logged SQL to n bytes; 0 disables truncation
func WithMaxSQLLength(n int) GormLoggerOption {
	return func(l *GormLogger) {
		l.maxSQLLength = n
	}
}

func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: defaultSlowThreshold,
		maxSQLLength:  defaultMaxSQLLength,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...), l.runFields(ctx)...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...), l.runFields(ctx)...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...), l.runFields(ctx)...)
	}
}

// Trace logs failed statements, slow statements and, at Info, every statement.
// A missing record is a normal lookup result, not a failure.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)
	elapsed := time.Since(begin)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	var msg string
	switch {
	case failed && l.level >= gormlogger.Error:
		msg = "SQL error"
	case slow && l.level >= gormlogger.Warn:
		msg = "Slow SQL"
	case l.level >= gormlogger.Info && err == nil:
		msg = "SQL"
	default:
		return
	}

	sql, rows := fc()
	fields := append(l.runFields(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", l.truncate(sql)),
	)
	switch msg {
	case "SQL error":
		l.logger.Error(msg, append(fields, zap.Error(err))...)
	case "Slow SQL":
		l.logger.Warn(msg, append(fields, zap.Duration("threshold", l.slowThreshold))...)
	default:
		l.logger.Debug(msg, fields...)
	}
}

func (l *GormLogger) truncate(sql string) string {
	if l.maxSQLLength <= 0 || len(sql) <= l.maxSQLLength {
		return sql
	}
	return fmt.Sprintf("%s... (%d bytes)", sql[:l.maxSQLLength], len(sql))
}

func (l *GormLogger) runFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, zap.String(string(RunIDKey), runID))
	}
	if sourceID := GetSourceID(ctx); sourceID != 0 {
		fields = append(fields, zap.Int64(string(SourceIDKey), sourceID))
	}
	return fields
}

// MapGormLogLevel maps the application log level to the GORM one.
// Statements are only traced at debug; info keeps GORM at warnings.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
