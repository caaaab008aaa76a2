package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// lib/pq backs the "postgres" driver name so the same pool serves COPY FROM STDIN
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stocksync/backend/internal/infrastructure/config"
	applog "github.com/stocksync/backend/internal/infrastructure/logger"
	"github.com/stocksync/backend/internal/infrastructure/telemetry"
)

// Database is the shared PostgreSQL pool. Repositories take DB; the
// supplier catalog loader also needs the raw pool for COPY.
type Database struct {
	DB  *gorm.DB
	sql *sql.DB
}

// Option adjusts NewDatabase
type Option func(*options)

type options struct {
	tracing telemetry.DBTracingConfig
}

// WithTracing turns every statement into a child span of the caller's span
func WithTracing(cfg telemetry.DBTracingConfig) Option {
	return func(o *options) { o.tracing = cfg }
}

// NewDatabase opens and pings the pool described by cfg.
// A nil logger keeps GORM silent.
func NewDatabase(cfg *config.DatabaseConfig, log *zap.Logger, level gormlogger.LogLevel, opts ...Option) (*Database, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	gl := gormlogger.Default.LogMode(gormlogger.Silent)
	if log != nil {
		gl = applog.NewGormLogger(log, level, applog.WithSlowThreshold(cfg.SlowThreshold))
	}

	db, err := gorm.Open(postgres.New(postgres.Config{DSN: cfg.DSN(), DriverName: "postgres"}), &gorm.Config{
		Logger:                 gl,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.DBName, err)
	}
	d, err := wrap(db)
	if err != nil {
		return nil, err
	}
	if err := telemetry.RegisterDBTracing(db, o.tracing, log); err != nil {
		_ = d.sql.Close()
		return nil, fmt.Errorf("register database tracing: %w", err)
	}

	d.sql.SetMaxOpenConns(cfg.MaxOpenConns)
	d.sql.SetMaxIdleConns(cfg.MaxIdleConns)
	d.sql.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	d.sql.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := d.sql.Ping(); err != nil {
		_ = d.sql.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return d, nil
}

func wrap(db *gorm.DB) (*Database, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	return &Database{DB: db, sql: sqlDB}, nil
}

func (d *Database) Close() error {
	return d.sql.Close()
}

// Ping backs the database entry of /health
func (d *Database) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

// RegisterMetrics exports the pool statistics as go_sql_* series labelled db_name="stocksync"
func (d *Database) RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(collectors.NewDBStatsCollector(d.sql, "stocksync"))
}

// IsPostgres reports whether db talks to PostgreSQL
func IsPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
