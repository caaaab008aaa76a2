package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	syncapp "github.com/stocksync/backend/internal/application/productsync"
	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/cache"
	"github.com/stocksync/backend/internal/infrastructure/config"
	"github.com/stocksync/backend/internal/infrastructure/ecommerce"
	"github.com/stocksync/backend/internal/infrastructure/logger"
	"github.com/stocksync/backend/internal/infrastructure/persistence"
	"github.com/stocksync/backend/internal/infrastructure/scheduler"
	"github.com/stocksync/backend/internal/infrastructure/storage"
	"github.com/stocksync/backend/internal/infrastructure/supplier"
	"github.com/stocksync/backend/internal/infrastructure/telemetry"
)

var _ syncapp.MetricsRecorder = (*telemetry.SyncMetrics)(nil)

// app holds the configuration and the shared connections.
// Commands build only the services they use.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	db    *persistence.Database
	redis *redis.Client
	lock  productsync.SyncLock
}

func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	db, err := persistence.NewDatabase(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level),
		persistence.WithTracing(telemetry.DBTracingConfig{
			Enabled:            cfg.Telemetry.Enabled,
			QueryVariables:     cfg.Telemetry.SQLQueryVariables,
			SlowQueryThreshold: cfg.Database.SlowThreshold,
			DBName:             cfg.Database.DBName,
		}))
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Error closing Redis client", zap.Error(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.log.Error("Error closing database", zap.Error(err))
	}
}

func (a *app) sourceRepository() *persistence.GormStockDataSourceRepository {
	return persistence.NewGormStockDataSourceRepository(a.db.DB)
}

func (a *app) sourceService() *syncapp.SourceService {
	return syncapp.NewSourceService(a.sourceRepository())
}

func (a *app) feedRepository() *persistence.GormCustomCSVRepository {
	return persistence.NewGormCustomCSVRepository(a.db.DB)
}

func (a *app) csvFeedService() *syncapp.CSVFeedService {
	return syncapp.NewCSVFeedService(a.feedRepository(), a.cfg.Sync.CustomCSVRetentionDays)
}

func (a *app) ledger() *persistence.GormUpdateLogRepository {
	return persistence.NewGormUpdateLogRepository(a.db.DB)
}

func (a *app) maintenanceService() *syncapp.MaintenanceService {
	return syncapp.NewMaintenanceService(a.ledger(), a.csvFeedService(), a.cfg.Sync.LogRetentionDays)
}

// exportService uploads to S3 only when export.s3_enabled is set
func (a *app) exportService() (*syncapp.ExportService, error) {
	if !a.cfg.Export.S3Enabled {
		return syncapp.NewExportService(a.ledger(), nil), nil
	}
	store, err := storage.NewS3ExportStore(&a.cfg.Export,
		storage.WithLogger(a.log.Named("s3")),
		storage.WithPresignExpiration(a.cfg.Export.PresignExpiry),
	)
	if err != nil {
		return nil, fmt.Errorf("export store: %w", err)
	}
	return syncapp.NewExportService(a.ledger(), store), nil
}

func (a *app) storefront() (*ecommerce.ShopifyClient, error) {
	sc := a.cfg.Shopify
	cfg := ecommerce.NewShopifyConfig(sc.ShopName, sc.APIToken)
	cfg.BaseURL = sc.BaseURL
	if sc.APIVersion != "" {
		cfg.APIVersion = sc.APIVersion
	}
	if sc.PageSize > 0 {
		cfg.PageSize = sc.PageSize
	}
	if sc.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = sc.RequestsPerSecond
	}
	if sc.Burst > 0 {
		cfg.Burst = sc.Burst
	}
	if sc.Timeout > 0 {
		cfg.Timeout = sc.Timeout
	}
	if sc.MaxRetries > 0 {
		cfg.MaxRetries = sc.MaxRetries
	}
	client, err := ecommerce.NewShopifyClient(cfg, ecommerce.WithShopifyLogger(a.log.Named("shopify")))
	if err != nil {
		return nil, fmt.Errorf("storefront client: %w", err)
	}
	return client, nil
}

// fuse5Config maps the application settings onto the client configuration.
// Credentials may stay empty here; sources can carry their own.
func (a *app) fuse5Config() *supplier.Fuse5Config {
	fc := a.cfg.Fuse5
	cfg := supplier.NewFuse5Config(fc.APIKey, fc.APIURL)
	if fc.PriceField != "" {
		cfg.PriceField = fc.PriceField
	}
	if fc.CachePath != "" {
		cfg.CachePath = fc.CachePath
	}
	if fc.Timeout > 0 {
		cfg.Timeout = fc.Timeout
	}
	if fc.ExportTimeout > 0 {
		cfg.ExportTimeout = fc.ExportTimeout
	}
	return cfg
}

func (a *app) processors() syncapp.Processors {
	feed := supplier.NewFuse5Feed(a.fuse5Config(), supplier.WithFuse5Logger(a.log.Named("fuse5")))
	fuse5 := syncapp.NewFuse5Processor(
		feed,
		persistence.NewSupplierCatalogStore(a.db.DB),
		persistence.NewSQLiteCatalogIndexer(a.log.Named("catalog")),
		syncapp.Fuse5ProcessorConfig{
			Lookup:           syncapp.CatalogLookupMode(a.cfg.Sync.CatalogLookup),
			UpdateFromRemote: a.cfg.Fuse5.UpdateFromRemote,
			APIKey:           a.cfg.Fuse5.APIKey,
			APIURL:           a.cfg.Fuse5.APIURL,
			ChangedSince:     a.cfg.Fuse5.ChangedSince,
		},
	)
	return syncapp.NewProcessors(fuse5, syncapp.NewCustomCSVProcessor(a.feedRepository()))
}

func (a *app) syncConfig() (syncapp.SyncConfig, error) {
	skuPolicy, err := productsync.ParseSKUPolicy(a.cfg.Sync.SKUPolicy)
	if err != nil {
		return syncapp.SyncConfig{}, fmt.Errorf("sync.sku_policy: %w", err)
	}
	nearMiss, err := productsync.ParseSKUPolicy(a.cfg.Sync.NearMissSKUPolicy)
	if err != nil {
		return syncapp.SyncConfig{}, fmt.Errorf("sync.near_miss_sku_policy: %w", err)
	}
	return syncapp.SyncConfig{
		BatchSize:             a.cfg.Sync.BatchSize,
		SKUPolicy:             skuPolicy,
		NearMissSKUPolicy:     nearMiss,
		DefaultLocationName:   a.cfg.Shopify.DefaultLocationName,
		MissingLocationPolicy: syncapp.MissingLocationPolicy(a.cfg.Sync.MissingLocationPolicy),
		WriteRetry: syncapp.RetryPolicy{
			Attempts: a.cfg.Sync.WriteRetryAttempts,
			Delay:    a.cfg.Sync.WriteRetryDelay,
		},
		LogRetentionDays:      a.cfg.Sync.LogRetentionDays,
		TitleFetchConcurrency: a.cfg.Sync.TitleFetchConcurrency,
	}, nil
}

// syncService wires the reconciliation; metrics may be nil
func (a *app) syncService(metrics syncapp.MetricsRecorder) (*syncapp.SyncService, error) {
	storefront, err := a.storefront()
	if err != nil {
		return nil, err
	}
	syncCfg, err := a.syncConfig()
	if err != nil {
		return nil, err
	}
	return syncapp.NewSyncService(syncapp.SyncDeps{
		Sources:    a.sourceRepository(),
		Processors: a.processors(),
		Storefront: storefront,
		Ledger:     a.ledger(),
		Registry:   persistence.NewGormReviewRegistry(a.db.DB),
		Metrics:    metrics,
		Logger:     a.log.Named("sync"),
	}, syncCfg), nil
}

func (a *app) reviewService() (*syncapp.ReviewService, error) {
	storefront, err := a.storefront()
	if err != nil {
		return nil, err
	}
	return syncapp.NewReviewService(persistence.NewGormReviewRegistry(a.db.DB), storefront, a.cfg.Sync.TitleFetchConcurrency), nil
}

// syncLock returns the Redis lock when redis.enabled, falling back to a
// process-local lock when Redis cannot be reached.
func (a *app) syncLock() productsync.SyncLock {
	if a.lock != nil {
		return a.lock
	}
	if !a.cfg.Redis.Enabled {
		a.lock = cache.NewInMemorySyncLock()
		return a.lock
	}
	factory := cache.NewSyncLockFactory(a.cfg.Redis, cache.WithLogger(a.log.Named("lock")))
	lock, client, err := factory.CreateLock()
	if err != nil {
		// unreachable with fallback allowed
		a.log.Warn("Sync lock unavailable", zap.Error(err))
		lock = cache.NewInMemorySyncLock()
	}
	a.lock, a.redis = lock, client
	return a.lock
}

// jobLogStore keeps job logs in Redis when the lock connected to it
func (a *app) jobLogStore() scheduler.JobLogStore {
	a.syncLock()
	if a.redis != nil {
		return cache.NewRedisLogStore(a.redis, a.cfg.Scheduler.JobLogTTL, a.log.Named("joblogs"))
	}
	return scheduler.NewMemoryLogStore()
}

func (a *app) pingRedis(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Ping(ctx).Err()
}
