package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"STOCKSYNC_APP_NAME",
	"STOCKSYNC_APP_ENV",
	"STOCKSYNC_DATABASE_HOST",
	"STOCKSYNC_DATABASE_PORT",
	"STOCKSYNC_DATABASE_PASSWORD",
	"STOCKSYNC_DATABASE_SSLMODE",
	"STOCKSYNC_DATABASE_MAX_OPEN_CONNS",
	"STOCKSYNC_DATABASE_MAX_IDLE_CONNS",
	"STOCKSYNC_SHOPIFY_SHOP_NAME",
	"STOCKSYNC_SHOPIFY_API_TOKEN",
	"STOCKSYNC_SHOPIFY_PAGE_SIZE",
	"STOCKSYNC_SYNC_BATCH_SIZE",
	"STOCKSYNC_SYNC_CATALOG_LOOKUP",
	"STOCKSYNC_SYNC_SKU_POLICY",
	"STOCKSYNC_SYNC_MISSING_LOCATION_POLICY",
	"STOCKSYNC_SYNC_LOCK_TTL",
	"STOCKSYNC_SCHEDULER_DAILY_HOUR",
	"STOCKSYNC_EXPORT_S3_ENABLED",
	"STOCKSYNC_EXPORT_BUCKET",
	"STOCKSYNC_HTTP_ENABLED",
	"STOCKSYNC_HTTP_JWT_SECRET",
	"STOCKSYNC_HTTP_LISTEN",
}

// isolateEnv clears every config variable for the duration of the test
func isolateEnv(t *testing.T) {
	t.Helper()
	saved := make(map[string]string, len(configEnvKeys))
	for _, k := range configEnvKeys {
		saved[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range saved {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		isolateEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "stocksync", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "stocksync", cfg.Database.DBName)
		assert.Equal(t, 10, cfg.Database.MaxOpenConns)
		assert.Equal(t, "2023-04", cfg.Shopify.APIVersion)
		assert.Equal(t, 250, cfg.Shopify.PageSize)
		assert.Equal(t, "One Guy Garage", cfg.Shopify.DefaultLocationName)
		assert.Equal(t, "m1", cfg.Fuse5.PriceField)
		assert.Equal(t, time.Hour, cfg.Fuse5.ExportTimeout)
		assert.Equal(t, 250, cfg.Sync.BatchSize)
		assert.Equal(t, "database", cfg.Sync.CatalogLookup)
		assert.Equal(t, "case_insensitive", cfg.Sync.SKUPolicy)
		assert.Equal(t, "separator_tolerant", cfg.Sync.NearMissSKUPolicy)
		assert.Equal(t, "skip", cfg.Sync.MissingLocationPolicy)
		assert.Equal(t, 3, cfg.Sync.WriteRetryAttempts)
		assert.Equal(t, 30, cfg.Sync.LogRetentionDays)
		assert.Equal(t, 6*time.Hour, cfg.Sync.LockTTL)
		assert.Equal(t, 1, cfg.Scheduler.MaxConcurrentJobs)
		assert.Equal(t, 3, cfg.Scheduler.DailyHour)
		assert.Equal(t, "localhost:4317", cfg.Telemetry.CollectorEndpoint)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	})

	t.Run("loads values from environment variables with STOCKSYNC prefix", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("STOCKSYNC_DATABASE_HOST", "db.internal")
		os.Setenv("STOCKSYNC_DATABASE_PORT", "5433")
		os.Setenv("STOCKSYNC_SHOPIFY_SHOP_NAME", "garage")
		os.Setenv("STOCKSYNC_SYNC_BATCH_SIZE", "100")
		os.Setenv("STOCKSYNC_SYNC_CATALOG_LOOKUP", "memory")
		os.Setenv("STOCKSYNC_SYNC_SKU_POLICY", "exact")
		os.Setenv("STOCKSYNC_SYNC_LOCK_TTL", "2h")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "garage", cfg.Shopify.ShopName)
		assert.Equal(t, 100, cfg.Sync.BatchSize)
		assert.Equal(t, "memory", cfg.Sync.CatalogLookup)
		assert.Equal(t, "exact", cfg.Sync.SKUPolicy)
		assert.Equal(t, 2*time.Hour, cfg.Sync.LockTTL)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("STOCKSYNC_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("STOCKSYNC_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects batch size above storefront page limit", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("STOCKSYNC_SYNC_BATCH_SIZE", "251")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sync.batch_size")
	})

	t.Run("rejects unknown catalog lookup", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("STOCKSYNC_SYNC_CATALOG_LOOKUP", "redis")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sync.catalog_lookup")
	})

	t.Run("rejects unknown missing location policy", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("STOCKSYNC_SYNC_MISSING_LOCATION_POLICY", "fail")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing_location_policy")
	})

	t.Run("rejects unknown sku policy", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("STOCKSYNC_SYNC_SKU_POLICY", "regex")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sync.sku_policy")
	})

	t.Run("requires a jwt secret when the admin api is enabled", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("STOCKSYNC_HTTP_ENABLED", "true")
		os.Setenv("STOCKSYNC_HTTP_JWT_SECRET", "short")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http.jwt_secret")

		os.Setenv("STOCKSYNC_HTTP_JWT_SECRET", "0123456789abcdef0123456789abcdef")
		os.Setenv("STOCKSYNC_HTTP_LISTEN", ":8181")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.HTTP.Enabled)
		assert.Equal(t, ":8181", cfg.HTTP.Listen)
		assert.Equal(t, int64(64<<20), cfg.HTTP.BodyLimit)
		assert.Equal(t, 100, cfg.Scheduler.MaxHistory)
	})

	t.Run("requires bucket when s3 export enabled", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("STOCKSYNC_EXPORT_S3_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "export.bucket")
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("reads the given file", func(t *testing.T) {
		isolateEnv(t)
		path := filepath.Join(t.TempDir(), "stocksync.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
[shopify]
shop_name = "garage"
default_location_name = "Warehouse"

[sync]
catalog_lookup = "memory"
`), 0o600))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "garage", cfg.Shopify.ShopName)
		assert.Equal(t, "Warehouse", cfg.Shopify.DefaultLocationName)
		assert.Equal(t, "memory", cfg.Sync.CatalogLookup)
		assert.Equal(t, 250, cfg.Sync.BatchSize)
	})

	t.Run("environment wins over the file", func(t *testing.T) {
		isolateEnv(t)
		path := filepath.Join(t.TempDir(), "stocksync.toml")
		require.NoError(t, os.WriteFile(path, []byte("[shopify]\nshop_name = \"garage\"\n"), 0o600))
		os.Setenv("STOCKSYNC_SHOPIFY_SHOP_NAME", "other")

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "other", cfg.Shopify.ShopName)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		isolateEnv(t)
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func() {
		os.Setenv("STOCKSYNC_APP_ENV", "production")
		os.Setenv("STOCKSYNC_DATABASE_PASSWORD", "secure-password")
		os.Setenv("STOCKSYNC_DATABASE_SSLMODE", "require")
		os.Setenv("STOCKSYNC_SHOPIFY_API_TOKEN", "shpat_123")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Unsetenv("STOCKSYNC_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Setenv("STOCKSYNC_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires shopify token in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Unsetenv("STOCKSYNC_SHOPIFY_API_TOKEN")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shopify.api_token")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "sync",
			Password: "secret",
			DBName:   "stocksync",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "sync")
		assert.Contains(t, dsn, "/stocksync")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.Addr())
}
