package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Shopify   ShopifyConfig
	Fuse5     Fuse5Config
	Sync      SyncConfig
	Scheduler SchedulerConfig
	Export    ExportConfig
	HTTP      HTTPConfig
	Metrics   MetricsConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name        string
	Env         string
	SourcesFile string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ShopifyConfig holds storefront API settings
type ShopifyConfig struct {
	ShopName            string
	APIToken            string
	APIVersion          string
	BaseURL             string // overrides https://<shop>.myshopify.com when set
	PageSize            int
	RequestsPerSecond   float64
	Burst               int
	Timeout             time.Duration
	MaxRetries          int
	DefaultLocationName string
}

// Fuse5Config holds supplier API settings
type Fuse5Config struct {
	APIKey           string
	APIURL           string
	PriceField       string
	CachePath        string
	UpdateFromRemote bool
	ChangedSince     string
	Timeout          time.Duration
	ExportTimeout    time.Duration
}

// SyncConfig holds reconciliation settings
type SyncConfig struct {
	BatchSize              int
	CatalogLookup          string // database, memory
	SKUPolicy              string
	NearMissSKUPolicy      string
	MissingLocationPolicy  string // skip, default
	WriteRetryAttempts     int
	WriteRetryDelay        time.Duration
	LogRetentionDays       int
	CustomCSVRetentionDays int
	LockTTL                time.Duration
	TitleFetchConcurrency  int
}

// SchedulerConfig holds sync scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	DailyHour         int
	DailyMinute       int
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	MaxHistory        int
	JobLogTTL         time.Duration
}

// ExportConfig holds ledger export upload settings
type ExportConfig struct {
	S3Enabled       bool
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PresignExpiry   time.Duration
}

// HTTPConfig holds the admin API settings
type HTTPConfig struct {
	Enabled        bool
	Listen         string
	JWTSecret      string
	JWTIssuer      string
	BodyLimit      int64 // bytes
	RateLimit      float64
	RateBurst      int
	RequestTimeout time.Duration
}

// MetricsConfig holds the prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool
	Listen  string
}

// TelemetryConfig holds OpenTelemetry tracing settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	Insecure          bool
	// SQLQueryVariables keeps bound values in SQL span statements
	SQLQueryVariables bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOCKSYNC_ prefix (e.g., STOCKSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// ., /etc/stocksync and /app for config.toml; an explicit file must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/stocksync")
		v.AddConfigPath("/app")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("STOCKSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:        v.GetString("app.name"),
			Env:         v.GetString("app.env"),
			SourcesFile: v.GetString("app.sources_file"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Shopify: ShopifyConfig{
			ShopName:            v.GetString("shopify.shop_name"),
			APIToken:            v.GetString("shopify.api_token"),
			APIVersion:          v.GetString("shopify.api_version"),
			BaseURL:             v.GetString("shopify.base_url"),
			PageSize:            v.GetInt("shopify.page_size"),
			RequestsPerSecond:   v.GetFloat64("shopify.requests_per_second"),
			Burst:               v.GetInt("shopify.burst"),
			Timeout:             v.GetDuration("shopify.timeout"),
			MaxRetries:          v.GetInt("shopify.max_retries"),
			DefaultLocationName: v.GetString("shopify.default_location_name"),
		},
		Fuse5: Fuse5Config{
			APIKey:           v.GetString("fuse5.api_key"),
			APIURL:           v.GetString("fuse5.api_url"),
			PriceField:       v.GetString("fuse5.price_field"),
			CachePath:        v.GetString("fuse5.cache_path"),
			UpdateFromRemote: v.GetBool("fuse5.update_from_remote"),
			ChangedSince:     v.GetString("fuse5.changed_since"),
			Timeout:          v.GetDuration("fuse5.timeout"),
			ExportTimeout:    v.GetDuration("fuse5.export_timeout"),
		},
		Sync: SyncConfig{
			BatchSize:              v.GetInt("sync.batch_size"),
			CatalogLookup:          v.GetString("sync.catalog_lookup"),
			SKUPolicy:              v.GetString("sync.sku_policy"),
			NearMissSKUPolicy:      v.GetString("sync.near_miss_sku_policy"),
			MissingLocationPolicy:  v.GetString("sync.missing_location_policy"),
			WriteRetryAttempts:     v.GetInt("sync.write_retry_attempts"),
			WriteRetryDelay:        v.GetDuration("sync.write_retry_delay"),
			LogRetentionDays:       v.GetInt("sync.log_retention_days"),
			CustomCSVRetentionDays: v.GetInt("sync.custom_csv_retention_days"),
			LockTTL:                v.GetDuration("sync.lock_ttl"),
			TitleFetchConcurrency:  v.GetInt("sync.title_fetch_concurrency"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			DailyHour:         v.GetInt("scheduler.daily_hour"),
			DailyMinute:       v.GetInt("scheduler.daily_minute"),
			MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:     v.GetInt("scheduler.retry_attempts"),
			RetryDelay:        v.GetDuration("scheduler.retry_delay"),
			MaxHistory:        v.GetInt("scheduler.max_history"),
			JobLogTTL:         v.GetDuration("scheduler.job_log_ttl"),
		},
		Export: ExportConfig{
			S3Enabled:       v.GetBool("export.s3_enabled"),
			Bucket:          v.GetString("export.bucket"),
			Region:          v.GetString("export.region"),
			Endpoint:        v.GetString("export.endpoint"),
			Prefix:          v.GetString("export.prefix"),
			AccessKeyID:     v.GetString("export.access_key_id"),
			SecretAccessKey: v.GetString("export.secret_access_key"),
			UsePathStyle:    v.GetBool("export.use_path_style"),
			PresignExpiry:   v.GetDuration("export.presign_expiry"),
		},
		HTTP: HTTPConfig{
			Enabled:        v.GetBool("http.enabled"),
			Listen:         v.GetString("http.listen"),
			JWTSecret:      v.GetString("http.jwt_secret"),
			JWTIssuer:      v.GetString("http.jwt_issuer"),
			BodyLimit:      v.GetInt64("http.body_limit"),
			RateLimit:      v.GetFloat64("http.rate_limit"),
			RateBurst:      v.GetInt("http.rate_burst"),
			RequestTimeout: v.GetDuration("http.request_timeout"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Listen:  v.GetString("metrics.listen"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          v.GetBool("telemetry.insecure"),
			SQLQueryVariables: v.GetBool("telemetry.sql_query_variables"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "stocksync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.SourcesFile == "" {
		cfg.App.SourcesFile = "sources.yaml"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "stocksync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 500 * time.Millisecond
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.Shopify.APIVersion == "" {
		cfg.Shopify.APIVersion = "2023-04"
	}
	if cfg.Shopify.PageSize == 0 {
		cfg.Shopify.PageSize = 250
	}
	if cfg.Shopify.RequestsPerSecond == 0 {
		cfg.Shopify.RequestsPerSecond = 2
	}
	if cfg.Shopify.Burst == 0 {
		cfg.Shopify.Burst = 40
	}
	if cfg.Shopify.Timeout == 0 {
		cfg.Shopify.Timeout = 30 * time.Second
	}
	if cfg.Shopify.MaxRetries == 0 {
		cfg.Shopify.MaxRetries = 5
	}
	if cfg.Shopify.DefaultLocationName == "" {
		cfg.Shopify.DefaultLocationName = "One Guy Garage"
	}

	if cfg.Fuse5.PriceField == "" {
		cfg.Fuse5.PriceField = "m1"
	}
	if cfg.Fuse5.CachePath == "" {
		cfg.Fuse5.CachePath = "data/fuse5_products.csv"
	}
	if cfg.Fuse5.Timeout == 0 {
		cfg.Fuse5.Timeout = 60 * time.Second
	}
	if cfg.Fuse5.ExportTimeout == 0 {
		cfg.Fuse5.ExportTimeout = time.Hour
	}

	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 250
	}
	if cfg.Sync.CatalogLookup == "" {
		cfg.Sync.CatalogLookup = "database"
	}
	if cfg.Sync.SKUPolicy == "" {
		cfg.Sync.SKUPolicy = "case_insensitive"
	}
	if cfg.Sync.NearMissSKUPolicy == "" {
		cfg.Sync.NearMissSKUPolicy = "separator_tolerant"
	}
	if cfg.Sync.MissingLocationPolicy == "" {
		cfg.Sync.MissingLocationPolicy = "skip"
	}
	if cfg.Sync.WriteRetryAttempts == 0 {
		cfg.Sync.WriteRetryAttempts = 3
	}
	if cfg.Sync.WriteRetryDelay == 0 {
		cfg.Sync.WriteRetryDelay = 2 * time.Second
	}
	if cfg.Sync.LogRetentionDays == 0 {
		cfg.Sync.LogRetentionDays = 30
	}
	if cfg.Sync.CustomCSVRetentionDays == 0 {
		cfg.Sync.CustomCSVRetentionDays = 30
	}
	if cfg.Sync.LockTTL == 0 {
		cfg.Sync.LockTTL = 6 * time.Hour
	}
	if cfg.Sync.TitleFetchConcurrency == 0 {
		cfg.Sync.TitleFetchConcurrency = 2
	}

	if cfg.Scheduler.DailyHour == 0 && cfg.Scheduler.DailyMinute == 0 {
		cfg.Scheduler.DailyHour = 3
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 1
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 6 * time.Hour
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = 10 * time.Minute
	}
	if cfg.Scheduler.MaxHistory == 0 {
		cfg.Scheduler.MaxHistory = 100
	}
	if cfg.Scheduler.JobLogTTL == 0 {
		cfg.Scheduler.JobLogTTL = 7 * 24 * time.Hour
	}

	if cfg.HTTP.Listen == "" {
		cfg.HTTP.Listen = ":8080"
	}
	if cfg.HTTP.JWTIssuer == "" {
		cfg.HTTP.JWTIssuer = "stocksync"
	}
	if cfg.HTTP.BodyLimit == 0 {
		cfg.HTTP.BodyLimit = 64 << 20
	}
	if cfg.HTTP.RateLimit == 0 {
		cfg.HTTP.RateLimit = 5
	}
	if cfg.HTTP.RateBurst == 0 {
		cfg.HTTP.RateBurst = 20
	}
	if cfg.HTTP.RequestTimeout == 0 {
		cfg.HTTP.RequestTimeout = 2 * time.Minute
	}

	if cfg.Export.Prefix == "" {
		cfg.Export.Prefix = "exports"
	}
	if cfg.Export.PresignExpiry == 0 {
		cfg.Export.PresignExpiry = 24 * time.Hour
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9090"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Sync.BatchSize <= 0 || c.Sync.BatchSize > 250 {
		return fmt.Errorf("sync.batch_size must be between 1 and 250, got %d", c.Sync.BatchSize)
	}
	switch c.Sync.CatalogLookup {
	case "database", "memory":
	default:
		return fmt.Errorf("sync.catalog_lookup must be 'database' or 'memory', got %q", c.Sync.CatalogLookup)
	}
	switch c.Sync.MissingLocationPolicy {
	case "skip", "default":
	default:
		return fmt.Errorf("sync.missing_location_policy must be 'skip' or 'default', got %q", c.Sync.MissingLocationPolicy)
	}
	if c.Sync.WriteRetryAttempts < 0 {
		return fmt.Errorf("sync.write_retry_attempts cannot be negative")
	}
	if c.Sync.LogRetentionDays < 0 || c.Sync.CustomCSVRetentionDays < 0 {
		return fmt.Errorf("sync retention days cannot be negative")
	}

	if c.Shopify.RequestsPerSecond < 0 {
		return fmt.Errorf("shopify.requests_per_second cannot be negative")
	}
	if c.Shopify.PageSize <= 0 || c.Shopify.PageSize > 250 {
		return fmt.Errorf("shopify.page_size must be between 1 and 250, got %d", c.Shopify.PageSize)
	}

	if c.Scheduler.DailyHour < 0 || c.Scheduler.DailyHour > 23 {
		return fmt.Errorf("scheduler.daily_hour must be between 0 and 23")
	}
	if c.Scheduler.DailyMinute < 0 || c.Scheduler.DailyMinute > 59 {
		return fmt.Errorf("scheduler.daily_minute must be between 0 and 59")
	}

	for name, policy := range map[string]string{
		"sync.sku_policy":           c.Sync.SKUPolicy,
		"sync.near_miss_sku_policy": c.Sync.NearMissSKUPolicy,
	} {
		switch policy {
		case "exact", "case_insensitive", "separator_tolerant":
		default:
			return fmt.Errorf("%s must be one of exact, case_insensitive, separator_tolerant, got %q", name, policy)
		}
	}

	if c.Scheduler.MaxConcurrentJobs < 0 || c.Scheduler.RetryAttempts < 0 {
		return fmt.Errorf("scheduler.max_concurrent_jobs and scheduler.retry_attempts cannot be negative")
	}

	if c.HTTP.Enabled && len(c.HTTP.JWTSecret) < 32 {
		return fmt.Errorf("http.jwt_secret must be at least 32 characters when http.enabled is true")
	}
	if c.HTTP.BodyLimit < 0 || c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.body_limit and http.rate_limit cannot be negative")
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1")
	}

	if c.Export.S3Enabled && c.Export.Bucket == "" {
		return fmt.Errorf("export.bucket is required when export.s3_enabled is true")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Shopify.APIToken == "" {
			return fmt.Errorf("shopify.api_token is required in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
