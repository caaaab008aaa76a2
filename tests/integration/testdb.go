// Package integration runs the stocksync repositories and the Redis
// coordination against real PostgreSQL and Redis containers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stocksync/backend/internal/infrastructure/cache"
	"github.com/stocksync/backend/internal/infrastructure/migration"
	"github.com/stocksync/backend/migrations"
)

// postgresServer is started once per package run and migrated once
var postgresServer struct {
	mu        sync.Mutex
	container *tcpostgres.PostgresContainer
	dsn       string
}

// TestDB is a connection to the package's migrated database
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	t     *testing.T
}

// NewSharedTestDB connects to the package database, starting and migrating
// it on first use. Callers clean the tables they touch.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	dsn := sharedDSN(t)
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: gormLogger()})
	require.NoError(t, err, "connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return &TestDB{DB: db, SqlDB: sqlDB, t: t}
}

func sharedDSN(t *testing.T) string {
	t.Helper()

	postgresServer.mu.Lock()
	defer postgresServer.mu.Unlock()
	if postgresServer.container != nil {
		return postgresServer.dsn
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stocksync_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("stocksync"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Closing the migrator closes the connection it was given, so it
	// gets a throwaway one.
	migrateDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	m, err := migration.NewFromFS(migrateDB, migrations.FS, ".", zap.NewNop())
	require.NoError(t, err, "open embedded migrations")
	require.NoError(t, m.Up(), "apply migrations")
	_ = m.Close()

	postgresServer.container = container
	postgresServer.dsn = dsn
	return dsn
}

func gormLogger() logger.Interface {
	if os.Getenv("TEST_DB_DEBUG") != "" {
		return logger.Default.LogMode(logger.Info)
	}
	return logger.Default.LogMode(logger.Silent)
}

// CleanTables empties every sync table and resets its identity sequence
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	require.NoError(tdb.t, tdb.DB.Raw(
		`SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename <> 'schema_migrations'`,
	).Scan(&tables).Error)

	for _, table := range tables {
		require.NoError(tdb.t,
			tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %q RESTART IDENTITY CASCADE", table)).Error,
			"truncate %s", table)
	}
}

// stopSharedPostgres terminates the package container, if one was started
func stopSharedPostgres() {
	postgresServer.mu.Lock()
	defer postgresServer.mu.Unlock()
	if postgresServer.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := postgresServer.container.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "terminate postgres container: %v\n", err)
	}
	postgresServer.container = nil
	postgresServer.dsn = ""
}

// NewTestRedis starts a Redis container for one test and returns a connected client
func NewTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start Redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client, err := cache.NewRedisClient(cache.RedisConfig{Host: host, Port: port.Int()})
	require.NoError(t, err, "connect to Redis")
	t.Cleanup(func() { _ = client.Close() })

	return client
}
