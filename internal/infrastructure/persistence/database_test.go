package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDatabase creates a Database instance with a mocked SQL connection.
// With monitorPings the ping GORM sends while opening is already consumed.
func newMockDatabase(t *testing.T, monitorPings bool) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(monitorPings))
	require.NoError(t, err)
	if monitorPings {
		mock.ExpectPing()
	}

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	db, err := wrap(gormDB)
	require.NoError(t, err)
	return db, mock, mockDB
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("successful ping", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t, true)
		defer mockDB.Close()

		mock.ExpectPing()

		assert.NoError(t, db.Ping(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed ping", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t, true)
		defer mockDB.Close()

		mock.ExpectPing().WillReturnError(sql.ErrConnDone)

		assert.ErrorIs(t, db.Ping(context.Background()), sql.ErrConnDone)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t, false)

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_RegisterMetrics(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t, false)
	defer mockDB.Close()

	reg := prometheus.NewRegistry()
	require.NoError(t, db.RegisterMetrics(reg))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_sql_max_open_connections")
	assert.Contains(t, names, "go_sql_open_connections")

	assert.Error(t, db.RegisterMetrics(reg), "second registration of the same pool")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsPostgres(t *testing.T) {
	db, _, mockDB := newMockDatabase(t, false)
	defer mockDB.Close()
	assert.True(t, IsPostgres(db.DB))

	assert.False(t, IsPostgres(setupSyncTestDB(t)))
}
