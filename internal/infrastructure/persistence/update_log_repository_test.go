package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerEntry(gid int64, variantID int64, at time.Time) productsync.UpdateLogEntry {
	return productsync.UpdateLogEntry{
		GID:       gid,
		Source:    "fuse5",
		Time:      at,
		SKU:       "SKU-1",
		Barcode:   "012345",
		ProductID: 100,
		VariantID: variantID,
		Changes:   productsync.ChangeSet{}.WithPrice(decimal.RequireFromString("1.00"), decimal.RequireFromString("2.00")),
	}
}

func TestGormUpdateLogRepository_NextGroupID(t *testing.T) {
	t.Run("empty ledger starts at 1", func(t *testing.T) {
		repo := NewGormUpdateLogRepository(setupSyncTestDB(t))

		gid, err := repo.NextGroupID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), gid)
	})

	t.Run("max gid plus one", func(t *testing.T) {
		repo := NewGormUpdateLogRepository(setupSyncTestDB(t))
		ctx := context.Background()
		now := time.Now().UTC()
		require.NoError(t, repo.Record(ctx, []productsync.UpdateLogEntry{
			ledgerEntry(3, 1, now),
			ledgerEntry(7, 2, now),
		}))

		gid, err := repo.NextGroupID(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(8), gid)
	})

	t.Run("issues a single aggregate query", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormUpdateLogRepository(db)

		mock.ExpectQuery(`SELECT COALESCE\(MAX\(gid\), 0\) FROM "products_update_logs"`).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(41))

		gid, err := repo.NextGroupID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(42), gid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormUpdateLogRepository_RecordAndFind(t *testing.T) {
	repo := NewGormUpdateLogRepository(setupSyncTestDB(t))
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	ctx := context.Background()

	unmatched := productsync.UpdateLogEntry{
		GID:       1,
		Source:    "fuse5",
		SKU:       "MISS",
		ProductID: 5,
		VariantID: 6,
		Changes:   productsync.ChangeSet{}.AsUnmatched("111111, Brake Pad"),
	}
	withQty := ledgerEntry(1, 9, time.Time{})
	withQty.Changes = withQty.Changes.WithQuantity("L1", nil, 4)

	require.NoError(t, repo.Record(ctx, []productsync.UpdateLogEntry{withQty, unmatched}))
	require.NoError(t, repo.Record(ctx, nil))

	entries, err := repo.FindByGroup(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.True(t, entries[0].Time.Equal(fixed))
	price, ok := entries[0].Changes.Price()
	require.True(t, ok)
	assert.Equal(t, "2", price.New.String())
	qty, ok := entries[0].Changes.Quantity()
	require.True(t, ok)
	assert.Nil(t, qty.Old)
	assert.Equal(t, 4, qty.New)
	assert.Equal(t, "L1", qty.Location)

	assert.True(t, entries[1].Changes.Unmatched())
	assert.Equal(t, "111111, Brake Pad", entries[1].Changes.MatchedBySKU())

	empty, err := repo.FindByGroup(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)

	latest, err := repo.LatestGroupID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), latest)
}

func TestGormUpdateLogRepository_PruneKeepsGroupsWhole(t *testing.T) {
	repo := NewGormUpdateLogRepository(setupSyncTestDB(t))
	ctx := context.Background()
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -30)

	require.NoError(t, repo.Record(ctx, []productsync.UpdateLogEntry{
		// group 1 is entirely old
		ledgerEntry(1, 1, cutoff.AddDate(0, 0, -5)),
		ledgerEntry(1, 2, cutoff.AddDate(0, 0, -4)),
		// group 2 straddles the cutoff and must survive intact
		ledgerEntry(2, 3, cutoff.Add(-time.Hour)),
		ledgerEntry(2, 4, cutoff.Add(time.Hour)),
		// group 3 is recent
		ledgerEntry(3, 5, now),
	}))

	deleted, err := repo.PruneOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	g1, _ := repo.FindByGroup(ctx, 1)
	g2, _ := repo.FindByGroup(ctx, 2)
	g3, _ := repo.FindByGroup(ctx, 3)
	assert.Empty(t, g1)
	assert.Len(t, g2, 2)
	assert.Len(t, g3, 1)
}
