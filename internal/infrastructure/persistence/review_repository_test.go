package persistence

import (
	"context"
	"testing"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewRow(productID, variantID int64, sku string) productsync.UnmatchedProductForReview {
	return productsync.UnmatchedProductForReview{
		ProductID:    productID,
		VariantID:    variantID,
		SKU:          sku,
		Barcode:      "000123456",
		VariantTitle: "Default Title",
		PossibleMatches: []productsync.SupplierProduct{
			supplierRow("111111", sku, "4.20", 2, "L1"),
		},
	}
}

func TestGormReviewRegistry_ReplaceAll(t *testing.T) {
	registry := NewGormReviewRegistry(setupSyncTestDB(t))
	ctx := context.Background()

	require.NoError(t, registry.ReplaceAll(ctx, []productsync.UnmatchedProductForReview{
		reviewRow(1, 10, "A"),
		reviewRow(2, 20, "B"),
	}))

	t.Run("stores the snapshot with near misses", func(t *testing.T) {
		rows, err := registry.List(ctx, false)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, int64(10), rows[0].VariantID)
		require.Len(t, rows[0].PossibleMatches, 1)
		assert.Equal(t, "111111", rows[0].PossibleMatches[0].Barcode)
		assert.Equal(t, "4.2", rows[0].PossibleMatches[0].Price.Decimal.String())
	})

	t.Run("a new run replaces rather than accumulates", func(t *testing.T) {
		require.NoError(t, registry.ReplaceAll(ctx, []productsync.UnmatchedProductForReview{
			reviewRow(2, 20, "B2"),
			reviewRow(3, 30, "C"),
		}))

		rows, err := registry.List(ctx, true)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "B2", rows[0].SKU)
		assert.Equal(t, int64(30), rows[1].VariantID)
	})

	t.Run("duplicate natural keys keep the later row", func(t *testing.T) {
		require.NoError(t, registry.ReplaceAll(ctx, []productsync.UnmatchedProductForReview{
			reviewRow(4, 40, "first"),
			reviewRow(4, 40, "second"),
		}))

		rows, err := registry.List(ctx, true)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "second", rows[0].SKU)
	})
}

func TestGormReviewRegistry_HiddenOverlaySurvivesReplace(t *testing.T) {
	registry := NewGormReviewRegistry(setupSyncTestDB(t))
	ctx := context.Background()

	require.NoError(t, registry.ReplaceAll(ctx, []productsync.UnmatchedProductForReview{
		reviewRow(1, 10, "A"),
		reviewRow(2, 20, "B"),
	}))
	require.NoError(t, registry.Hide(ctx, 1, 10))
	require.NoError(t, registry.Hide(ctx, 1, 10))

	visible, err := registry.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, int64(20), visible[0].VariantID)

	all, err := registry.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Hidden)
	assert.False(t, all[1].Hidden)

	require.NoError(t, registry.ReplaceAll(ctx, nil))

	rows, err := registry.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, rows)

	hidden, err := registry.IsHidden(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, hidden)

	require.NoError(t, registry.Unhide(ctx, 1, 10))
	hidden, err = registry.IsHidden(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, hidden)
}
