package productsync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/logger"
)

func snapshotWith(levels map[InventoryKey]*int, locations map[string]productsync.Location) *InventorySnapshot {
	return &InventorySnapshot{levels: levels, locations: locations}
}

func TestDecide(t *testing.T) {
	warehouse := productsync.Location{ID: 11, Name: "Main Warehouse"}
	locations := map[string]productsync.Location{"Main Warehouse": warehouse}
	both := productsync.DefaultSyncOptions()

	t.Run("price compared at cent precision", func(t *testing.T) {
		pair := MatchedPair{
			Variant: storefrontVariant(1, "1", "A", "20.00", 3),
			Product: supplierRow(1, "1", "A", "19.999", 3, "Main Warehouse"),
		}
		d := Decide(pair, snapshotWith(nil, locations), both)
		assert.False(t, d.UpdatePrice)
		assert.False(t, d.UpdateQuantity)
		assert.True(t, d.IsEmpty())
	})

	t.Run("price change", func(t *testing.T) {
		pair := MatchedPair{
			Variant: storefrontVariant(1, "1", "A", "20.00", 3),
			Product: supplierRow(1, "1", "A", "21.499", 3, "Main Warehouse"),
		}
		d := Decide(pair, snapshotWith(nil, locations), both)
		assert.True(t, d.UpdatePrice)
		assert.Equal(t, "21.50", d.NewPrice.StringFixed(2))
	})

	t.Run("quantity uses the level at the location", func(t *testing.T) {
		pair := MatchedPair{
			Variant: storefrontVariant(1, "1", "A", "20.00", 3),
			Product: supplierRow(1, "1", "A", "20.00", 3, "Main Warehouse"),
		}
		levels := map[InventoryKey]*int{{InventoryItemID: 100, LocationName: "Main Warehouse"}: productsync.IntPtr(8)}
		d := Decide(pair, snapshotWith(levels, locations), both)
		assert.True(t, d.UpdateQuantity)
		assert.Equal(t, 8, d.CurrentQuantity)
		assert.Equal(t, 3, d.NewQuantity)
		assert.Equal(t, warehouse, d.Location)
	})

	t.Run("quantity falls back to the variant inventory", func(t *testing.T) {
		pair := MatchedPair{
			Variant: storefrontVariant(1, "1", "A", "20.00", 3),
			Product: supplierRow(1, "1", "A", "20.00", 3, "Main Warehouse"),
		}
		d := Decide(pair, snapshotWith(nil, locations), both)
		assert.False(t, d.UpdateQuantity)
	})

	t.Run("unresolved location skips quantity only", func(t *testing.T) {
		pair := MatchedPair{
			Variant: storefrontVariant(1, "1", "A", "20.00", 3),
			Product: supplierRow(1, "1", "A", "25.00", 9, "Harbor"),
		}
		d := Decide(pair, snapshotWith(nil, locations), both)
		assert.True(t, d.UpdatePrice)
		assert.False(t, d.UpdateQuantity)
	})

	t.Run("unavailable snapshot skips quantity", func(t *testing.T) {
		pair := MatchedPair{
			Variant: storefrontVariant(1, "1", "A", "20.00", 3),
			Product: supplierRow(1, "1", "A", "20.00", 9, "Main Warehouse"),
		}
		snap := snapshotWith(nil, locations)
		snap.Unavailable = true
		assert.True(t, Decide(pair, snap, both).IsEmpty())
		assert.True(t, Decide(pair, nil, both).IsEmpty())
	})

	t.Run("options disable fields", func(t *testing.T) {
		pair := MatchedPair{
			Variant: storefrontVariant(1, "1", "A", "20.00", 3),
			Product: supplierRow(1, "1", "A", "25.00", 9, "Main Warehouse"),
		}
		d := Decide(pair, snapshotWith(nil, locations), productsync.SyncOptions{})
		assert.True(t, d.IsEmpty())
	})

	t.Run("missing supplier values", func(t *testing.T) {
		product := supplierRow(1, "1", "A", "", 0, "Main Warehouse")
		product.Quantity = nil
		pair := MatchedPair{Variant: storefrontVariant(1, "1", "A", "20.00", 3), Product: product}
		assert.True(t, Decide(pair, snapshotWith(nil, locations), both).IsEmpty())
	})
}

func newTestUpdater(sf *fakeStorefront, attempts int) (*VariantUpdater, *[]time.Duration) {
	var sleeps []time.Duration
	u := NewVariantUpdater(sf, RetryPolicy{Attempts: attempts, Delay: time.Second})
	u.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return u, &sleeps
}

func fullDecision() Decision {
	return Decision{
		UpdatePrice:     true,
		NewPrice:        decimal.RequireFromString("12.50"),
		UpdateQuantity:  true,
		CurrentQuantity: 1,
		NewQuantity:     3,
		Location:        productsync.Location{ID: 11, Name: "Main Warehouse"},
	}
}

func TestVariantUpdater_Apply(t *testing.T) {
	pair := MatchedPair{
		Variant: storefrontVariant(2, "400638133393", "B-2", "10.00", 1),
		Product: supplierRow(1, "400638133393", "B-2", "12.50", 3, "Main Warehouse"),
	}

	t.Run("dry run writes nothing", func(t *testing.T) {
		sf := &fakeStorefront{}
		u, _ := newTestUpdater(sf, 3)
		sink := logger.NewMemorySink()
		ctx := logger.WithContext(context.Background(), logger.TeeToSink(logger.FromContext(context.Background()), sink))

		out := u.Apply(ctx, pair, fullDecision(), true)
		assert.True(t, out.Updated)
		assert.True(t, out.PriceUpdated)
		assert.True(t, out.QuantityUpdated)
		assert.Empty(t, sf.saves)
		assert.Empty(t, sf.sets)

		logs := strings.Join(sink.Lines(0), "\n")
		assert.Contains(t, logs, "Matched products found")
		assert.Contains(t, logs, "The price will be updated to 12.50")
		assert.Contains(t, logs, "The quantity will be updated to 3")

		price, ok := out.Changes.Price()
		require.True(t, ok)
		assert.Equal(t, "10.00", price.Old.StringFixed(2))
	})

	t.Run("dry run up to date", func(t *testing.T) {
		sink := logger.NewMemorySink()
		ctx := logger.WithContext(context.Background(), logger.TeeToSink(logger.FromContext(context.Background()), sink))
		u, _ := newTestUpdater(&fakeStorefront{}, 3)

		mismatch := pair
		mismatch.SKUMismatch = true
		out := u.Apply(ctx, mismatch, Decision{}, true)
		assert.False(t, out.Updated)

		logs := strings.Join(sink.Lines(0), "\n")
		assert.Contains(t, logs, "The product is up to date")
		assert.Contains(t, logs, "WARNING! SKU is not equal for in the variant ID=2")
	})

	t.Run("live run writes both fields", func(t *testing.T) {
		sf := &fakeStorefront{}
		u, _ := newTestUpdater(sf, 3)

		out := u.Apply(context.Background(), pair, fullDecision(), false)
		assert.True(t, out.PriceUpdated)
		assert.True(t, out.QuantityUpdated)
		require.Len(t, sf.saves, 1)
		assert.Equal(t, "12.50", sf.saves[0].price.StringFixed(2))
		require.Len(t, sf.sets, 1)
		assert.Equal(t, setCall{itemID: 200, locationID: 11, available: 3}, sf.sets[0])

		q, ok := out.Changes.Quantity()
		require.True(t, ok)
		assert.Equal(t, 1, *q.Old)
		assert.Equal(t, "Main Warehouse", q.Location)
	})

	t.Run("retries only on rate limit", func(t *testing.T) {
		sf := &fakeStorefront{
			saveErrs: []error{productsync.ErrRateLimited, productsync.ErrRateLimited, nil},
		}
		u, sleeps := newTestUpdater(sf, 3)

		out := u.Apply(context.Background(), pair, Decision{UpdatePrice: true, NewPrice: decimal.RequireFromString("12.50")}, false)
		assert.True(t, out.PriceUpdated)
		assert.Len(t, sf.saves, 3)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *sleeps)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		sf := &fakeStorefront{
			saveErrs: []error{productsync.ErrStorefrontRequestFailed},
		}
		u, sleeps := newTestUpdater(sf, 3)

		out := u.Apply(context.Background(), pair, fullDecision(), false)
		assert.True(t, out.PriceFailed)
		assert.False(t, out.PriceUpdated)
		assert.True(t, out.QuantityUpdated, "quantity is independent of price")
		assert.Len(t, sf.saves, 1)
		assert.Empty(t, *sleeps)

		_, ok := out.Changes.Price()
		assert.False(t, ok)
	})

	t.Run("retries are bounded", func(t *testing.T) {
		sf := &fakeStorefront{
			setErrs: []error{productsync.ErrRateLimited, productsync.ErrRateLimited, productsync.ErrRateLimited},
		}
		u, _ := newTestUpdater(sf, 2)

		out := u.Apply(context.Background(), pair, Decision{UpdateQuantity: true, NewQuantity: 3, Location: productsync.Location{ID: 11}}, false)
		assert.True(t, out.QuantityFailed)
		assert.False(t, out.Updated)
		assert.Len(t, sf.sets, 3)
	})

	t.Run("cancelled sleep stops retrying", func(t *testing.T) {
		sf := &fakeStorefront{saveErrs: []error{productsync.ErrRateLimited, nil}}
		u := NewVariantUpdater(sf, RetryPolicy{Attempts: 3, Delay: time.Second})
		u.sleep = func(context.Context, time.Duration) error { return errors.New("cancelled") }

		out := u.Apply(context.Background(), pair, Decision{UpdatePrice: true, NewPrice: decimal.RequireFromString("12.50")}, false)
		assert.True(t, out.PriceFailed)
		assert.Len(t, sf.saves, 1)
	})
}
