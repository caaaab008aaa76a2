package productsync

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stocksync/backend/internal/domain/productsync"
)

type syncFixture struct {
	sources    *MockStockDataSourceRepository
	registry   *MockReviewRegistry
	storefront *fakeStorefront
	ledger     *memLedger
	processor  *stubProcessor
	metrics    *countingMetrics
	source     *productsync.StockDataSource
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		sources:  new(MockStockDataSourceRepository),
		registry: new(MockReviewRegistry),
		ledger:   &memLedger{},
		metrics:  newCountingMetrics(),
		source: &productsync.StockDataSource{
			ID:     1,
			Name:   "Fuse5",
			Active: true,
			Kind:   productsync.SourceKindFuse5,
		},
	}
	f.processor = &stubProcessor{
		kind: productsync.SourceKindFuse5,
		lookup: &memLookup{products: []productsync.SupplierProduct{
			supplierRow(1, "012345678905", "A-1", "12.50", 5, "Main Warehouse"),
			supplierRow(2, "400638133393", "B-2", "8.00", 3, "Main Warehouse"),
			supplierRow(3, "999999999999", "C-3", "4.00", 1, "Main Warehouse"),
		}},
	}
	f.storefront = &fakeStorefront{
		variants: []productsync.StorefrontVariant{
			storefrontVariant(1, "12345678905", "a-1", "10.00", 5),
			storefrontVariant(2, "400638133393", "B-2", "8.00", 1),
			storefrontVariant(3, "111111111111", "C_3", "4.00", 1),
			storefrontVariant(4, "222222222222", "", "4.00", 1),
			storefrontVariant(5, "12", "E", "4.00", 1),
		},
		locations: []productsync.Location{{ID: 11, Name: "Main Warehouse"}},
		levels: []productsync.InventoryLevel{
			{InventoryItemID: 100, LocationID: 11, Available: productsync.IntPtr(5)},
			{InventoryItemID: 200, LocationID: 11, Available: productsync.IntPtr(1)},
		},
		titles: map[int64]string{30: "Brake pad", 40: "Oil filter"},
	}
	f.sources.On("FindByID", mock.Anything, int64(1)).Return(f.source, nil)
	return f
}

func (f *syncFixture) service(batchSize int) *SyncService {
	return NewSyncService(SyncDeps{
		Sources:    f.sources,
		Processors: NewProcessors(f.processor),
		Storefront: f.storefront,
		Ledger:     f.ledger,
		Registry:   f.registry,
		Metrics:    f.metrics,
	}, SyncConfig{
		BatchSize:             batchSize,
		SKUPolicy:             productsync.SKUPolicyCaseInsensitive,
		NearMissSKUPolicy:     productsync.SKUPolicySeparatorTolerant,
		DefaultLocationName:   "Main Warehouse",
		WriteRetry:            RetryPolicy{Attempts: 1},
		LogRetentionDays:      30,
		TitleFetchConcurrency: 2,
	})
}

func TestSyncService_RunSync_Live(t *testing.T) {
	f := newSyncFixture()
	f.registry.On("ReplaceAll", mock.Anything, mock.MatchedBy(func(rows []productsync.UnmatchedProductForReview) bool {
		return len(rows) == 2 &&
			rows[0].VariantID == 3 && rows[0].ProductTitle == "Brake pad" && len(rows[0].PossibleMatches) == 1 &&
			rows[1].VariantID == 4 && rows[1].ProductTitle == "Oil filter" && len(rows[1].PossibleMatches) == 0
	})).Return(nil).Once()

	result, err := f.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 1})
	require.NoError(t, err)

	require.NotNil(t, result.GID)
	assert.Equal(t, int64(1), *result.GID)
	assert.False(t, result.Aborted)
	assert.False(t, result.Incomplete)

	st := result.Stats
	assert.Equal(t, 5, st.Variants)
	assert.Equal(t, 2, st.Matched)
	assert.Equal(t, 2, st.Unmatched)
	assert.Equal(t, 1, st.NearMisses)
	assert.Equal(t, 1, st.InvalidBarcodes)
	assert.Equal(t, 1, st.PriceUpdates)
	assert.Equal(t, 1, st.QuantityUpdates)

	require.Len(t, f.storefront.saves, 1)
	assert.Equal(t, saveCall{variantID: 1, price: f.storefront.saves[0].price}, f.storefront.saves[0])
	assert.Equal(t, "12.50", f.storefront.saves[0].price.StringFixed(2))
	assert.Equal(t, []setCall{{itemID: 200, locationID: 11, available: 3}}, f.storefront.sets)
	assert.Len(t, f.storefront.levelCalls, 1)

	require.Len(t, f.ledger.entries, 4)
	for _, e := range f.ledger.entries {
		assert.Equal(t, int64(1), e.GID)
		assert.Equal(t, "Fuse5", e.Source)
	}
	assert.False(t, f.ledger.entries[0].Changes.Unmatched())
	assert.True(t, f.ledger.entries[2].Changes.Unmatched())
	assert.Equal(t, "999999999999", f.ledger.entries[2].Changes.MatchedBySKU())
	assert.Len(t, f.ledger.pruned, 1)

	logs := strings.Join(result.Logs, "\n")
	assert.Contains(t, logs, "Starting Fuse 5 products sync...")
	assert.Contains(t, logs, "Fuse 5 products sync done!")
	assert.Contains(t, logs, "The shopify barcode is invalid: 12")
	assert.Contains(t, logs, "Found matches: 999999999999")
	assert.Contains(t, logs, "The matched product was not found in the supplier's data")

	assert.Equal(t, 1, f.processor.released)
	assert.Equal(t, []string{OutcomeSuccess}, f.metrics.outcomes)
	assert.Equal(t, []int64{1}, f.metrics.groups)
	assert.Equal(t, 1, f.metrics.matches[MatchKindNearMiss])
	f.registry.AssertExpectations(t)
}

func TestSyncService_RunSync_DryMatchesLive(t *testing.T) {
	dry := newSyncFixture()
	dryResult, err := dry.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 1, Dry: true})
	require.NoError(t, err)

	live := newSyncFixture()
	live.registry.On("ReplaceAll", mock.Anything, mock.Anything).Return(nil)
	liveResult, err := live.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 1})
	require.NoError(t, err)

	assert.Equal(t, liveResult.Stats, dryResult.Stats)
	assert.Nil(t, dryResult.GID)
	assert.Empty(t, dry.storefront.saves)
	assert.Empty(t, dry.storefront.sets)
	assert.Empty(t, dry.ledger.entries)
	assert.Empty(t, dry.ledger.pruned)
	dry.registry.AssertNotCalled(t, "ReplaceAll", mock.Anything, mock.Anything)

	logs := strings.Join(dryResult.Logs, "\n")
	assert.Contains(t, logs, "The price will be updated to 12.50")
	assert.Contains(t, logs, "The quantity will be updated to 3")
}

func TestSyncService_RunSync_GroupIDFollowsLedger(t *testing.T) {
	f := newSyncFixture()
	f.ledger.entries = []productsync.UpdateLogEntry{{ID: 1, GID: 41}}
	f.registry.On("ReplaceAll", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 1})
	require.NoError(t, err)
	require.NotNil(t, result.GID)
	assert.Equal(t, int64(42), *result.GID)
}

func TestSyncService_RunSync_Batches(t *testing.T) {
	f := newSyncFixture()
	f.registry.On("ReplaceAll", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service(1).RunSync(context.Background(), productsync.RunRequest{SourceID: 1})
	require.NoError(t, err)
	assert.Len(t, f.storefront.levelCalls, 2)
}

func TestSyncService_RunSync_Options(t *testing.T) {
	f := newSyncFixture()
	f.registry.On("ReplaceAll", mock.Anything, mock.Anything).Return(nil)

	opts := productsync.SyncOptions{UpdatePrice: false, UpdateInventory: true}
	result, err := f.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 1, Options: &opts})
	require.NoError(t, err)
	assert.Empty(t, f.storefront.saves)
	assert.Len(t, f.storefront.sets, 1)
	assert.Equal(t, 0, result.Stats.PriceUpdates)
}

func TestSyncService_RunSync_Abort(t *testing.T) {
	t.Run("before the catalog is loaded", func(t *testing.T) {
		f := newSyncFixture()
		abort := &productsync.AbortFlag{}
		abort.Abort()

		result, err := f.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 1, Abort: abort})
		require.NoError(t, err)
		assert.True(t, result.Aborted)
		assert.Nil(t, result.GID)
		assert.Zero(t, f.processor.loads)
		assert.Contains(t, strings.Join(result.Logs, "\n"), "The process has been aborted")
		assert.Equal(t, []string{OutcomeAborted}, f.metrics.outcomes)
	})

	t.Run("between batches", func(t *testing.T) {
		f := newSyncFixture()
		abort := &productsync.AbortFlag{}
		f.storefront.onNext = func(pos int) {
			if pos == 1 {
				abort.Abort()
			}
		}

		result, err := f.service(1).RunSync(context.Background(), productsync.RunRequest{SourceID: 1, Abort: abort})
		require.NoError(t, err)
		assert.True(t, result.Aborted)
		require.NotNil(t, result.GID)

		assert.Len(t, f.storefront.saves, 1, "the first batch stays committed")
		assert.Empty(t, f.storefront.sets)
		require.Len(t, f.ledger.entries, 1)
		assert.False(t, f.ledger.entries[0].Changes.Unmatched())
		f.registry.AssertNotCalled(t, "ReplaceAll", mock.Anything, mock.Anything)
		assert.Empty(t, f.metrics.groups)
	})
}

func TestSyncService_RunSync_IterationFailure(t *testing.T) {
	f := newSyncFixture()
	f.storefront.iterErr = productsync.ErrStorefrontUnavailable
	f.storefront.iterFailAt = 3

	result, err := f.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 1})
	require.NoError(t, err)
	assert.True(t, result.Incomplete)
	assert.Equal(t, 3, result.Stats.Variants)

	assert.Len(t, f.storefront.saves, 1, "the pending batch is flushed")
	for _, e := range f.ledger.entries {
		assert.False(t, e.Changes.Unmatched())
	}
	f.registry.AssertNotCalled(t, "ReplaceAll", mock.Anything, mock.Anything)
}

func TestSyncService_RunSync_Errors(t *testing.T) {
	t.Run("unknown source", func(t *testing.T) {
		f := newSyncFixture()
		f.sources.On("FindByID", mock.Anything, int64(9)).Return(nil, productsync.ErrSourceNotFound)

		_, err := f.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 9})
		assert.ErrorIs(t, err, productsync.ErrSourceNotFound)
	})

	t.Run("inactive source rejects live runs only", func(t *testing.T) {
		f := newSyncFixture()
		f.source.Active = false

		_, err := f.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 1})
		assert.ErrorIs(t, err, productsync.ErrSourceInactive)

		_, err = f.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 1, Dry: true})
		assert.NoError(t, err)
	})

	t.Run("no processor for kind", func(t *testing.T) {
		f := newSyncFixture()
		f.source.Kind = productsync.SourceKindCustomCSV

		_, err := f.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 1})
		assert.ErrorIs(t, err, productsync.ErrNoProcessor)
	})

	t.Run("catalog failure", func(t *testing.T) {
		f := newSyncFixture()
		f.processor.err = productsync.ErrCatalogUnavailable

		result, err := f.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 1})
		assert.ErrorIs(t, err, productsync.ErrCatalogUnavailable)
		require.NotNil(t, result)
		assert.Equal(t, []string{OutcomeFailed}, f.metrics.outcomes)
	})

	t.Run("ledger failure is fatal", func(t *testing.T) {
		f := newSyncFixture()
		f.ledger.recordErr = errors.New("disk full")

		_, err := f.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 1})
		assert.ErrorContains(t, err, "record update log")
	})

	t.Run("registry failure is fatal", func(t *testing.T) {
		f := newSyncFixture()
		f.registry.On("ReplaceAll", mock.Anything, mock.Anything).Return(errors.New("deadlock"))

		_, err := f.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 1})
		assert.ErrorContains(t, err, "replace unmatched products for review")
	})
}

func TestSyncService_RunSync_Sink(t *testing.T) {
	f := newSyncFixture()
	f.registry.On("ReplaceAll", mock.Anything, mock.Anything).Return(nil)

	var lines []productsync.LogLine
	sink := productsync.LogSinkFunc(func(l productsync.LogLine) { lines = append(lines, l) })

	result, err := f.service(0).RunSync(context.Background(), productsync.RunRequest{SourceID: 1, Sink: sink})
	require.NoError(t, err)
	assert.Len(t, lines, len(result.Logs))
}
