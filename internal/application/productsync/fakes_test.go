package productsync

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/stocksync/backend/internal/domain/productsync"
)

// ---------------------------------------------------------------------------
// Builders
// ---------------------------------------------------------------------------

func supplierRow(id int64, barcode, sku, price string, qty int, location string) productsync.SupplierProduct {
	p := productsync.SupplierProduct{
		ID:           id,
		Barcode:      barcode,
		SKU:          sku,
		Quantity:     productsync.IntPtr(qty),
		LocationName: location,
	}
	if price != "" {
		p.Price = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	return p
}

func storefrontVariant(id int64, barcode, sku, price string, qty int) productsync.StorefrontVariant {
	return productsync.StorefrontVariant{
		ID:                id,
		ProductID:         id * 10,
		Title:             "Variant",
		SKU:               sku,
		Barcode:           barcode,
		Price:             decimal.RequireFromString(price),
		InventoryQuantity: qty,
		InventoryItemID:   id * 100,
	}
}

// ---------------------------------------------------------------------------
// Catalog lookup
// ---------------------------------------------------------------------------

type memLookup struct {
	products []productsync.SupplierProduct
	err      error
	calls    int
}

func (l *memLookup) FindByBarcodes(_ context.Context, barcodes []string) ([]productsync.SupplierProduct, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	var out []productsync.SupplierProduct
	for _, p := range l.products {
		if slices.Contains(barcodes, p.Barcode) {
			out = append(out, p)
		}
	}
	return sortByID(out), nil
}

func (l *memLookup) FindBySKU(_ context.Context, sku string, policy productsync.SKUPolicy) ([]productsync.SupplierProduct, error) {
	if l.err != nil {
		return nil, l.err
	}
	var out []productsync.SupplierProduct
	for _, p := range l.products {
		if policy.Equal(p.SKU, sku) {
			out = append(out, p)
		}
	}
	return sortByID(out), nil
}

func sortByID(rows []productsync.SupplierProduct) []productsync.SupplierProduct {
	slices.SortFunc(rows, func(a, b productsync.SupplierProduct) int { return cmp.Compare(a.ID, b.ID) })
	return rows
}

// ---------------------------------------------------------------------------
// Storefront
// ---------------------------------------------------------------------------

type sliceIterator struct {
	variants []productsync.StorefrontVariant
	pos      int
	failAt   int
	err      error
	onNext   func(pos int)
}

func (it *sliceIterator) Next(context.Context) bool {
	if it.err != nil && it.pos == it.failAt {
		return false
	}
	if it.pos >= len(it.variants) {
		return false
	}
	if it.onNext != nil {
		it.onNext(it.pos)
	}
	it.pos++
	return true
}

func (it *sliceIterator) Variant() productsync.StorefrontVariant {
	return it.variants[it.pos-1]
}

func (it *sliceIterator) Err() error {
	if it.err != nil && it.pos == it.failAt {
		return it.err
	}
	return nil
}

type levelCall struct {
	items     []int64
	locations []int64
}

type saveCall struct {
	variantID int64
	price     decimal.Decimal
}

type setCall struct {
	itemID     int64
	locationID int64
	available  int
}

type fakeStorefront struct {
	mu sync.Mutex

	variants   []productsync.StorefrontVariant
	iterErr    error
	iterFailAt int
	onNext     func(pos int)

	locations    []productsync.Location
	locationsErr error
	levels       []productsync.InventoryLevel
	levelsErr    error
	titles       map[int64]string

	// saveErrs and setErrs are consumed one per call
	saveErrs []error
	setErrs  []error

	levelCalls []levelCall
	saves      []saveCall
	sets       []setCall
	titleCalls [][]int64
}

func (f *fakeStorefront) Variants(context.Context) productsync.VariantIterator {
	return &sliceIterator{variants: f.variants, err: f.iterErr, failAt: f.iterFailAt, onNext: f.onNext}
}

func (f *fakeStorefront) Locations(context.Context) ([]productsync.Location, error) {
	return f.locations, f.locationsErr
}

func (f *fakeStorefront) InventoryLevels(_ context.Context, items, locations []int64) ([]productsync.InventoryLevel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levelCalls = append(f.levelCalls, levelCall{items: slices.Clone(items), locations: slices.Clone(locations)})
	if f.levelsErr != nil {
		return nil, f.levelsErr
	}
	var out []productsync.InventoryLevel
	for _, l := range f.levels {
		if slices.Contains(items, l.InventoryItemID) && slices.Contains(locations, l.LocationID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStorefront) SetInventoryLevel(_ context.Context, itemID, locationID int64, available int) (*productsync.InventoryLevel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = append(f.sets, setCall{itemID: itemID, locationID: locationID, available: available})
	if len(f.setErrs) > 0 {
		err := f.setErrs[0]
		f.setErrs = f.setErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &productsync.InventoryLevel{InventoryItemID: itemID, LocationID: locationID, Available: productsync.IntPtr(available)}, nil
}

func (f *fakeStorefront) SaveVariant(_ context.Context, v productsync.StorefrontVariant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, saveCall{variantID: v.ID, price: v.Price})
	if len(f.saveErrs) > 0 {
		err := f.saveErrs[0]
		f.saveErrs = f.saveErrs[1:]
		return err
	}
	return nil
}

func (f *fakeStorefront) GetVariant(_ context.Context, id int64) (*productsync.StorefrontVariant, error) {
	for _, v := range f.variants {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, productsync.ErrVariantNotFound
}

func (f *fakeStorefront) ProductTitles(_ context.Context, ids []int64) (map[int64]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titleCalls = append(f.titleCalls, slices.Clone(ids))
	out := make(map[int64]string)
	for _, id := range ids {
		if t, ok := f.titles[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Ledger
// ---------------------------------------------------------------------------

type memLedger struct {
	entries   []productsync.UpdateLogEntry
	recordErr error
	pruned    []time.Time
}

func (l *memLedger) NextGroupID(context.Context) (int64, error) {
	var maxGID int64
	for _, e := range l.entries {
		maxGID = max(maxGID, e.GID)
	}
	return maxGID + 1, nil
}

func (l *memLedger) Record(_ context.Context, entries []productsync.UpdateLogEntry) error {
	if l.recordErr != nil {
		return l.recordErr
	}
	for _, e := range entries {
		e.ID = int64(len(l.entries) + 1)
		if e.Time.IsZero() {
			e.Time = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
		}
		l.entries = append(l.entries, e)
	}
	return nil
}

func (l *memLedger) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	l.pruned = append(l.pruned, cutoff)
	return 0, nil
}

func (l *memLedger) FindByGroup(_ context.Context, gid int64) ([]productsync.UpdateLogEntry, error) {
	var out []productsync.UpdateLogEntry
	for _, e := range l.entries {
		if e.GID == gid {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *memLedger) LatestGroupID(context.Context) (int64, error) {
	var maxGID int64
	for _, e := range l.entries {
		maxGID = max(maxGID, e.GID)
	}
	return maxGID, nil
}

// ---------------------------------------------------------------------------
// Repositories
// ---------------------------------------------------------------------------

// MockStockDataSourceRepository is a mock implementation of productsync.StockDataSourceRepository
type MockStockDataSourceRepository struct {
	mock.Mock
}

func (m *MockStockDataSourceRepository) FindByID(ctx context.Context, id int64) (*productsync.StockDataSource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productsync.StockDataSource), args.Error(1)
}

func (m *MockStockDataSourceRepository) FindActive(ctx context.Context) ([]productsync.StockDataSource, error) {
	args := m.Called(ctx)
	return args.Get(0).([]productsync.StockDataSource), args.Error(1)
}

func (m *MockStockDataSourceRepository) FindAll(ctx context.Context) ([]productsync.StockDataSource, error) {
	args := m.Called(ctx)
	return args.Get(0).([]productsync.StockDataSource), args.Error(1)
}

func (m *MockStockDataSourceRepository) Upsert(ctx context.Context, source *productsync.StockDataSource) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

// MockReviewRegistry is a mock implementation of productsync.ReviewRegistry
type MockReviewRegistry struct {
	mock.Mock
}

func (m *MockReviewRegistry) ReplaceAll(ctx context.Context, entries []productsync.UnmatchedProductForReview) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockReviewRegistry) List(ctx context.Context, includeHidden bool) ([]productsync.UnmatchedProductForReview, error) {
	args := m.Called(ctx, includeHidden)
	return args.Get(0).([]productsync.UnmatchedProductForReview), args.Error(1)
}

func (m *MockReviewRegistry) IsHidden(ctx context.Context, productID, variantID int64) (bool, error) {
	args := m.Called(ctx, productID, variantID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviewRegistry) Hide(ctx context.Context, productID, variantID int64) error {
	args := m.Called(ctx, productID, variantID)
	return args.Error(0)
}

func (m *MockReviewRegistry) Unhide(ctx context.Context, productID, variantID int64) error {
	args := m.Called(ctx, productID, variantID)
	return args.Error(0)
}

// MockCustomCSVRepository is a mock implementation of productsync.CustomCSVRepository
type MockCustomCSVRepository struct {
	mock.Mock
}

func (m *MockCustomCSVRepository) Create(ctx context.Context, name string, products []productsync.SupplierProduct) (*productsync.CustomCSV, error) {
	args := m.Called(ctx, name, products)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productsync.CustomCSV), args.Error(1)
}

func (m *MockCustomCSVRepository) FindByID(ctx context.Context, id int64) (*productsync.CustomCSV, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*productsync.CustomCSV), args.Error(1)
}

func (m *MockCustomCSVRepository) FindAll(ctx context.Context) ([]productsync.CustomCSV, error) {
	args := m.Called(ctx)
	return args.Get(0).([]productsync.CustomCSV), args.Error(1)
}

func (m *MockCustomCSVRepository) Lookup(id int64) productsync.SupplierCatalogLookup {
	args := m.Called(id)
	return args.Get(0).(productsync.SupplierCatalogLookup)
}

func (m *MockCustomCSVRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// ---------------------------------------------------------------------------
// Processor and metrics
// ---------------------------------------------------------------------------

type stubProcessor struct {
	kind     productsync.SourceKind
	lookup   productsync.SupplierCatalogLookup
	err      error
	loads    int
	released int
}

func (p *stubProcessor) Kind() productsync.SourceKind { return p.kind }

func (p *stubProcessor) LoadCatalog(context.Context, productsync.StockDataSource) (productsync.CatalogHandle, error) {
	p.loads++
	if p.err != nil {
		return productsync.CatalogHandle{}, p.err
	}
	return productsync.CatalogHandle{Lookup: p.lookup, Release: func() error {
		p.released++
		return nil
	}}, nil
}

type countingMetrics struct {
	NopMetrics
	mu       sync.Mutex
	outcomes []string
	matches  map[string]int
	applied  map[string]int
	groups   []int64
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{matches: map[string]int{}, applied: map[string]int{}}
}

func (m *countingMetrics) RunFinished(_ string, _ bool, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *countingMetrics) Matched(_ string, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[kind]++
}

func (m *countingMetrics) UpdateApplied(_ string, field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied[field]++
}

func (m *countingMetrics) GroupRecorded(gid int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = append(m.groups, gid)
}

type memExportStore struct {
	name        string
	data        []byte
	contentType string
}

func (s *memExportStore) Upload(_ context.Context, name string, data []byte, contentType string) (string, error) {
	s.name, s.data, s.contentType = name, slices.Clone(data), contentType
	return "https://exports.example.com/" + name + "?X-Amz-Signature=abc", nil
}
