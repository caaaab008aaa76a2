package productsync

import (
	"context"
	"time"
)

// SupplierCatalogLookup answers barcode and SKU queries over a catalog snapshot.
// Results are ordered by SupplierProduct.ID ascending.
type SupplierCatalogLookup interface {
	// FindByBarcodes returns every row whose barcode equals one of the given values
	FindByBarcodes(ctx context.Context, barcodes []string) ([]SupplierProduct, error)
	// FindBySKU returns every row whose SKU equals sku under the policy
	FindBySKU(ctx context.Context, sku string, policy SKUPolicy) ([]SupplierProduct, error)
}

// SupplierCatalogStore is the writable catalog snapshot of the Fuse5 source
type SupplierCatalogStore interface {
	SupplierCatalogLookup
	// ReplaceAll truncates the snapshot and loads products in one transaction
	ReplaceAll(ctx context.Context, products []SupplierProduct) (int64, error)
	// All returns the whole snapshot
	All(ctx context.Context) ([]SupplierProduct, error)
	// Count returns the number of rows in the snapshot
	Count(ctx context.Context) (int64, error)
}

// CatalogIndexer builds an in-memory lookup over a fetched catalog
type CatalogIndexer interface {
	Index(ctx context.Context, products []SupplierProduct) (SupplierCatalogLookup, func() error, error)
}

// CatalogHandle is a loaded catalog ready for matching
type CatalogHandle struct {
	Lookup SupplierCatalogLookup
	// Release frees resources held by the lookup; may be nil
	Release func() error
}

// Close releases the handle
func (h CatalogHandle) Close() error {
	if h.Release == nil {
		return nil
	}
	return h.Release()
}

// CustomCSV is an uploaded supplier feed
type CustomCSV struct {
	ID           int64
	Name         string
	CreatedAt    time.Time
	ProductCount int64
}

// CustomCSVRepository stores uploaded feeds as time-boxed shadow catalogs
type CustomCSVRepository interface {
	Create(ctx context.Context, name string, products []SupplierProduct) (*CustomCSV, error)
	FindByID(ctx context.Context, id int64) (*CustomCSV, error)
	FindAll(ctx context.Context) ([]CustomCSV, error)
	// Lookup returns a catalog lookup scoped to one feed
	Lookup(id int64) SupplierCatalogLookup
	// PruneOlderThan deletes whole feeds created before the cutoff
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
