package productsync

import (
	"context"

	"github.com/shopspring/decimal"
)

// StorefrontVariant is a product variant owned by the storefront
type StorefrontVariant struct {
	ID                int64
	ProductID         int64
	Title             string
	SKU               string
	Barcode           string
	Price             decimal.Decimal
	InventoryQuantity int
	InventoryItemID   int64
	LocationID        int64
}

// WithPrice returns a copy of the variant carrying a new price
func (v StorefrontVariant) WithPrice(price decimal.Decimal) StorefrontVariant {
	v.Price = price
	return v
}

// Location is a storefront stock location
type Location struct {
	ID   int64
	Name string
}

// InventoryLevel is the on-hand quantity of one inventory item at one location
type InventoryLevel struct {
	InventoryItemID int64
	LocationID      int64
	Available       *int
}

// VariantIterator enumerates storefront variants page by page.
// Each call to Next may block on a page fetch and its rate-limit delays.
type VariantIterator interface {
	// Next advances to the next variant, returning false at the end or on error
	Next(ctx context.Context) bool
	// Variant returns the current variant
	Variant() StorefrontVariant
	// Err returns the error that stopped the iteration, if any
	Err() error
}

// StorefrontClient is the port to the storefront platform
type StorefrontClient interface {
	// Variants returns a lazy iterator over every variant of the store
	Variants(ctx context.Context) VariantIterator
	// Locations lists the store locations
	Locations(ctx context.Context) ([]Location, error)
	// InventoryLevels fetches the levels of every (item, location) combination in one logical call
	InventoryLevels(ctx context.Context, inventoryItemIDs, locationIDs []int64) ([]InventoryLevel, error)
	// SetInventoryLevel sets the available quantity of an item at a location
	SetInventoryLevel(ctx context.Context, inventoryItemID, locationID int64, available int) (*InventoryLevel, error)
	// SaveVariant persists the variant price
	SaveVariant(ctx context.Context, variant StorefrontVariant) error
	// GetVariant returns a variant or ErrVariantNotFound
	GetVariant(ctx context.Context, id int64) (*StorefrontVariant, error)
	// ProductTitles returns the titles of the given products keyed by product id
	ProductTitles(ctx context.Context, productIDs []int64) (map[int64]string, error)
}
