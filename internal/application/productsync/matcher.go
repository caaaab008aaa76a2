package productsync

import (
	"cmp"
	"context"
	"fmt"
	"html"
	"slices"
	"strings"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/logger"
)

// Match is the outcome of a barcode lookup for one storefront variant
type Match struct {
	// Product is the supplier row chosen for the update
	Product productsync.SupplierProduct
	// Candidates are all rows that share the barcode, ordered by id
	Candidates []productsync.SupplierProduct
	// SKUMismatch is set when no candidate matched the variant SKU and the first one was used
	SKUMismatch bool
}

// MatcherConfig holds the matching policies
type MatcherConfig struct {
	SKUPolicy         productsync.SKUPolicy
	NearMissSKUPolicy productsync.SKUPolicy
	// DefaultLocation fills supplier rows that carry no location name
	DefaultLocation string
}

// Matcher resolves storefront variants against a supplier catalog snapshot
type Matcher struct {
	lookup productsync.SupplierCatalogLookup
	config MatcherConfig
}

// NewMatcher creates a matcher over lookup
func NewMatcher(lookup productsync.SupplierCatalogLookup, config MatcherConfig) *Matcher {
	if !config.SKUPolicy.IsValid() {
		config.SKUPolicy = productsync.SKUPolicyCaseInsensitive
	}
	if !config.NearMissSKUPolicy.IsValid() {
		config.NearMissSKUPolicy = productsync.SKUPolicySeparatorTolerant
	}
	return &Matcher{lookup: lookup, config: config}
}

// FindByBarcodeAndSKU returns the supplier row matching the variant barcode, narrowed by SKU.
// A variant without a barcode, or with no supplier row for it, yields (nil, nil).
// A malformed barcode yields productsync.ErrInvalidBarcode.
func (m *Matcher) FindByBarcodeAndSKU(ctx context.Context, variant productsync.StorefrontVariant) (*Match, error) {
	normalized, err := productsync.NormalizeBarcode(variant.Barcode)
	if err != nil {
		return nil, err
	}
	if normalized == "" {
		return nil, nil
	}

	rows, err := m.lookup.FindByBarcodes(ctx, productsync.BarcodeVariants(normalized))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", productsync.ErrCatalogUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	rows = m.withDefaults(rows)

	match := &Match{Product: rows[0], Candidates: rows}
	if variant.SKU == "" {
		return match, nil
	}

	for _, row := range rows {
		if m.config.SKUPolicy.Equal(row.SKU, variant.SKU) {
			match.Product = row
			return match, nil
		}
	}

	match.SKUMismatch = true
	logger.L(ctx).Warn(skuMismatchMessage(normalized, variant, rows))
	return match, nil
}

// FindBySKU returns the supplier rows whose SKU matches the variant SKU under the near-miss policy.
// The result only enriches unmatched records and never drives an update.
func (m *Matcher) FindBySKU(ctx context.Context, variant productsync.StorefrontVariant) ([]productsync.SupplierProduct, error) {
	if strings.TrimSpace(variant.SKU) == "" {
		return nil, nil
	}

	rows, err := m.lookup.FindBySKU(ctx, variant.SKU, m.config.NearMissSKUPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", productsync.ErrCatalogUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return m.withDefaults(rows), nil
}

// withDefaults orders rows by id and fills missing locations
func (m *Matcher) withDefaults(rows []productsync.SupplierProduct) []productsync.SupplierProduct {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b productsync.SupplierProduct) int {
		return cmp.Compare(a.ID, b.ID)
	})
	if m.config.DefaultLocation == "" {
		return out
	}
	for i := range out {
		if strings.TrimSpace(out[i].LocationName) == "" {
			out[i].LocationName = m.config.DefaultLocation
		}
	}
	return out
}

func skuMismatchMessage(barcode string, variant productsync.StorefrontVariant, rows []productsync.SupplierProduct) string {
	var b strings.Builder
	if len(rows) > 1 {
		fmt.Fprintf(&b, "A few products with the barcode %s have been found in the supplier's data, but no one "+
			"matched the SKU %s. Will use the first one.\n\tShopify product:", barcode, variant.SKU)
	} else {
		fmt.Fprintf(&b, "A product with the barcode %s has been found in the supplier's data, but the SKU %s do "+
			"not match.\n\tShopify product:", barcode, variant.SKU)
	}
	fmt.Fprintf(&b, "\n\t\tproduct_id=%d; variant_id=%d; sku=%s; barcode=%s\n\tSupplier's products:",
		variant.ProductID, variant.ID, variant.SKU, variant.Barcode)
	for _, p := range rows {
		fmt.Fprintf(&b, "\n\t\tbarcode=%s; sku=%s", p.Barcode, p.SKU)
		if p.ProductName != "" {
			fmt.Fprintf(&b, "; name=%s", html.UnescapeString(p.ProductName))
		}
	}
	return b.String()
}
