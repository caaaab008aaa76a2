package productsync

import (
	"html"
	"strings"

	"github.com/shopspring/decimal"
)

// SupplierProduct is one row of a supplier catalog snapshot.
// Several rows may share a barcode (one per stock location) or collide entirely.
type SupplierProduct struct {
	// ID is the internal row id; lower ids win every tie-break
	ID           int64
	Barcode      string
	SKU          string
	Price        decimal.NullDecimal
	Quantity     *int
	LocationName string
	ProductName  string
	LineCode     string
}

// HasPrice returns true if the supplier declared a price
func (p SupplierProduct) HasPrice() bool {
	return p.Price.Valid
}

// HasQuantity returns true if the supplier declared an on-hand quantity
func (p SupplierProduct) HasQuantity() bool {
	return p.Quantity != nil
}

// RoundedPrice returns the supplier price rounded to cents
func (p SupplierProduct) RoundedPrice() decimal.Decimal {
	return p.Price.Decimal.Round(2)
}

// WithLocation returns a copy of the product stocked at the given location
func (p SupplierProduct) WithLocation(name string) SupplierProduct {
	p.LocationName = name
	return p
}

// Label returns the barcode, or the unescaped product name when the barcode is empty
func (p SupplierProduct) Label() string {
	if p.Barcode != "" {
		return p.Barcode
	}
	return html.UnescapeString(p.ProductName)
}

// JoinLabels renders candidates as a comma separated list of labels
func JoinLabels(products []SupplierProduct) string {
	if len(products) == 0 {
		return ""
	}
	labels := make([]string, 0, len(products))
	for _, p := range products {
		labels = append(labels, p.Label())
	}
	return strings.Join(labels, ", ")
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
