package csvimport

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stocksync/backend/internal/domain/productsync"
)

// ColumnMapping names the CSV column holding each supplier product field.
// An empty name means the field is absent from the feed.
type ColumnMapping struct {
	Barcode      string `json:"barcode" yaml:"barcode"`
	SKU          string `json:"sku" yaml:"sku"`
	Price        string `json:"price" yaml:"price"`
	Quantity     string `json:"quantity" yaml:"quantity"`
	LocationName string `json:"location_name" yaml:"location_name"`
	ProductName  string `json:"product_name" yaml:"product_name"`
	LineCode     string `json:"line_code" yaml:"line_code"`
}

// DefaultColumnMapping is the layout of an uploaded custom CSV feed
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		Barcode:      "barcode",
		SKU:          "sku",
		Price:        "price",
		Quantity:     "quantity",
		LocationName: "location_name",
		ProductName:  "product_name",
		LineCode:     "line_code",
	}
}

// Fuse5ColumnMapping is the layout of a Fuse5 product export
func Fuse5ColumnMapping(priceField string) ColumnMapping {
	if priceField == "" {
		priceField = "m1"
	}
	return ColumnMapping{
		Barcode:      "unit_barcode",
		SKU:          "product_number",
		Price:        priceField,
		Quantity:     "quantity_onhand",
		LocationName: "location_name",
		ProductName:  "product_name",
		LineCode:     "line_code",
	}
}

// Fields returns the mapped column names in export request order
func (m ColumnMapping) Fields() []string {
	all := []string{m.Barcode, m.Price, m.Quantity, m.SKU, m.LineCode, m.ProductName, m.LocationName}
	out := make([]string, 0, len(all))
	for _, f := range all {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func (m ColumnMapping) withDefaults() ColumnMapping {
	d := DefaultColumnMapping()
	if m == (ColumnMapping{}) {
		return d
	}
	return m
}

// SupplierReadResult is the outcome of reading a supplier feed
type SupplierReadResult struct {
	Products  []productsync.SupplierProduct
	Errors    *ErrorCollection
	TotalRows int
}

// ReadSupplierProducts parses a supplier feed into catalog rows.
// Rows with an unparsable price or quantity are reported in Errors and skipped;
// a malformed CSV record stops the read.
func ReadSupplierProducts(r io.Reader, mapping ColumnMapping, opts ...ParserOption) (*SupplierReadResult, error) {
	mapping = mapping.withDefaults()

	parser, err := NewCSVParser(r, append([]ParserOption{WithHTMLUnescape(true)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := parser.ValidateHeaders(mapping.Fields()); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	validator := NewFieldValidator(
		Field(mapping.Price).Decimal().MinValue(decimal.Zero).Build(),
		Field(mapping.Quantity).Int().Build(),
	)

	result := &SupplierReadResult{Errors: NewErrorCollection(100)}
	for {
		row, err := parser.ReadRow()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if row.IsEmpty() {
			continue
		}

		if rowErrs := validator.ValidateRow(row); len(rowErrs) > 0 {
			for _, e := range rowErrs {
				result.Errors.Add(e)
			}
			continue
		}
		result.Products = append(result.Products, toSupplierProduct(row, mapping))
	}
	result.TotalRows = parser.TotalRows()

	return result, nil
}

func toSupplierProduct(row *Row, m ColumnMapping) productsync.SupplierProduct {
	get := func(col string) string {
		if col == "" {
			return ""
		}
		return row.Get(col)
	}

	p := productsync.SupplierProduct{
		Barcode:      get(m.Barcode),
		SKU:          get(m.SKU),
		LocationName: get(m.LocationName),
		ProductName:  get(m.ProductName),
		LineCode:     get(m.LineCode),
	}
	if v := get(m.Price); v != "" {
		p.Price = decimal.NewNullDecimal(decimal.RequireFromString(v))
	}
	if v := get(m.Quantity); v != "" {
		p.Quantity = productsync.IntPtr(int(decimal.RequireFromString(v).IntPart()))
	}
	return p
}
