package csvimport

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestReadSupplierProducts(t *testing.T) {
	t.Run("maps fuse5 export columns", func(t *testing.T) {
		csv := "unit_barcode,m1,quantity_onhand,product_number,line_code,product_name,location_name\n" +
			"012345,9.99,3,A1,LC,Nuts &amp; Bolts,L1\n" +
			"999999,,,X,,,\n"

		res, err := ReadSupplierProducts(strings.NewReader(csv), Fuse5ColumnMapping(""))
		require.NoError(t, err)
		require.Len(t, res.Products, 2)
		assert.Equal(t, 2, res.TotalRows)
		assert.False(t, res.Errors.HasErrors())

		p := res.Products[0]
		assert.Equal(t, "012345", p.Barcode)
		assert.Equal(t, "A1", p.SKU)
		assert.Equal(t, "9.99", p.Price.Decimal.String())
		require.NotNil(t, p.Quantity)
		assert.Equal(t, 3, *p.Quantity)
		assert.Equal(t, "Nuts & Bolts", p.ProductName)
		assert.Equal(t, "L1", p.LocationName)
		assert.Equal(t, "LC", p.LineCode)

		assert.False(t, res.Products[1].HasPrice())
		assert.False(t, res.Products[1].HasQuantity())
	})

	t.Run("custom price field", func(t *testing.T) {
		csv := "unit_barcode,m6,quantity_onhand,product_number,line_code,product_name,location_name\n" +
			"123456,4.5,1,A,,,\n"
		res, err := ReadSupplierProducts(strings.NewReader(csv), Fuse5ColumnMapping("m6"))
		require.NoError(t, err)
		require.Len(t, res.Products, 1)
		assert.Equal(t, "4.5", res.Products[0].Price.Decimal.String())
	})

	t.Run("skips unparsable rows and reports them", func(t *testing.T) {
		csv := "barcode,sku,price,quantity,location_name,product_name,line_code\n" +
			"123456,A,abc,1,,,\n" +
			"123457,B,1.00,many,,,\n" +
			"123458,C,2.00,2.0,,,\n" +
			",,,,,,\n"

		res, err := ReadSupplierProducts(strings.NewReader(csv), ColumnMapping{})
		require.NoError(t, err)
		require.Len(t, res.Products, 1)
		assert.Equal(t, "C", res.Products[0].SKU)
		assert.Equal(t, 2, *res.Products[0].Quantity)
		assert.Equal(t, 2, res.Errors.TotalCount())
		assert.Equal(t, 2, res.Errors.Errors()[0].Row)
		assert.Equal(t, "price", res.Errors.Errors()[0].Column)
	})

	t.Run("missing mapped columns", func(t *testing.T) {
		_, err := ReadSupplierProducts(strings.NewReader("barcode,sku\n1,2\n"), DefaultColumnMapping())
		assert.ErrorIs(t, err, ErrMissingColumns)
	})

	t.Run("partial mapping", func(t *testing.T) {
		mapping := ColumnMapping{Barcode: "UPC", SKU: "Part", Quantity: "Qty"}
		res, err := ReadSupplierProducts(strings.NewReader("UPC,Part,Qty\n123456,P-1,7\n"), mapping)
		require.NoError(t, err)
		require.Len(t, res.Products, 1)
		assert.False(t, res.Products[0].HasPrice())
		assert.Equal(t, 7, *res.Products[0].Quantity)
	})

	t.Run("legacy encoding", func(t *testing.T) {
		raw := []byte("barcode,sku,price,quantity,location_name,product_name,line_code\n123456,A,1,1,,Caf\xe9,\n")
		res, err := ReadSupplierProducts(bytes.NewReader(raw), DefaultColumnMapping(), WithEncoding(charmap.ISO8859_1))
		require.NoError(t, err)
		assert.Equal(t, "Café", res.Products[0].ProductName)
	})
}

func TestColumnMapping_Fields(t *testing.T) {
	assert.Equal(t,
		[]string{"unit_barcode", "m1", "quantity_onhand", "product_number", "line_code", "product_name", "location_name"},
		Fuse5ColumnMapping("").Fields())
	assert.Equal(t, []string{"a", "b"}, ColumnMapping{Barcode: "a", SKU: "b"}.Fields())
}
