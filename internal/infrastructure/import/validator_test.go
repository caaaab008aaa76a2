package csvimport

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldValidator_ValidateRow(t *testing.T) {
	v := NewFieldValidator(
		Field("SKU").Required().MaxLength(5).Build(),
		Field("price").Decimal().MinValue(decimal.Zero).Build(),
		Field("quantity").Int().Build(),
		Field("").Required().Build(),
	)

	tests := []struct {
		name     string
		data     map[string]string
		wantCode string
	}{
		{"valid", map[string]string{"sku": "A1", "price": "9.99", "quantity": "3"}, ""},
		{"integral decimal quantity", map[string]string{"sku": "A1", "price": "9.99", "quantity": "3.0"}, ""},
		{"optional values empty", map[string]string{"sku": "A1"}, ""},
		{"required missing", map[string]string{"price": "1"}, ErrCodeImportRequiredField},
		{"too long", map[string]string{"sku": "ABCDEF"}, ErrCodeImportInvalidLength},
		{"bad price", map[string]string{"sku": "A1", "price": "n/a"}, ErrCodeImportInvalidType},
		{"negative price", map[string]string{"sku": "A1", "price": "-1"}, ErrCodeImportInvalidRange},
		{"fractional quantity", map[string]string{"sku": "A1", "quantity": "2.5"}, ErrCodeImportInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateRow(&Row{LineNumber: 2, Data: tt.data})
			if tt.wantCode == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantCode, errs[0].Code)
			assert.Equal(t, 2, errs[0].Row)
		})
	}
}
