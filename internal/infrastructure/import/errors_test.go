package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowError_Error(t *testing.T) {
	assert.Equal(t, `line 3, price="abc": expected decimal`,
		NewRowErrorWithValue(3, "price", ErrCodeImportInvalidType, "expected decimal", "abc").Error())
	assert.Equal(t, "line 2, sku: field is required",
		NewRowError(2, "sku", ErrCodeImportRequiredField, "field is required").Error())
	assert.Equal(t, "line 4: wrong number of fields", NewRowError(4, "", "", "wrong number of fields").Error())
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection(2)
	assert.False(t, ec.HasErrors())
	assert.False(t, ec.IsTruncated())

	ec.Add(NewRowError(2, "sku", ErrCodeImportRequiredField, "field is required"))
	ec.Add(NewRowErrorWithValue(3, "price", ErrCodeImportInvalidType, "expected decimal", "abc"))
	assert.False(t, ec.IsTruncated())

	ec.Add(NewRowErrorWithValue(4, "quantity", ErrCodeImportInvalidType, "expected integer", "x"))
	assert.True(t, ec.HasErrors())
	assert.Equal(t, 3, ec.TotalCount())
	assert.Len(t, ec.Errors(), 2)
	assert.True(t, ec.IsTruncated())
	assert.Equal(t, "abc", ec.Errors()[1].Value)

	assert.Equal(t, defaultMaxRowErrors, NewErrorCollection(0).max)
}
