package csvimport

import (
	"errors"
	"fmt"
)

// Row error codes, reported back to the operator who uploaded the feed
const (
	ErrCodeImportRequiredField = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeImportInvalidType   = "ERR_IMPORT_INVALID_TYPE"
	ErrCodeImportInvalidLength = "ERR_IMPORT_INVALID_LENGTH"
	ErrCodeImportInvalidRange  = "ERR_IMPORT_INVALID_RANGE"
)

// Feed level errors. Any of these rejects the whole file.
var (
	ErrEmptyFile           = errors.New("csvimport: feed is empty")
	ErrInvalidEncoding     = errors.New("csvimport: feed is not valid text in the declared encoding")
	ErrUnsupportedEncoding = errors.New("csvimport: unsupported encoding")
	ErrMissingHeader       = errors.New("csvimport: feed has no header row")
	ErrMissingColumns      = errors.New("csvimport: feed lacks mapped columns")
	ErrNoValidRows         = errors.New("csvimport: feed has no valid rows")
)

// defaultMaxRowErrors bounds the row errors kept for one feed
const defaultMaxRowErrors = 100

// RowError is a rejected cell. Row is the 1-based line in the file,
// counting the header.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %s", e.Row, e.Message)
	}
	if e.Value != "" {
		return fmt.Sprintf("line %d, %s=%q: %s", e.Row, e.Column, e.Value, e.Message)
	}
	return fmt.Sprintf("line %d, %s: %s", e.Row, e.Column, e.Message)
}

// NewRowError creates a RowError without the offending value
func NewRowError(row int, column, code, message string) RowError {
	return RowError{Row: row, Column: column, Code: code, Message: message}
}

// NewRowErrorWithValue creates a RowError that echoes the offending value
func NewRowErrorWithValue(row int, column, code, message, value string) RowError {
	e := NewRowError(row, column, code, message)
	e.Value = value
	return e
}

// ErrorCollection counts every rejected row but keeps only the first max
type ErrorCollection struct {
	kept  []RowError
	max   int
	total int
}

// NewErrorCollection creates a collection; max <= 0 uses the default cap
func NewErrorCollection(max int) *ErrorCollection {
	if max <= 0 {
		max = defaultMaxRowErrors
	}
	return &ErrorCollection{max: max}
}

// Add records a row error
func (ec *ErrorCollection) Add(err RowError) {
	ec.total++
	if len(ec.kept) < ec.max {
		ec.kept = append(ec.kept, err)
	}
}

// Errors returns the kept errors in file order
func (ec *ErrorCollection) Errors() []RowError {
	return ec.kept
}

// TotalCount returns how many rows were rejected
func (ec *ErrorCollection) TotalCount() int {
	return ec.total
}

func (ec *ErrorCollection) HasErrors() bool {
	return ec.total > 0
}

// IsTruncated reports whether rows were rejected beyond the kept ones
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.total > len(ec.kept)
}
