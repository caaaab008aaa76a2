package dto

import (
	"errors"
	"net/http"

	syncapp "github.com/stocksync/backend/internal/application/productsync"
	"github.com/stocksync/backend/internal/domain/productsync"
	csvimport "github.com/stocksync/backend/internal/infrastructure/import"
	"github.com/stocksync/backend/internal/infrastructure/scheduler"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeUnavailable is used when a collaborator (storefront, supplier) is down
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
)

// Resource error codes
const (
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeConflict     = "ERR_CONFLICT"
	ErrCodeInvalidState = "ERR_INVALID_STATE"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	ErrCodeQueueFull   = "ERR_QUEUE_FULL"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeUnavailable: http.StatusBadGateway,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,

	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	ErrCodeRateLimited: http.StatusTooManyRequests,
	ErrCodeQueueFull:   http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// errorCodes maps sentinel errors to API codes; the first match wins
var errorCodes = []struct {
	err  error
	code string
}{
	{productsync.ErrSourceNotFound, ErrCodeNotFound},
	{productsync.ErrCustomCSVNotFound, ErrCodeNotFound},
	{productsync.ErrGroupNotFound, ErrCodeNotFound},
	{productsync.ErrVariantNotFound, ErrCodeNotFound},
	{scheduler.ErrJobNotFound, ErrCodeNotFound},

	{productsync.ErrInvalidSourceKind, ErrCodeInvalidInput},
	{productsync.ErrInvalidSourceParams, ErrCodeInvalidInput},
	{productsync.ErrInvalidExportFilter, ErrCodeInvalidInput},
	{csvimport.ErrMissingColumns, ErrCodeValidation},
	{csvimport.ErrUnsupportedEncoding, ErrCodeValidation},
	{csvimport.ErrNoValidRows, ErrCodeValidation},
	{csvimport.ErrEmptyFile, ErrCodeValidation},
	{csvimport.ErrMissingHeader, ErrCodeValidation},
	{csvimport.ErrInvalidEncoding, ErrCodeValidation},

	{productsync.ErrSyncAlreadyRunning, ErrCodeConflict},
	{productsync.ErrSourceInactive, ErrCodeInvalidState},
	{scheduler.ErrJobFinished, ErrCodeInvalidState},
	{syncapp.ErrUploadDisabled, ErrCodeInvalidState},

	{scheduler.ErrJobQueueFull, ErrCodeQueueFull},
	{scheduler.ErrSchedulerNotRunning, ErrCodeQueueFull},

	{productsync.ErrStorefrontUnavailable, ErrCodeUnavailable},
	{productsync.ErrRateLimited, ErrCodeUnavailable},
	{productsync.ErrSupplierAPI, ErrCodeUnavailable},
	{productsync.ErrCatalogUnavailable, ErrCodeUnavailable},
}

// ErrorCodeFor classifies an error returned by the application layer
func ErrorCodeFor(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return ErrCodeInternal
}
