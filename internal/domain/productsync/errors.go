package productsync

import "errors"

var (
	// ErrSourceNotFound is returned when a stock data source does not exist
	ErrSourceNotFound = errors.New("productsync: stock data source not found")
	// ErrInvalidSourceKind is returned for a source kind outside the closed set
	ErrInvalidSourceKind = errors.New("productsync: invalid source kind")
	// ErrInvalidSourceParams is returned when source params fail validation
	ErrInvalidSourceParams = errors.New("productsync: invalid source params")
	// ErrSourceInactive is returned when a live run targets an inactive source
	ErrSourceInactive = errors.New("productsync: stock data source is inactive")
	// ErrNoProcessor is returned when no processor is registered for a source kind
	ErrNoProcessor = errors.New("productsync: no processor registered for source kind")

	// ErrInvalidBarcode is returned for barcodes that cannot be matched
	ErrInvalidBarcode = errors.New("productsync: invalid barcode")
	// ErrInvalidSKUPolicy is returned for an unknown SKU equality policy
	ErrInvalidSKUPolicy = errors.New("productsync: invalid sku policy")
	// ErrInvalidExportFilter is returned for an unknown export filter
	ErrInvalidExportFilter = errors.New("productsync: invalid export filter")

	// ErrCustomCSVNotFound is returned when a custom CSV feed does not exist
	ErrCustomCSVNotFound = errors.New("productsync: custom csv feed not found")
	// ErrCatalogUnavailable is returned when the supplier catalog cannot be loaded
	ErrCatalogUnavailable = errors.New("productsync: supplier catalog unavailable")
	// ErrSupplierAPI is returned when the supplier API reports a failure
	ErrSupplierAPI = errors.New("productsync: supplier api error")

	// ErrStorefrontUnavailable is returned when the storefront cannot be reached
	ErrStorefrontUnavailable = errors.New("productsync: storefront unavailable")
	// ErrStorefrontRequestFailed is returned when the storefront rejects a request
	ErrStorefrontRequestFailed = errors.New("productsync: storefront request failed")
	// ErrRateLimited is returned when the storefront answers 429
	ErrRateLimited = errors.New("productsync: storefront rate limit exceeded")
	// ErrVariantNotFound is returned when a variant does not exist on the storefront
	ErrVariantNotFound = errors.New("productsync: storefront variant not found")
	// ErrLocationNotFound is returned when a location name cannot be resolved
	ErrLocationNotFound = errors.New("productsync: storefront location not found")

	// ErrSyncAlreadyRunning is returned when the singleton lock for a source is held
	ErrSyncAlreadyRunning = errors.New("productsync: sync already running for source")
	// ErrGroupNotFound is returned when a ledger group has no entries
	ErrGroupNotFound = errors.New("productsync: update log group not found")
)
