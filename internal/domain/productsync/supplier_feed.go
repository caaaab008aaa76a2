package productsync

import (
	"context"
	"time"
)

// FeedRequest describes one catalog fetch from a remote supplier
type FeedRequest struct {
	APIKey       string
	APIURL       string
	ChangedSince *time.Time
	// Refresh downloads a new export; otherwise the cached export is read
	Refresh bool
}

// SupplierFeed fetches a full supplier catalog
type SupplierFeed interface {
	FetchCatalog(ctx context.Context, req FeedRequest) ([]SupplierProduct, error)
}
