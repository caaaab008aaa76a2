package productsync

import (
	"context"

	"github.com/stocksync/backend/internal/domain/productsync"
)

// ReviewService serves the unmatched-review registry
type ReviewService struct {
	registry    productsync.ReviewRegistry
	storefront  productsync.StorefrontClient
	concurrency int
}

// NewReviewService creates a ReviewService.
// storefront may be nil, in which case stored titles are returned as is.
func NewReviewService(registry productsync.ReviewRegistry, storefront productsync.StorefrontClient, concurrency int) *ReviewService {
	return &ReviewService{registry: registry, storefront: storefront, concurrency: concurrency}
}

// List returns the review rows, excluding hidden ones unless includeHidden is set.
// Missing product titles are fetched from the storefront.
func (s *ReviewService) List(ctx context.Context, includeHidden bool) ([]productsync.UnmatchedProductForReview, error) {
	rows, err := s.registry.List(ctx, includeHidden)
	if err != nil {
		return nil, err
	}
	if s.storefront == nil || len(rows) == 0 {
		return rows, nil
	}

	ids := make([]int64, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		if r.ProductTitle != "" {
			continue
		}
		if _, ok := seen[r.ProductID]; ok {
			continue
		}
		seen[r.ProductID] = struct{}{}
		ids = append(ids, r.ProductID)
	}
	if len(ids) == 0 {
		return rows, nil
	}

	titles := fetchTitles(ctx, s.storefront, ids, s.concurrency)
	for i := range rows {
		if rows[i].ProductTitle == "" {
			rows[i].ProductTitle = titles[rows[i].ProductID]
		}
	}
	return rows, nil
}

// Hide suppresses a variant from the default view
func (s *ReviewService) Hide(ctx context.Context, productID, variantID int64) error {
	return s.registry.Hide(ctx, productID, variantID)
}

// Unhide restores a hidden variant to the default view
func (s *ReviewService) Unhide(ctx context.Context, productID, variantID int64) error {
	return s.registry.Unhide(ctx, productID, variantID)
}
