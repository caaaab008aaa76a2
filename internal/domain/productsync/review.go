package productsync

import "context"

// UnmatchedProductForReview is a variant that failed barcode matching in the last full run.
// PossibleMatches holds supplier rows that matched by SKU only.
type UnmatchedProductForReview struct {
	ProductID       int64
	VariantID       int64
	SKU             string
	Barcode         string
	VariantTitle    string
	ProductTitle    string
	PossibleMatches []SupplierProduct
	Hidden          bool
}

// NewUnmatchedProductForReview builds a review row from a variant and its near misses
func NewUnmatchedProductForReview(variant StorefrontVariant, nearMisses []SupplierProduct) UnmatchedProductForReview {
	matches := make([]SupplierProduct, len(nearMisses))
	copy(matches, nearMisses)
	return UnmatchedProductForReview{
		ProductID:       variant.ProductID,
		VariantID:       variant.ID,
		SKU:             variant.SKU,
		Barcode:         variant.Barcode,
		VariantTitle:    variant.Title,
		PossibleMatches: matches,
	}
}

// ReviewRegistry persists the unmatched snapshot and the hidden overlay
type ReviewRegistry interface {
	// ReplaceAll atomically replaces the whole snapshot; the hidden overlay is untouched
	ReplaceAll(ctx context.Context, entries []UnmatchedProductForReview) error
	// List returns the snapshot, excluding hidden rows unless includeHidden is set
	List(ctx context.Context, includeHidden bool) ([]UnmatchedProductForReview, error)
	IsHidden(ctx context.Context, productID, variantID int64) (bool, error)
	Hide(ctx context.Context, productID, variantID int64) error
	Unhide(ctx context.Context, productID, variantID int64) error
}
