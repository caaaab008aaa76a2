package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const reviewInsertBatchSize = 500

type variantKey struct {
	productID int64
	variantID int64
}

// GormReviewRegistry implements ReviewRegistry using GORM.
// The snapshot lives in unmatched_products_for_review; the hidden overlay
// lives in hidden_unmatched_products and is never touched by ReplaceAll.
type GormReviewRegistry struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormReviewRegistry creates a new GormReviewRegistry
func NewGormReviewRegistry(db *gorm.DB) *GormReviewRegistry {
	return &GormReviewRegistry{db: db, now: time.Now}
}

// ReplaceAll deletes the snapshot and upserts entries in one transaction
func (r *GormReviewRegistry) ReplaceAll(ctx context.Context, entries []productsync.UnmatchedProductForReview) error {
	now := r.now()
	rows := make([]*models.UnmatchedReviewModel, 0, len(entries))
	index := make(map[variantKey]int, len(entries))
	for _, e := range entries {
		m := models.UnmatchedReviewModelFromDomain(e)
		m.CreatedAt = now
		key := variantKey{e.ProductID, e.VariantID}
		// one statement cannot upsert the same key twice; the later row wins
		if i, ok := index[key]; ok {
			rows[i] = m
			continue
		}
		index[key] = len(rows)
		rows = append(rows, m)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.UnmatchedReviewModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "variant_id"}},
			UpdateAll: true,
		}).CreateInBatches(rows, reviewInsertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("replace unmatched review snapshot: %w", err)
	}
	return nil
}

// List returns the snapshot ordered by id, excluding hidden rows unless includeHidden is set
func (r *GormReviewRegistry) List(ctx context.Context, includeHidden bool) ([]productsync.UnmatchedProductForReview, error) {
	db := r.db.WithContext(ctx)

	var rows []models.UnmatchedReviewModel
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list unmatched review: %w", err)
	}

	var hiddenRows []models.HiddenUnmatchedModel
	if err := db.Find(&hiddenRows).Error; err != nil {
		return nil, fmt.Errorf("list hidden overlay: %w", err)
	}
	hidden := make(map[variantKey]struct{}, len(hiddenRows))
	for _, h := range hiddenRows {
		hidden[variantKey{h.ProductID, h.VariantID}] = struct{}{}
	}

	out := make([]productsync.UnmatchedProductForReview, 0, len(rows))
	for i := range rows {
		_, isHidden := hidden[variantKey{rows[i].ProductID, rows[i].VariantID}]
		if isHidden && !includeHidden {
			continue
		}
		entry := rows[i].ToDomain()
		entry.Hidden = isHidden
		out = append(out, entry)
	}
	return out, nil
}

// IsHidden reports whether a variant is in the hidden overlay
func (r *GormReviewRegistry) IsHidden(ctx context.Context, productID, variantID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.HiddenUnmatchedModel{}).
		Where("product_id = ? AND variant_id = ?", productID, variantID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check hidden overlay: %w", err)
	}
	return n > 0, nil
}

// Hide adds a variant to the hidden overlay; hiding twice is a no-op
func (r *GormReviewRegistry) Hide(ctx context.Context, productID, variantID int64) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "variant_id"}},
			DoNothing: true,
		}).
		Create(&models.HiddenUnmatchedModel{ProductID: productID, VariantID: variantID, CreatedAt: r.now()}).Error
	if err != nil {
		return fmt.Errorf("hide unmatched product: %w", err)
	}
	return nil
}

// Unhide removes a variant from the hidden overlay
func (r *GormReviewRegistry) Unhide(ctx context.Context, productID, variantID int64) error {
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND variant_id = ?", productID, variantID).
		Delete(&models.HiddenUnmatchedModel{}).Error
	if err != nil {
		return fmt.Errorf("unhide unmatched product: %w", err)
	}
	return nil
}

var _ productsync.ReviewRegistry = (*GormReviewRegistry)(nil)
