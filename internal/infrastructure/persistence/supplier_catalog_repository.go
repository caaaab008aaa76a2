package persistence

import (
	"context"
	"fmt"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const catalogInsertBatchSize = 1000

// skuColumn is the SKU as the case-insensitive comparisons read it. SQLite's
// LOWER folds ASCII only; the "C" collation makes PostgreSQL do the same.
func skuColumn(db *gorm.DB) string {
	if IsPostgres(db) {
		return `sku COLLATE "C"`
	}
	return "sku"
}

// separatorTolerantSKU folds case and drops the separators of productsync.SKUSeparators
func separatorTolerantSKU(column string) string {
	return "LOWER(REPLACE(REPLACE(REPLACE(" + column + ", '-', ''), '_', ''), ' ', ''))"
}

// GormSupplierCatalog answers catalog lookups against one catalog table,
// optionally narrowed by a scope (one custom CSV feed).
type GormSupplierCatalog struct {
	db    *gorm.DB
	table string
	scope func(*gorm.DB) *gorm.DB
}

// NewGormSupplierCatalog creates a catalog over the supplier_products snapshot
func NewGormSupplierCatalog(db *gorm.DB) *GormSupplierCatalog {
	return &GormSupplierCatalog{db: db, table: models.SupplierProductModel{}.TableName()}
}

func (r *GormSupplierCatalog) query(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx).Table(r.table)
	if r.scope != nil {
		q = q.Scopes(r.scope)
	}
	return q
}

func (r *GormSupplierCatalog) find(q *gorm.DB) ([]productsync.SupplierProduct, error) {
	var rows []models.SupplierProductModel
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", productsync.ErrCatalogUnavailable, err)
	}
	products := make([]productsync.SupplierProduct, 0, len(rows))
	for i := range rows {
		products = append(products, rows[i].ToDomain())
	}
	return products, nil
}

// FindByBarcodes returns every row whose barcode equals one of the given values
func (r *GormSupplierCatalog) FindByBarcodes(ctx context.Context, barcodes []string) ([]productsync.SupplierProduct, error) {
	if len(barcodes) == 0 {
		return nil, nil
	}
	return r.find(r.query(ctx).Where("barcode IN ?", barcodes))
}

// FindBySKU returns every row whose SKU equals sku under the policy
func (r *GormSupplierCatalog) FindBySKU(ctx context.Context, sku string, policy productsync.SKUPolicy) ([]productsync.SupplierProduct, error) {
	key := policy.Key(sku)
	if key == "" {
		return nil, nil
	}
	q := r.query(ctx)
	switch policy {
	case productsync.SKUPolicyCaseInsensitive:
		q = q.Where("LOWER("+skuColumn(r.db)+") = ?", key)
	case productsync.SKUPolicySeparatorTolerant:
		q = q.Where(separatorTolerantSKU(skuColumn(r.db))+" = ?", key)
	default:
		q = q.Where("sku = ?", key)
	}
	return r.find(q)
}

// All returns the whole snapshot
func (r *GormSupplierCatalog) All(ctx context.Context) ([]productsync.SupplierProduct, error) {
	return r.find(r.query(ctx))
}

// Count returns the number of rows in the snapshot
func (r *GormSupplierCatalog) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.query(ctx).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", productsync.ErrCatalogUnavailable, err)
	}
	return n, nil
}

// ReplaceAll deletes the snapshot and inserts products in one transaction.
// PostgresCatalogLoader replaces this with TRUNCATE + COPY on PostgreSQL.
func (r *GormSupplierCatalog) ReplaceAll(ctx context.Context, products []productsync.SupplierProduct) (int64, error) {
	rows := make([]models.SupplierProductModel, 0, len(products))
	for _, p := range products {
		rows = append(rows, models.SupplierProductModel{SupplierProductColumns: models.SupplierProductColumnsFromDomain(p)})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.SupplierProductModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, catalogInsertBatchSize).Error
	})
	if err != nil {
		return 0, fmt.Errorf("replace supplier catalog: %w", err)
	}
	return int64(len(rows)), nil
}

// NewSupplierCatalogStore returns the catalog store best suited to the dialect
func NewSupplierCatalogStore(db *gorm.DB) productsync.SupplierCatalogStore {
	if IsPostgres(db) {
		return NewPostgresCatalogLoader(db)
	}
	return NewGormSupplierCatalog(db)
}

var (
	_ productsync.SupplierCatalogStore  = (*GormSupplierCatalog)(nil)
	_ productsync.SupplierCatalogLookup = (*GormSupplierCatalog)(nil)
)
