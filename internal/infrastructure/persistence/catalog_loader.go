package persistence

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/stocksync/backend/internal/domain/productsync"
	"gorm.io/gorm"
)

var supplierProductCopyColumns = []string{
	"barcode", "sku", "price", "quantity", "location_name", "product_name", "line_code",
}

// PostgresCatalogLoader bulk loads the supplier snapshot with COPY FROM STDIN.
// Lookups are served by the embedded GormSupplierCatalog.
type PostgresCatalogLoader struct {
	*GormSupplierCatalog
}

// NewPostgresCatalogLoader creates a loader over the supplier_products table
func NewPostgresCatalogLoader(db *gorm.DB) *PostgresCatalogLoader {
	return &PostgresCatalogLoader{GormSupplierCatalog: NewGormSupplierCatalog(db)}
}

// ReplaceAll truncates the table, restarting ids, and copies products in one transaction
func (l *PostgresCatalogLoader) ReplaceAll(ctx context.Context, products []productsync.SupplierProduct) (int64, error) {
	sqlDB, err := l.db.DB()
	if err != nil {
		return 0, fmt.Errorf("get sql.DB: %w", err)
	}

	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin catalog reload: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE "+l.table+" RESTART IDENTITY"); err != nil {
		return 0, fmt.Errorf("truncate %s: %w", l.table, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(l.table, supplierProductCopyColumns...))
	if err != nil {
		return 0, fmt.Errorf("prepare copy: %w", err)
	}

	for _, p := range products {
		var price, quantity any
		if p.Price.Valid {
			price = p.Price.Decimal.String()
		}
		if p.Quantity != nil {
			quantity = *p.Quantity
		}
		if _, err := stmt.ExecContext(ctx, p.Barcode, p.SKU, price, quantity, p.LocationName, p.ProductName, p.LineCode); err != nil {
			stmt.Close()
			return 0, fmt.Errorf("copy row: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit catalog reload: %w", err)
	}
	return int64(len(products)), nil
}

var _ productsync.SupplierCatalogStore = (*PostgresCatalogLoader)(nil)
