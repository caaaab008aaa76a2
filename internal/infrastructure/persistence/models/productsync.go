package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/stocksync/backend/internal/domain/productsync"
)

// SupplierProductColumns are the catalog columns shared by the Fuse5 snapshot
// and the custom CSV shadow tables.
type SupplierProductColumns struct {
	Barcode      string              `gorm:"type:varchar(64);index"`
	SKU          string              `gorm:"column:sku;type:varchar(128);index"`
	Price        decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	Quantity     *int
	LocationName string `gorm:"type:varchar(255)"`
	ProductName  string `gorm:"type:text"`
	LineCode     string `gorm:"type:varchar(64)"`
}

// SupplierProductModel is one row of the current supplier catalog snapshot
type SupplierProductModel struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`
	SupplierProductColumns
}

// TableName returns the table name for GORM
func (SupplierProductModel) TableName() string {
	return "supplier_products"
}

// ToDomain converts the persistence model to a domain SupplierProduct
func (m *SupplierProductModel) ToDomain() productsync.SupplierProduct {
	return m.SupplierProductColumns.toDomain(m.ID)
}

func (c SupplierProductColumns) toDomain(id int64) productsync.SupplierProduct {
	p := productsync.SupplierProduct{
		ID:           id,
		Barcode:      c.Barcode,
		SKU:          c.SKU,
		Price:        c.Price,
		LocationName: c.LocationName,
		ProductName:  c.ProductName,
		LineCode:     c.LineCode,
	}
	if c.Quantity != nil {
		p.Quantity = productsync.IntPtr(*c.Quantity)
	}
	return p
}

// SupplierProductColumnsFromDomain copies the catalog columns of a product
func SupplierProductColumnsFromDomain(p productsync.SupplierProduct) SupplierProductColumns {
	c := SupplierProductColumns{
		Barcode:      p.Barcode,
		SKU:          p.SKU,
		Price:        p.Price,
		LocationName: p.LocationName,
		ProductName:  p.ProductName,
		LineCode:     p.LineCode,
	}
	if p.Quantity != nil {
		c.Quantity = productsync.IntPtr(*p.Quantity)
	}
	return c
}

// CustomCSVModel is an uploaded supplier feed
type CustomCSVModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (CustomCSVModel) TableName() string {
	return "custom_csvs"
}

// ToDomain converts the persistence model to a domain CustomCSV
func (m *CustomCSVModel) ToDomain(productCount int64) *productsync.CustomCSV {
	return &productsync.CustomCSV{
		ID:           m.ID,
		Name:         m.Name,
		CreatedAt:    m.CreatedAt,
		ProductCount: productCount,
	}
}

// CustomCSVProductModel is one row of an uploaded feed
type CustomCSVProductModel struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	CustomCSVID int64 `gorm:"column:custom_csv_id;not null;index"`
	SupplierProductColumns
}

// TableName returns the table name for GORM
func (CustomCSVProductModel) TableName() string {
	return "custom_csv_products"
}

// ToDomain converts the persistence model to a domain SupplierProduct
func (m *CustomCSVProductModel) ToDomain() productsync.SupplierProduct {
	return m.SupplierProductColumns.toDomain(m.ID)
}

// UpdateLogModel is one ledger row
type UpdateLogModel struct {
	ID        int64                 `gorm:"primaryKey;autoIncrement"`
	GID       int64                 `gorm:"column:gid;not null;index"`
	Source    string                `gorm:"type:varchar(30);not null"`
	Time      time.Time             `gorm:"not null;index"`
	SKU       string                `gorm:"column:sku;type:varchar(128)"`
	Barcode   string                `gorm:"type:varchar(64)"`
	ProductID int64                 `gorm:"not null"`
	VariantID int64                 `gorm:"not null"`
	Changes   productsync.ChangeSet `gorm:"type:jsonb;serializer:json;not null"`
}

// TableName returns the table name for GORM
func (UpdateLogModel) TableName() string {
	return "products_update_logs"
}

// ToDomain converts the persistence model to a domain UpdateLogEntry
func (m *UpdateLogModel) ToDomain() productsync.UpdateLogEntry {
	return productsync.UpdateLogEntry{
		ID:        m.ID,
		GID:       m.GID,
		Source:    m.Source,
		Time:      m.Time,
		SKU:       m.SKU,
		Barcode:   m.Barcode,
		ProductID: m.ProductID,
		VariantID: m.VariantID,
		Changes:   m.Changes,
	}
}

// UpdateLogModelFromDomain creates a persistence model from a ledger entry
func UpdateLogModelFromDomain(e productsync.UpdateLogEntry) *UpdateLogModel {
	return &UpdateLogModel{
		ID:        e.ID,
		GID:       e.GID,
		Source:    e.Source,
		Time:      e.Time,
		SKU:       e.SKU,
		Barcode:   e.Barcode,
		ProductID: e.ProductID,
		VariantID: e.VariantID,
		Changes:   e.Changes,
	}
}

// PossibleMatch is the JSON shape of a near-miss supplier row
type PossibleMatch struct {
	ID           int64               `json:"id"`
	Barcode      string              `json:"barcode"`
	SKU          string              `json:"sku"`
	Price        decimal.NullDecimal `json:"price"`
	Quantity     *int                `json:"quantity"`
	LocationName string              `json:"location_name"`
	ProductName  string              `json:"product_name"`
	LineCode     string              `json:"line_code"`
}

// UnmatchedReviewModel is one row of the last run's unmatched snapshot
type UnmatchedReviewModel struct {
	ID              int64           `gorm:"primaryKey;autoIncrement"`
	ProductID       int64           `gorm:"not null;uniqueIndex:uq_unmatched_review_product_variant,priority:1"`
	VariantID       int64           `gorm:"not null;uniqueIndex:uq_unmatched_review_product_variant,priority:2"`
	SKU             string          `gorm:"column:sku;type:varchar(128)"`
	Barcode         string          `gorm:"type:varchar(64)"`
	VariantTitle    string          `gorm:"type:varchar(255)"`
	ProductTitle    string          `gorm:"type:varchar(255)"`
	PossibleMatches []PossibleMatch `gorm:"type:jsonb;serializer:json"`
	CreatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UnmatchedReviewModel) TableName() string {
	return "unmatched_products_for_review"
}

// ToDomain converts the persistence model to a domain review row
func (m *UnmatchedReviewModel) ToDomain() productsync.UnmatchedProductForReview {
	matches := make([]productsync.SupplierProduct, 0, len(m.PossibleMatches))
	for _, pm := range m.PossibleMatches {
		matches = append(matches, productsync.SupplierProduct{
			ID:           pm.ID,
			Barcode:      pm.Barcode,
			SKU:          pm.SKU,
			Price:        pm.Price,
			Quantity:     pm.Quantity,
			LocationName: pm.LocationName,
			ProductName:  pm.ProductName,
			LineCode:     pm.LineCode,
		})
	}
	return productsync.UnmatchedProductForReview{
		ProductID:       m.ProductID,
		VariantID:       m.VariantID,
		SKU:             m.SKU,
		Barcode:         m.Barcode,
		VariantTitle:    m.VariantTitle,
		ProductTitle:    m.ProductTitle,
		PossibleMatches: matches,
	}
}

// UnmatchedReviewModelFromDomain creates a persistence model from a review row
func UnmatchedReviewModelFromDomain(u productsync.UnmatchedProductForReview) *UnmatchedReviewModel {
	matches := make([]PossibleMatch, 0, len(u.PossibleMatches))
	for _, p := range u.PossibleMatches {
		matches = append(matches, PossibleMatch{
			ID:           p.ID,
			Barcode:      p.Barcode,
			SKU:          p.SKU,
			Price:        p.Price,
			Quantity:     p.Quantity,
			LocationName: p.LocationName,
			ProductName:  p.ProductName,
			LineCode:     p.LineCode,
		})
	}
	return &UnmatchedReviewModel{
		ProductID:       u.ProductID,
		VariantID:       u.VariantID,
		SKU:             u.SKU,
		Barcode:         u.Barcode,
		VariantTitle:    u.VariantTitle,
		ProductTitle:    u.ProductTitle,
		PossibleMatches: matches,
	}
}

// HiddenUnmatchedModel suppresses a review row from default views
type HiddenUnmatchedModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	ProductID int64     `gorm:"not null;uniqueIndex:uq_hidden_unmatched_product_variant,priority:1"`
	VariantID int64     `gorm:"not null;uniqueIndex:uq_hidden_unmatched_product_variant,priority:2"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (HiddenUnmatchedModel) TableName() string {
	return "hidden_unmatched_products"
}

// StockDataSourceModel is a configured supplier feed
type StockDataSourceModel struct {
	ID        int64                    `gorm:"primaryKey;autoIncrement"`
	Name      string                   `gorm:"type:varchar(30);not null;uniqueIndex"`
	Active    bool                     `gorm:"not null"`
	Kind      productsync.SourceKind   `gorm:"type:varchar(20);not null"`
	Params    productsync.SourceParams `gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time                `gorm:"not null"`
	UpdatedAt time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockDataSourceModel) TableName() string {
	return "stock_data_sources"
}

// ToDomain converts the persistence model to a domain StockDataSource
func (m *StockDataSourceModel) ToDomain() *productsync.StockDataSource {
	return &productsync.StockDataSource{
		ID:     m.ID,
		Name:   m.Name,
		Active: m.Active,
		Kind:   m.Kind,
		Params: m.Params,
	}
}

// StockDataSourceModelFromDomain creates a persistence model from a source
func StockDataSourceModelFromDomain(s *productsync.StockDataSource) *StockDataSourceModel {
	return &StockDataSourceModel{
		ID:     s.ID,
		Name:   s.Name,
		Active: s.Active,
		Kind:   s.Kind,
		Params: s.Params,
	}
}

// All returns every model managed by the sync service, in dependency order
func All() []any {
	return []any{
		&SupplierProductModel{},
		&CustomCSVModel{},
		&CustomCSVProductModel{},
		&UpdateLogModel{},
		&UnmatchedReviewModel{},
		&HiddenUnmatchedModel{},
		&StockDataSourceModel{},
	}
}
