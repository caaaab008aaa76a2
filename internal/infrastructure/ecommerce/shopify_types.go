package ecommerce

import (
	"github.com/shopspring/decimal"

	"github.com/stocksync/backend/internal/domain/productsync"
)

// ShopifyVariant is the REST representation of a product variant
type ShopifyVariant struct {
	ID                int64           `json:"id"`
	ProductID         int64           `json:"product_id"`
	Title             string          `json:"title"`
	SKU               string          `json:"sku"`
	Barcode           string          `json:"barcode"`
	Price             decimal.Decimal `json:"price"`
	InventoryQuantity int             `json:"inventory_quantity"`
	InventoryItemID   int64           `json:"inventory_item_id"`
}

func (v ShopifyVariant) toDomain() productsync.StorefrontVariant {
	return productsync.StorefrontVariant{
		ID:                v.ID,
		ProductID:         v.ProductID,
		Title:             v.Title,
		SKU:               v.SKU,
		Barcode:           v.Barcode,
		Price:             v.Price,
		InventoryQuantity: v.InventoryQuantity,
		InventoryItemID:   v.InventoryItemID,
	}
}

// ShopifyLocation is a store location
type ShopifyLocation struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// ShopifyInventoryLevel is the quantity of one item at one location
type ShopifyInventoryLevel struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	LocationID      int64 `json:"location_id"`
	Available       *int  `json:"available"`
}

func (l ShopifyInventoryLevel) toDomain() productsync.InventoryLevel {
	return productsync.InventoryLevel{
		InventoryItemID: l.InventoryItemID,
		LocationID:      l.LocationID,
		Available:       l.Available,
	}
}

// ShopifyProductTitle is the id/title projection of a product
type ShopifyProductTitle struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type shopifyVariantsResponse struct {
	Variants []ShopifyVariant `json:"variants"`
}

type shopifyVariantResponse struct {
	Variant ShopifyVariant `json:"variant"`
}

type shopifyVariantPriceUpdate struct {
	Variant struct {
		ID    int64  `json:"id"`
		Price string `json:"price"`
	} `json:"variant"`
}

type shopifyLocationsResponse struct {
	Locations []ShopifyLocation `json:"locations"`
}

type shopifyInventoryLevelsResponse struct {
	InventoryLevels []ShopifyInventoryLevel `json:"inventory_levels"`
}

type shopifyInventoryLevelResponse struct {
	InventoryLevel ShopifyInventoryLevel `json:"inventory_level"`
}

type shopifyInventorySetRequest struct {
	LocationID      int64 `json:"location_id"`
	InventoryItemID int64 `json:"inventory_item_id"`
	Available       int   `json:"available"`
}

type shopifyProductsResponse struct {
	Products []ShopifyProductTitle `json:"products"`
}
