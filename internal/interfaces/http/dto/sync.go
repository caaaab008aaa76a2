package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/scheduler"
)

// SubmitSyncRequest starts a sync run for one source. Options left unset
// fall back to the ones stored on the source.
type SubmitSyncRequest struct {
	SourceID          int64   `json:"source_id" binding:"required,gt=0"`
	Dry               bool    `json:"dry"`
	UpdatePrice       *bool   `json:"update_price"`
	UpdateInventory   *bool   `json:"update_inventory"`
	InventoryLocation *string `json:"inventory_location" binding:"omitempty,max=255"`
}

// HasOptions reports whether the request overrides any sync option
func (r SubmitSyncRequest) HasOptions() bool {
	return r.UpdatePrice != nil || r.UpdateInventory != nil || r.InventoryLocation != nil
}

// Options merges the overrides onto the defaults
func (r SubmitSyncRequest) Options() *productsync.SyncOptions {
	if !r.HasOptions() {
		return nil
	}
	opts := productsync.DefaultSyncOptions()
	if r.UpdatePrice != nil {
		opts.UpdatePrice = *r.UpdatePrice
	}
	if r.UpdateInventory != nil {
		opts.UpdateInventory = *r.UpdateInventory
	}
	if r.InventoryLocation != nil {
		opts.InventoryLocation = *r.InventoryLocation
	}
	return &opts
}

// RunStatsResponse mirrors the counters of a run
type RunStatsResponse struct {
	Variants         int `json:"variants"`
	Matched          int `json:"matched"`
	SKUMismatches    int `json:"sku_mismatches"`
	Unmatched        int `json:"unmatched"`
	NearMisses       int `json:"near_misses"`
	InvalidBarcodes  int `json:"invalid_barcodes"`
	UpToDate         int `json:"up_to_date"`
	PriceUpdates     int `json:"price_updates"`
	QuantityUpdates  int `json:"quantity_updates"`
	PriceFailures    int `json:"price_failures"`
	QuantityFailures int `json:"quantity_failures"`
}

// RunResultResponse is the outcome of a finished run; the log lines are
// served separately
type RunResultResponse struct {
	GID        *int64           `json:"gid,omitempty"`
	Aborted    bool             `json:"aborted"`
	Incomplete bool             `json:"incomplete"`
	Stats      RunStatsResponse `json:"stats"`
}

// SyncOptionsResponse echoes the options a job was submitted with
type SyncOptionsResponse struct {
	UpdatePrice       bool   `json:"update_price"`
	UpdateInventory   bool   `json:"update_inventory"`
	InventoryLocation string `json:"inventory_location,omitempty"`
}

// SyncJobResponse describes one scheduled run
type SyncJobResponse struct {
	ID          uuid.UUID            `json:"id"`
	SourceID    int64                `json:"source_id"`
	Dry         bool                 `json:"dry"`
	Trigger     string               `json:"trigger"`
	Status      string               `json:"status"`
	Error       string               `json:"error,omitempty"`
	Options     *SyncOptionsResponse `json:"options,omitempty"`
	SubmittedAt time.Time            `json:"submitted_at"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	RetryCount  int                  `json:"retry_count"`
	Result      *RunResultResponse   `json:"result,omitempty"`
}

// SyncJobListResponse groups running and finished jobs
type SyncJobListResponse struct {
	Active  []SyncJobResponse `json:"active"`
	History []SyncJobResponse `json:"history"`
}

// SyncJobLogsResponse is a page of a job's log, starting at From
type SyncJobLogsResponse struct {
	From  int      `json:"from"`
	Next  int      `json:"next"`
	Lines []string `json:"lines"`
	Done  bool     `json:"done"`
}

// ToSyncJobResponse converts a scheduler snapshot
func ToSyncJobResponse(s scheduler.JobSnapshot) SyncJobResponse {
	resp := SyncJobResponse{
		ID:          s.ID,
		SourceID:    s.SourceID,
		Dry:         s.Dry,
		Trigger:     string(s.Trigger),
		Status:      string(s.Status),
		Error:       s.Error,
		SubmittedAt: s.SubmittedAt,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
		RetryCount:  s.RetryCount,
	}
	if s.Options != nil {
		resp.Options = &SyncOptionsResponse{
			UpdatePrice:       s.Options.UpdatePrice,
			UpdateInventory:   s.Options.UpdateInventory,
			InventoryLocation: s.Options.InventoryLocation,
		}
	}
	if r := s.Result; r != nil {
		resp.Result = &RunResultResponse{
			GID:        r.GID,
			Aborted:    r.Aborted,
			Incomplete: r.Incomplete,
			Stats:      RunStatsResponse(r.Stats),
		}
	}
	return resp
}

// ToSyncJobResponses converts a list of snapshots
func ToSyncJobResponses(snapshots []scheduler.JobSnapshot) []SyncJobResponse {
	out := make([]SyncJobResponse, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, ToSyncJobResponse(s))
	}
	return out
}

// SourceResponse describes a stock data source without its credentials
type SourceResponse struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Active      bool                `json:"active"`
	Kind        string              `json:"kind"`
	Options     SyncOptionsResponse `json:"options"`
	APIURL      string              `json:"api_url,omitempty"`
	CustomCSVID int64               `json:"custom_csv_id,omitempty"`
}

// ToSourceResponse converts a source
func ToSourceResponse(s productsync.StockDataSource) SourceResponse {
	opts := s.Params.Options()
	return SourceResponse{
		ID:     s.ID,
		Name:   s.Name,
		Active: s.Active,
		Kind:   string(s.Kind),
		Options: SyncOptionsResponse{
			UpdatePrice:       opts.UpdatePrice,
			UpdateInventory:   opts.UpdateInventory,
			InventoryLocation: opts.InventoryLocation,
		},
		APIURL:      s.Params.APIURL,
		CustomCSVID: s.Params.CustomCSVID,
	}
}

// SupplierProductResponse is a supplier row offered as a possible match
type SupplierProductResponse struct {
	ID           int64               `json:"id"`
	Barcode      string              `json:"barcode"`
	SKU          string              `json:"sku"`
	Price        decimal.NullDecimal `json:"price"`
	Quantity     *int                `json:"quantity"`
	LocationName string              `json:"location_name,omitempty"`
	ProductName  string              `json:"product_name,omitempty"`
	LineCode     string              `json:"line_code,omitempty"`
}

// ReviewItemResponse is one unmatched storefront variant
type ReviewItemResponse struct {
	ProductID       int64                     `json:"product_id"`
	VariantID       int64                     `json:"variant_id"`
	SKU             string                    `json:"sku"`
	Barcode         string                    `json:"barcode"`
	VariantTitle    string                    `json:"variant_title"`
	ProductTitle    string                    `json:"product_title"`
	Hidden          bool                      `json:"hidden"`
	PossibleMatches []SupplierProductResponse `json:"possible_matches"`
}

// ReviewVisibilityRequest names the variant to hide or unhide
type ReviewVisibilityRequest struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	VariantID int64 `json:"variant_id" binding:"required,gt=0"`
}

// ToReviewItemResponses converts review rows
func ToReviewItemResponses(items []productsync.UnmatchedProductForReview) []ReviewItemResponse {
	out := make([]ReviewItemResponse, 0, len(items))
	for _, item := range items {
		matches := make([]SupplierProductResponse, 0, len(item.PossibleMatches))
		for _, p := range item.PossibleMatches {
			matches = append(matches, SupplierProductResponse{
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
		out = append(out, ReviewItemResponse{
			ProductID:       item.ProductID,
			VariantID:       item.VariantID,
			SKU:             item.SKU,
			Barcode:         item.Barcode,
			VariantTitle:    item.VariantTitle,
			ProductTitle:    item.ProductTitle,
			Hidden:          item.Hidden,
			PossibleMatches: matches,
		})
	}
	return out
}

// CustomCSVResponse describes a stored feed
type CustomCSVResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	ProductCount int64     `json:"product_count"`
}

// ToCustomCSVResponse converts a feed
func ToCustomCSVResponse(f productsync.CustomCSV) CustomCSVResponse {
	return CustomCSVResponse(f)
}

// ToCustomCSVResponses converts a list of feeds
func ToCustomCSVResponses(feeds []productsync.CustomCSV) []CustomCSVResponse {
	out := make([]CustomCSVResponse, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, ToCustomCSVResponse(f))
	}
	return out
}

// ExportUploadResponse is returned when an export was uploaded to object storage
type ExportUploadResponse struct {
	GID  int64  `json:"gid"`
	Rows int    `json:"rows"`
	URL  string `json:"url"`
}
