package productsync

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// SourceKind
// ---------------------------------------------------------------------------

// SourceKind identifies where a supplier catalog comes from
type SourceKind string

const (
	// SourceKindFuse5 is the remote Fuse5 ERP export
	SourceKindFuse5 SourceKind = "FUSE5"
	// SourceKindCustomCSV is an uploaded CSV feed kept as a shadow catalog
	SourceKindCustomCSV SourceKind = "CUSTOM_CSV"
)

// AllSourceKinds returns the closed set of supported source kinds
func AllSourceKinds() []SourceKind {
	return []SourceKind{SourceKindFuse5, SourceKindCustomCSV}
}

// IsValid returns true if the source kind is supported
func (k SourceKind) IsValid() bool {
	switch k {
	case SourceKindFuse5, SourceKindCustomCSV:
		return true
	}
	return false
}

// String returns the string representation
func (k SourceKind) String() string {
	return string(k)
}

// DisplayName returns the human readable processor name
func (k SourceKind) DisplayName() string {
	switch k {
	case SourceKindFuse5:
		return "Fuse 5"
	case SourceKindCustomCSV:
		return "Custom CSV"
	}
	return string(k)
}

// ParseSourceKind parses a source kind, accepting any letter case
func ParseSourceKind(s string) (SourceKind, error) {
	k := SourceKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSourceKind, s)
	}
	return k, nil
}

// ---------------------------------------------------------------------------
// Sync options
// ---------------------------------------------------------------------------

// UseCSVFieldLocation means every supplier row keeps its own location_name
const UseCSVFieldLocation = "Use CSV field"

// SyncOptions controls which fields a run reconciles
type SyncOptions struct {
	UpdatePrice       bool
	UpdateInventory   bool
	InventoryLocation string
}

// DefaultSyncOptions updates both price and inventory using supplier locations
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		UpdatePrice:     true,
		UpdateInventory: true,
	}
}

// LocationOverride returns the location forced on every supplier row, or ""
func (o SyncOptions) LocationOverride() string {
	loc := strings.TrimSpace(o.InventoryLocation)
	if loc == UseCSVFieldLocation {
		return ""
	}
	return loc
}

// ---------------------------------------------------------------------------
// StockDataSource
// ---------------------------------------------------------------------------

// SourceParams holds the per-source settings stored as JSON
type SourceParams struct {
	UpdatePrice       *bool  `json:"update_price,omitempty" yaml:"update_price,omitempty"`
	UpdateInventory   *bool  `json:"update_inventory,omitempty" yaml:"update_inventory,omitempty"`
	InventoryLocation string `json:"shopify_inventory_location,omitempty" yaml:"shopify_inventory_location,omitempty"`

	// Fuse5
	APIKey       string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIURL       string `json:"api_url,omitempty" yaml:"api_url,omitempty" validate:"omitempty,url"`
	ChangedSince string `json:"changed_since,omitempty" yaml:"changed_since,omitempty" validate:"omitempty,datetime=2006-01-02"`

	// Custom CSV
	CustomCSVID int64 `json:"custom_csv_id,omitempty" yaml:"custom_csv_id,omitempty" validate:"gte=0"`
}

// Options returns the sync options encoded in the params
func (p SourceParams) Options() SyncOptions {
	opts := DefaultSyncOptions()
	if p.UpdatePrice != nil {
		opts.UpdatePrice = *p.UpdatePrice
	}
	if p.UpdateInventory != nil {
		opts.UpdateInventory = *p.UpdateInventory
	}
	opts.InventoryLocation = p.InventoryLocation
	return opts
}

// ChangedSinceTime parses ChangedSince, returning nil when unset
func (p SourceParams) ChangedSinceTime() (*time.Time, error) {
	if p.ChangedSince == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", p.ChangedSince)
	if err != nil {
		return nil, fmt.Errorf("%w: changed_since: %v", ErrInvalidSourceParams, err)
	}
	return &t, nil
}

// StockDataSource is a configured supplier feed
type StockDataSource struct {
	ID     int64
	Name   string
	Active bool
	Kind   SourceKind
	Params SourceParams
}

// Validate checks the invariants of a source
func (s *StockDataSource) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSourceParams)
	}
	if len(s.Name) > 30 {
		return fmt.Errorf("%w: name exceeds 30 characters", ErrInvalidSourceParams)
	}
	if !s.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidSourceKind, s.Kind)
	}
	return nil
}

// StockDataSourceRepository persists stock data sources
type StockDataSourceRepository interface {
	FindByID(ctx context.Context, id int64) (*StockDataSource, error)
	FindActive(ctx context.Context) ([]StockDataSource, error)
	FindAll(ctx context.Context) ([]StockDataSource, error)
	// Upsert inserts or updates a source by name and sets its ID
	Upsert(ctx context.Context, source *StockDataSource) error
}
