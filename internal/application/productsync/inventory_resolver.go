package productsync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/logger"
)

// MissingLocationPolicy decides what happens to a supplier location unknown to the storefront
type MissingLocationPolicy string

const (
	// MissingLocationSkip excludes the location; quantity updates for it are skipped
	MissingLocationSkip MissingLocationPolicy = "skip"
	// MissingLocationDefault falls back to the default storefront location
	MissingLocationDefault MissingLocationPolicy = "default"
)

// LocationDirectory resolves supplier location names to storefront locations.
// The location list is fetched once and reused for the lifetime of the directory.
type LocationDirectory struct {
	client      productsync.StorefrontClient
	defaultName string
	policy      MissingLocationPolicy
	locations   []productsync.Location
	loaded      bool
}

// NewLocationDirectory creates a directory backed by the storefront location list
func NewLocationDirectory(client productsync.StorefrontClient, defaultName string, policy MissingLocationPolicy) *LocationDirectory {
	return &LocationDirectory{client: client, defaultName: defaultName, policy: policy}
}

// Find returns the storefront location for a supplier location name.
// An exact case-insensitive name wins over a location whose name contains the given one.
func (d *LocationDirectory) Find(ctx context.Context, name string) (*productsync.Location, error) {
	if err := d.load(ctx); err != nil {
		return nil, err
	}

	if loc := d.lookup(name); loc != nil {
		return loc, nil
	}
	if d.policy == MissingLocationDefault && d.defaultName != "" && !strings.EqualFold(name, d.defaultName) {
		if loc := d.lookup(d.defaultName); loc != nil {
			return loc, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", productsync.ErrLocationNotFound, name)
}

func (d *LocationDirectory) load(ctx context.Context) error {
	if d.loaded {
		return nil
	}
	locations, err := d.client.Locations(ctx)
	if err != nil {
		return err
	}
	d.locations = locations
	d.loaded = true
	return nil
}

func (d *LocationDirectory) lookup(name string) *productsync.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for i := range d.locations {
		if strings.EqualFold(d.locations[i].Name, name) {
			return &d.locations[i]
		}
	}
	for i := range d.locations {
		if strings.Contains(d.locations[i].Name, name) {
			return &d.locations[i]
		}
	}
	return nil
}

// MatchedPair is a storefront variant with the supplier row it matched
type MatchedPair struct {
	Variant     productsync.StorefrontVariant
	Product     productsync.SupplierProduct
	SKUMismatch bool
}

// InventoryKey identifies an inventory level by item and supplier location name
type InventoryKey struct {
	InventoryItemID int64
	LocationName    string
}

// InventorySnapshot holds the levels fetched for one batch
type InventorySnapshot struct {
	levels    map[InventoryKey]*int
	locations map[string]productsync.Location
	// Unavailable is set when the levels could not be fetched
	Unavailable bool
}

// Location returns the storefront location resolved for a supplier location name
func (s *InventorySnapshot) Location(name string) (productsync.Location, bool) {
	loc, ok := s.locations[name]
	return loc, ok
}

// Level returns the available quantity of an item at a supplier location.
// The boolean is false when the storefront reported no level for the pair.
func (s *InventorySnapshot) Level(inventoryItemID int64, locationName string) (*int, bool) {
	level, ok := s.levels[InventoryKey{InventoryItemID: inventoryItemID, LocationName: locationName}]
	if !ok || level == nil {
		return nil, false
	}
	v := *level
	return &v, true
}

// InventoryResolver fetches the inventory levels of a whole batch in one storefront call
type InventoryResolver struct {
	client    productsync.StorefrontClient
	locations *LocationDirectory
}

// NewInventoryResolver creates a resolver
func NewInventoryResolver(client productsync.StorefrontClient, locations *LocationDirectory) *InventoryResolver {
	return &InventoryResolver{client: client, locations: locations}
}

// Resolve collects the distinct supplier locations and inventory items of the batch,
// resolves the locations and issues a single inventory levels query for all of them.
// Unknown locations are logged and left out of the snapshot.
func (r *InventoryResolver) Resolve(ctx context.Context, pairs []MatchedPair) (*InventorySnapshot, error) {
	snapshot := &InventorySnapshot{
		levels:    make(map[InventoryKey]*int),
		locations: make(map[string]productsync.Location),
	}
	if len(pairs) == 0 {
		return snapshot, nil
	}

	names := make([]string, 0)
	seenNames := make(map[string]struct{})
	items := make([]int64, 0, len(pairs))
	seenItems := make(map[int64]struct{})
	for _, p := range pairs {
		if _, ok := seenNames[p.Product.LocationName]; !ok {
			seenNames[p.Product.LocationName] = struct{}{}
			names = append(names, p.Product.LocationName)
		}
		if _, ok := seenItems[p.Variant.InventoryItemID]; !ok {
			seenItems[p.Variant.InventoryItemID] = struct{}{}
			items = append(items, p.Variant.InventoryItemID)
		}
	}
	slices.Sort(names)
	slices.Sort(items)

	namesByLocation := make(map[int64][]string)
	locationIDs := make([]int64, 0, len(names))
	for _, name := range names {
		loc, err := r.locations.Find(ctx, name)
		if err != nil {
			if errors.Is(err, productsync.ErrLocationNotFound) {
				logger.L(ctx).Warn(fmt.Sprintf("Inventory location `%s` not found in the Shopify store", name))
				continue
			}
			snapshot.Unavailable = true
			return snapshot, err
		}
		snapshot.locations[name] = *loc
		if _, ok := namesByLocation[loc.ID]; !ok {
			locationIDs = append(locationIDs, loc.ID)
		}
		namesByLocation[loc.ID] = append(namesByLocation[loc.ID], name)
	}

	if len(locationIDs) == 0 {
		return snapshot, nil
	}

	levels, err := r.client.InventoryLevels(ctx, items, locationIDs)
	if err != nil {
		snapshot.Unavailable = true
		return snapshot, err
	}
	for _, level := range levels {
		for _, name := range namesByLocation[level.LocationID] {
			snapshot.levels[InventoryKey{InventoryItemID: level.InventoryItemID, LocationName: name}] = level.Available
		}
	}
	return snapshot, nil
}
