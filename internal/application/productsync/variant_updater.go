package productsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/logger"
)

// Decision is what the engine intends to change on one matched pair.
// Dry and live runs compute the same decision; only applying it differs.
type Decision struct {
	UpdatePrice bool
	NewPrice    decimal.Decimal

	UpdateQuantity  bool
	CurrentQuantity int
	NewQuantity     int
	Location        productsync.Location
}

// IsEmpty returns true when the pair is up to date
func (d Decision) IsEmpty() bool {
	return !d.UpdatePrice && !d.UpdateQuantity
}

// Decide compares a matched pair with the storefront state.
// Price is compared at cent precision. The current quantity is the level at the
// supplier's location, falling back to the variant's own inventory quantity.
func Decide(pair MatchedPair, snapshot *InventorySnapshot, options productsync.SyncOptions) Decision {
	var d Decision

	if options.UpdatePrice && pair.Product.HasPrice() {
		newPrice := pair.Product.RoundedPrice()
		if !pair.Variant.Price.Round(2).Equal(newPrice) {
			d.UpdatePrice = true
			d.NewPrice = newPrice
		}
	}

	if options.UpdateInventory && pair.Product.HasQuantity() && snapshot != nil && !snapshot.Unavailable {
		loc, ok := snapshot.Location(pair.Product.LocationName)
		if ok {
			current := pair.Variant.InventoryQuantity
			if level, known := snapshot.Level(pair.Variant.InventoryItemID, pair.Product.LocationName); known {
				current = *level
			}
			if current != *pair.Product.Quantity {
				d.UpdateQuantity = true
				d.CurrentQuantity = current
				d.NewQuantity = *pair.Product.Quantity
				d.Location = loc
			}
		}
	}

	return d
}

// RetryPolicy bounds the retries of storefront writes rejected with a rate limit
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// ApplyOutcome reports what happened to one pair
type ApplyOutcome struct {
	Changes         productsync.ChangeSet
	PriceFailed     bool
	QuantityFailed  bool
	Updated         bool
	PriceUpdated    bool
	QuantityUpdated bool
}

// VariantUpdater applies decisions to the storefront
type VariantUpdater struct {
	client productsync.StorefrontClient
	retry  RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewVariantUpdater creates an updater
func NewVariantUpdater(client productsync.StorefrontClient, retry RetryPolicy) *VariantUpdater {
	return &VariantUpdater{client: client, retry: retry, sleep: sleepContext}
}

// Apply carries out a decision. In dry mode nothing is written and the intended changes are logged.
// Price and quantity are independent: a failed price update does not block the quantity update.
func (u *VariantUpdater) Apply(ctx context.Context, pair MatchedPair, decision Decision, dry bool) ApplyOutcome {
	var out ApplyOutcome
	log := logger.L(ctx)
	lines := make([]string, 0, 6)

	if dry {
		lines = append(lines, "Matched products found", comparingTable(pair, decision))
		if pair.SKUMismatch {
			lines = append(lines, fmt.Sprintf("WARNING! SKU is not equal for in the variant ID=%d", pair.Variant.ID))
		}
	}

	if decision.UpdatePrice {
		if dry {
			lines = append(lines, fmt.Sprintf("The price will be updated to %s", decision.NewPrice.StringFixed(2)))
			out.Changes = out.Changes.WithPrice(pair.Variant.Price, decision.NewPrice)
			out.PriceUpdated = true
		} else {
			err := u.withRetry(ctx, func() error {
				return u.client.SaveVariant(ctx, pair.Variant.WithPrice(decision.NewPrice))
			})
			if err != nil {
				log.Error(fmt.Sprintf("Unable to update shopify product variant ID=%d - %s", pair.Variant.ID, err))
				out.PriceFailed = true
			} else {
				out.Changes = out.Changes.WithPrice(pair.Variant.Price, decision.NewPrice)
				out.PriceUpdated = true
			}
		}
	}

	if decision.UpdateQuantity {
		if dry {
			lines = append(lines, fmt.Sprintf("The quantity will be updated to %d", decision.NewQuantity))
			out.Changes = out.Changes.WithQuantity(decision.Location.Name, productsync.IntPtr(decision.CurrentQuantity), decision.NewQuantity)
			out.QuantityUpdated = true
		} else {
			err := u.withRetry(ctx, func() error {
				_, err := u.client.SetInventoryLevel(ctx, pair.Variant.InventoryItemID, decision.Location.ID, decision.NewQuantity)
				return err
			})
			if err != nil {
				log.Error(fmt.Sprintf("Unable to update quantity of the shopify variant ID=%d - %s", pair.Variant.ID, err))
				out.QuantityFailed = true
			} else {
				out.Changes = out.Changes.WithQuantity(decision.Location.Name, productsync.IntPtr(decision.CurrentQuantity), decision.NewQuantity)
				out.QuantityUpdated = true
			}
		}
	}

	out.Updated = out.PriceUpdated || out.QuantityUpdated
	if dry && !out.Updated {
		lines = append(lines, "The product is up to date")
	}
	if len(lines) > 0 {
		log.Info(strings.Join(lines, "\n"))
	}
	return out
}

// withRetry retries fn on productsync.ErrRateLimited only
func (u *VariantUpdater) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, productsync.ErrRateLimited) || attempt >= u.retry.Attempts {
			return err
		}
		logger.L(ctx).Debug(fmt.Sprintf("Rate limited by the storefront, retry %d of %d", attempt+1, u.retry.Attempts))
		if serr := u.sleep(ctx, u.retry.Delay*time.Duration(attempt+1)); serr != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// comparingTable renders the storefront and supplier values side by side
func comparingTable(pair MatchedPair, decision Decision) string {
	current := strconv.Itoa(pair.Variant.InventoryQuantity)
	if decision.UpdateQuantity {
		current = strconv.Itoa(decision.CurrentQuantity)
	}
	supplierPrice := "None"
	if pair.Product.HasPrice() {
		supplierPrice = pair.Product.RoundedPrice().StringFixed(2)
	}
	supplierQty := "None"
	if pair.Product.HasQuantity() {
		supplierQty = strconv.Itoa(*pair.Product.Quantity)
	}

	row := "%-10s %-16s %-20s %10s %6s"
	return strings.Join([]string{
		fmt.Sprintf(row, "", "UPC", "SKU", "Price", "Qty"),
		fmt.Sprintf(row, "Shopify:", pair.Variant.Barcode, pair.Variant.SKU, pair.Variant.Price.StringFixed(2), current),
		fmt.Sprintf(row, "Supplier:", pair.Product.Barcode, pair.Product.SKU, supplierPrice, supplierQty),
	}, "\n")
}
