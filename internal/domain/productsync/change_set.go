package productsync

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// PriceChange records a price before and after an update
type PriceChange struct {
	Old decimal.Decimal `json:"old"`
	New decimal.Decimal `json:"new"`
}

// QuantityChange records an inventory level before and after an update
type QuantityChange struct {
	Location string `json:"location"`
	Old      *int   `json:"old"`
	New      int    `json:"new"`
}

// ChangeSet is the immutable "changes" payload of a ledger entry.
// Every With* method returns a new value and leaves the receiver untouched.
type ChangeSet struct {
	price        *PriceChange
	quantity     *QuantityChange
	unmatched    bool
	matchedBySKU string
}

// WithPrice returns a copy carrying a price change
func (c ChangeSet) WithPrice(before, after decimal.Decimal) ChangeSet {
	c.price = &PriceChange{Old: before, New: after}
	return c
}

// WithQuantity returns a copy carrying a quantity change
func (c ChangeSet) WithQuantity(location string, before *int, after int) ChangeSet {
	var prev *int
	if before != nil {
		prev = IntPtr(*before)
	}
	c.quantity = &QuantityChange{Location: location, Old: prev, New: after}
	return c
}

// AsUnmatched returns a copy flagged as an unmatched variant with its SKU near misses
func (c ChangeSet) AsUnmatched(matchedBySKU string) ChangeSet {
	c.unmatched = true
	c.matchedBySKU = matchedBySKU
	return c
}

// Price returns the price change, if any
func (c ChangeSet) Price() (PriceChange, bool) {
	if c.price == nil {
		return PriceChange{}, false
	}
	return *c.price, true
}

// Quantity returns the quantity change, if any
func (c ChangeSet) Quantity() (QuantityChange, bool) {
	if c.quantity == nil {
		return QuantityChange{}, false
	}
	q := *c.quantity
	if q.Old != nil {
		q.Old = IntPtr(*q.Old)
	}
	return q, true
}

// Unmatched reports whether the entry describes an unmatched variant
func (c ChangeSet) Unmatched() bool {
	return c.unmatched
}

// MatchedBySKU returns the labels of SKU-only candidates of an unmatched variant
func (c ChangeSet) MatchedBySKU() string {
	return c.matchedBySKU
}

// IsEmpty returns true when nothing changed
func (c ChangeSet) IsEmpty() bool {
	return c.price == nil && c.quantity == nil && !c.unmatched
}

type changeSetJSON struct {
	Price        *PriceChange    `json:"price,omitempty"`
	Quantity     *QuantityChange `json:"quantity,omitempty"`
	Unmatched    bool            `json:"unmatched,omitempty"`
	MatchedBySKU *string         `json:"matched_by_sku,omitempty"`
}

// MarshalJSON encodes the change set in the ledger column layout
func (c ChangeSet) MarshalJSON() ([]byte, error) {
	out := changeSetJSON{
		Price:     c.price,
		Quantity:  c.quantity,
		Unmatched: c.unmatched,
	}
	if c.unmatched {
		s := c.matchedBySKU
		out.MatchedBySKU = &s
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the ledger column layout
func (c *ChangeSet) UnmarshalJSON(data []byte) error {
	var in changeSetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = ChangeSet{
		price:     in.Price,
		quantity:  in.Quantity,
		unmatched: in.Unmatched,
	}
	if in.MatchedBySKU != nil {
		c.matchedBySKU = *in.MatchedBySKU
	}
	return nil
}
