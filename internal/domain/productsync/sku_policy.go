package productsync

import (
	"fmt"
	"strings"
)

// SKUPolicy decides when two SKUs are considered equal
type SKUPolicy string

const (
	// SKUPolicyExact compares SKUs byte for byte
	SKUPolicyExact SKUPolicy = "exact"
	// SKUPolicyCaseInsensitive ignores letter case
	SKUPolicyCaseInsensitive SKUPolicy = "case_insensitive"
	// SKUPolicySeparatorTolerant ignores letter case and the separators '-', '_' and ' '
	SKUPolicySeparatorTolerant SKUPolicy = "separator_tolerant"
)

// SKUSeparators are the characters ignored by SKUPolicySeparatorTolerant
const SKUSeparators = "-_ "

// ParseSKUPolicy parses a policy name
func ParseSKUPolicy(s string) (SKUPolicy, error) {
	p := SKUPolicy(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSKUPolicy, s)
	}
	return p, nil
}

// IsValid returns true for a known policy
func (p SKUPolicy) IsValid() bool {
	switch p {
	case SKUPolicyExact, SKUPolicyCaseInsensitive, SKUPolicySeparatorTolerant:
		return true
	}
	return false
}

// Key returns the comparison key of a SKU under the policy.
// Case folding is ASCII only: catalog lookups in SQLite and in PostgreSQL
// (under the "C" collation) fold the same letters, so both storage modes
// agree with the in-process comparison.
func (p SKUPolicy) Key(sku string) string {
	switch p {
	case SKUPolicyCaseInsensitive:
		return foldASCII(sku)
	case SKUPolicySeparatorTolerant:
		return foldASCII(stripSeparators(sku))
	default:
		return sku
	}
}

// Equal reports whether two SKUs match under the policy. Empty SKUs never match.
func (p SKUPolicy) Equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return p.Key(a) == p.Key(b)
}

func foldASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(SKUSeparators, r) {
			return -1
		}
		return r
	}, s)
}
