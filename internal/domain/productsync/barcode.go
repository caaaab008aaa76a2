package productsync

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MinBarcodeDigits is the shortest digit run accepted as a barcode
	MinBarcodeDigits = 6
	// MaxBarcodeLength is the widest zero-padded form generated (GTIN-14)
	MaxBarcodeLength = 14
)

var (
	scientificBarcode = regexp.MustCompile(`^\d+(\.\d+)?[eE]\+?\d+$`)
	nonDigits         = regexp.MustCompile(`\D`)
)

// NormalizeBarcode reduces a raw storefront barcode to its digits.
// Spreadsheet-mangled values such as "1.23456789012E+11" are expanded first.
// An empty input returns "" with no error; a short digit run is ErrInvalidBarcode.
func NormalizeBarcode(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", nil
	}

	if scientificBarcode.MatchString(s) {
		d, err := decimal.NewFromString(s)
		if err == nil {
			s = d.Truncate(0).String()
		}
	}

	digits := nonDigits.ReplaceAllString(s, "")
	if len(digits) < MinBarcodeDigits {
		return "", fmt.Errorf("%w: %q", ErrInvalidBarcode, raw)
	}
	return digits, nil
}

// BarcodeVariants returns every zero-padded form of a normalized barcode,
// from its canonical length (leading zeros stripped) up to MaxBarcodeLength.
// UPC-A, EAN-13 and zero-stripped forms of one code all share the result.
func BarcodeVariants(normalized string) []string {
	if normalized == "" {
		return nil
	}

	canonical := strings.TrimLeft(normalized, "0")
	if canonical == "" {
		canonical = "0"
	}
	if len(canonical) >= MaxBarcodeLength {
		return []string{canonical}
	}

	variants := make([]string, 0, MaxBarcodeLength-len(canonical)+1)
	for width := len(canonical); width <= MaxBarcodeLength; width++ {
		variants = append(variants, strings.Repeat("0", width-len(canonical))+canonical)
	}
	return variants
}
