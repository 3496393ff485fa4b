package catalog

import (
	"fmt"
	"regexp"
	"strconv"
)

const skuPrefix = "SKU-"

var skuPattern = regexp.MustCompile(`^SKU-(\d+)$`)

// FormatSKU renders n with at least four digits. Wider counters keep all
// their digits, so SKU-9999 is followed by SKU-10000.
func FormatSKU(n int) string {
	return fmt.Sprintf("%s%04d", skuPrefix, n)
}

// ParseSKU returns the numeric suffix of a well-formed SKU.
func ParseSKU(sku string) (int, bool) {
	m := skuPattern.FindStringSubmatch(sku)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextSKU returns the SKU following the highest well-formed one in existing.
// Malformed values are ignored; an empty set yields SKU-0001.
func NextSKU(existing []string) string {
	highest := 0
	for _, sku := range existing {
		if n, ok := ParseSKU(sku); ok && n > highest {
			highest = n
		}
	}
	return FormatSKU(highest + 1)
}
