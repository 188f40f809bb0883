package extractor

import (
	"strconv"
	"strings"
)

// parsePrice normalizes a displayed price into a float. Storefronts mix
// two shapes: "$12,345.67" (comma thousands) and "12.345,67" (dot
// thousands, decimal comma). The separator closest to the end wins the
// decimal role.
func (e *StorefrontExtractor) parsePrice(value string) (float64, bool) {
	if strings.TrimSpace(value) == "" {
		return 0, false
	}

	raw := e.priceChars.ReplaceAllString(value, "")
	commas := strings.Count(raw, ",")
	dots := strings.Count(raw, ".")

	switch {
	case commas > 1 && dots == 0:
		raw = strings.ReplaceAll(raw, ",", "")
	case dots > 1 && commas == 0:
		raw = strings.ReplaceAll(raw, ".", "")
	case commas > 0 && dots > 0:
		if strings.LastIndex(raw, ",") > strings.LastIndex(raw, ".") {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.ReplaceAll(raw, ",", ".")
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case commas > 0:
		// A lone comma followed by exactly two digits is a decimal comma.
		parts := strings.Split(raw, ",")
		if len(parts[len(parts)-1]) == 2 {
			raw = strings.ReplaceAll(raw, ",", ".")
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// formatPrice renders a parsed price in canonical form ("12345.67"), or ""
// when the text carries no parseable amount.
func (e *StorefrontExtractor) formatPrice(value string) string {
	amount, ok := e.parsePrice(value)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
