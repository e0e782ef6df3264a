package importer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Trailing ISO code in compound labels like "Canadian Dollar - CAD".
// Harvest exports use a hyphen; some locales emit en or em dashes.
var currencyCodeRE = regexp.MustCompile(`[-\x{2013}\x{2014}]\s*([A-Z]{3})\s*$`)

// Date layouts accepted from external sources, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseAmount parses a source-formatted number ("1,800.50") into a float.
// Empty, missing or non-numeric input yields 0, never an error: malformed
// amounts are an expected property of external exports.
func ParseAmount(raw string) float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return 0
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}

// ParseCurrencyCode extracts an ISO currency code from either a bare code
// ("EUR") or a compound label ("Canadian Dollar - CAD"). Unrecognized input
// falls back to the first 10 characters; empty input defaults to USD.
func ParseCurrencyCode(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "USD"
	}
	if m := currencyCodeRE.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	if len(trimmed) > 10 {
		return trimmed[:10]
	}
	return trimmed
}

// parseDate parses a loosely formatted source date.
func parseDate(raw string) (time.Time, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseISODate normalizes a loosely formatted date string to YYYY-MM-DD.
// Empty or unparsable input yields "".
func ParseISODate(raw string) string {
	t, ok := parseDate(raw)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

// AddDays returns isoDate shifted by a whole-day offset, or "" when the
// input is empty or invalid. Used to synthesize due dates.
func AddDays(isoDate string, offsetDays int) string {
	t, ok := parseDate(isoDate)
	if !ok {
		return ""
	}
	return t.AddDate(0, 0, offsetDays).Format("2006-01-02")
}

// TaxPercent derives the tax percentage from a tax amount and subtotal,
// rounded half away from zero at two decimals. Zero or negative subtotals
// yield 0.
func TaxPercent(tax, subtotal float64) float64 {
	if subtotal <= 0 {
		return 0
	}
	return math.Round(tax/subtotal*10000) / 100
}
