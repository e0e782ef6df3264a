package importer

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"thousands separator", "1,800.50", 1800.5},
		{"plain integer", "1000", 1000},
		{"empty", "", 0},
		{"whitespace", "   ", 0},
		{"non-numeric", "abc", 0},
		{"negative", "-250.75", -250.75},
		{"multiple separators", "1,234,567.89", 1234567.89},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseAmount(tt.raw); got != tt.want {
				t.Errorf("ParseAmount(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseCurrencyCode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"compound label", "Canadian Dollar - CAD", "CAD"},
		{"compound label en dash", "United States Dollar – USD", "USD"},
		{"compound label em dash", "Euro — EUR", "EUR"},
		{"bare code", "EUR", "EUR"},
		{"empty defaults to USD", "", "USD"},
		{"whitespace defaults to USD", "  ", "USD"},
		{"unrecognized truncated to 10", "Some Very Long Currency Label", "Some Very "},
		{"short unrecognized kept", "Dollars", "Dollars"},
		{"trailing whitespace after code", "Pound Sterling - GBP  ", "GBP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCurrencyCode(tt.raw); got != tt.want {
				t.Errorf("ParseCurrencyCode(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseISODate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"iso", "2024-01-15", "2024-01-15"},
		{"us slashes", "01/15/2024", "2024-01-15"},
		{"single digit slashes", "1/5/2024", "2024-01-05"},
		{"month name", "Jan 15, 2024", "2024-01-15"},
		{"empty", "", ""},
		{"garbage", "not a date", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseISODate(tt.raw); got != tt.want {
				t.Errorf("ParseISODate(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestAddDays(t *testing.T) {
	tests := []struct {
		name   string
		iso    string
		offset int
		want   string
	}{
		{"net 30", "2024-01-01", 30, "2024-01-31"},
		{"month rollover", "2024-01-15", 30, "2024-02-14"},
		{"year rollover", "2024-12-15", 30, "2025-01-14"},
		{"empty input", "", 30, ""},
		{"invalid input", "bogus", 30, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AddDays(tt.iso, tt.offset); got != tt.want {
				t.Errorf("AddDays(%q, %d) = %q, want %q", tt.iso, tt.offset, got, tt.want)
			}
		})
	}
}

func TestTaxPercent(t *testing.T) {
	tests := []struct {
		name     string
		tax      float64
		subtotal float64
		want     float64
	}{
		// 75/1000 must come out exactly 7.5, not 7.49999...
		{"exact rounding", 75, 1000, 7.5},
		{"five percent", 50, 1000, 5},
		{"rounds to two decimals", 76.556, 1000, 7.66},
		{"zero subtotal", 75, 0, 0},
		{"negative subtotal", 75, -100, 0},
		{"zero tax", 0, 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TaxPercent(tt.tax, tt.subtotal); got != tt.want {
				t.Errorf("TaxPercent(%v, %v) = %v, want %v", tt.tax, tt.subtotal, got, tt.want)
			}
		})
	}
}
