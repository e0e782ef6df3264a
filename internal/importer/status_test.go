package importer

import (
	"testing"
	"time"

	"yield/pkg/models"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		balance   float64
		issueDate string
		want      string
	}{
		{"zero balance is paid", 0, "2024-01-01", models.StatusPaid},
		// Paid wins over a future issue date
		{"zero balance future date still paid", 0, "2025-01-01", models.StatusPaid},
		{"outstanding future date is draft", 100, "2025-01-01", models.StatusDraft},
		{"outstanding past date is sent", 100, "2024-01-01", models.StatusSent},
		{"outstanding empty date is sent", 100, "", models.StatusSent},
		{"outstanding unparsable date is sent", 100, "whenever", models.StatusSent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.balance, tt.issueDate, now); got != tt.want {
				t.Errorf("DeriveStatus(%v, %q) = %q, want %q", tt.balance, tt.issueDate, got, tt.want)
			}
		})
	}
}

func TestMapHarvestState(t *testing.T) {
	tests := []struct {
		state string
		want  string
	}{
		{"paid", models.StatusPaid},
		{"draft", models.StatusDraft},
		{"closed", models.StatusWrittenOff},
		{"open", models.StatusSent},
		{"", models.StatusSent},
	}

	for _, tt := range tests {
		if got := MapHarvestState(tt.state); got != tt.want {
			t.Errorf("MapHarvestState(%q) = %q, want %q", tt.state, got, tt.want)
		}
	}
}
