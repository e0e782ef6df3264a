package importer

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestReportErrorCap(t *testing.T) {
	report := &Report{}
	for i := 0; i < maxErrors+10; i++ {
		report.addError(fmt.Sprintf("error %d", i))
	}

	if len(report.Errors) != maxErrors {
		t.Fatalf("got %d errors, want %d", len(report.Errors), maxErrors)
	}
	// Oldest first; later entries are dropped, not rotated
	if report.Errors[0] != "error 0" {
		t.Errorf("first error = %q, want %q", report.Errors[0], "error 0")
	}
	if report.Errors[maxErrors-1] != fmt.Sprintf("error %d", maxErrors-1) {
		t.Errorf("last error = %q, want %q", report.Errors[maxErrors-1], fmt.Sprintf("error %d", maxErrors-1))
	}
}

func TestReportJSONIncludesSkippedTotal(t *testing.T) {
	report := &Report{
		SkippedMissingFields: 1,
		SkippedNoClient:      2,
		SkippedDuplicate:     3,
	}

	b, err := json.Marshal(report)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}

	if got := decoded["invoices_skipped"]; got != float64(6) {
		t.Errorf("invoices_skipped = %v, want 6", got)
	}
}
