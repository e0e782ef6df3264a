package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseReportShapeCheck(t *testing.T) {
	csv := "Date,Amount,Customer\n2024-01-01,100,Acme\n"

	_, err := ParseReport("export.csv", []byte(csv))
	if !errors.Is(err, ErrUnrecognizedReport) {
		t.Fatalf("err = %v, want ErrUnrecognizedReport", err)
	}
}

func TestParseReportEmptyFile(t *testing.T) {
	_, err := ParseReport("export.csv", []byte("Issue Date,ID,Client\n"))
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("err = %v, want ErrEmptyFile", err)
	}
}

func TestParseReportUnsupportedExtension(t *testing.T) {
	_, err := ParseReport("export.txt", []byte("whatever"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestParseReportNormalizesRows(t *testing.T) {
	csv := "Issue Date,ID,PO Number,Client,Subject,Subtotal,Tax,Balance,Paid Amount,Currency,Client Address\n" +
		`01/15/2024,INV-9,PO-1,Acme,Design work,"2,500.00",125.00,"2,625.00",0,Canadian Dollar - CAD,456 Oak Ave` + "\n"

	rows, err := ParseReport("harvest.csv", []byte(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	row := rows[0]
	if row.Number != "INV-9" {
		t.Errorf("Number = %q", row.Number)
	}
	if row.ClientName != "Acme" {
		t.Errorf("ClientName = %q", row.ClientName)
	}
	if row.Subtotal != 2500 {
		t.Errorf("Subtotal = %v, want 2500", row.Subtotal)
	}
	if row.Tax != 125 {
		t.Errorf("Tax = %v, want 125", row.Tax)
	}
	if row.Balance != 2625 {
		t.Errorf("Balance = %v, want 2625", row.Balance)
	}
	if row.ClientCurrency != "Canadian Dollar - CAD" {
		t.Errorf("ClientCurrency = %q (normalization happens at client creation)", row.ClientCurrency)
	}
	if row.Status != "" {
		t.Errorf("Status = %q, want empty (derived later)", row.Status)
	}
	if len(row.Items) != 0 {
		t.Errorf("Items = %d, want none (synthesized later)", len(row.Items))
	}
}

func TestParseReportSkipsByteOrderMark(t *testing.T) {
	csv := "\xEF\xBB\xBFIssue Date,ID,Client\n2024-01-01,INV-1,Acme\n"

	rows, err := ParseReport("harvest.csv", []byte(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Number != "INV-1" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestParseReportToleratesShortRecords(t *testing.T) {
	// Trailing columns missing entirely from a data row
	csv := "Issue Date,ID,Client,Subtotal\n2024-01-01,INV-1,Acme\n"

	rows, err := ParseReport("harvest.csv", []byte(csv))
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].Subtotal != 0 {
		t.Errorf("Subtotal = %v, want 0 for absent column", rows[0].Subtotal)
	}
}

func TestFileSourceRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harvest_export.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := NewFileSource(path).Rows(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
}

func TestFindExportFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"notes.txt", "Harvest_Invoices_2024.csv", "other.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("explicit path wins", func(t *testing.T) {
		if got := FindExportFile("/tmp/given.csv", dir); got != "/tmp/given.csv" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("finds harvest csv case-insensitively", func(t *testing.T) {
		want := filepath.Join(dir, "Harvest_Invoices_2024.csv")
		if got := FindExportFile("", dir); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("falls back to invoices.csv", func(t *testing.T) {
		empty := t.TempDir()
		want := filepath.Join(empty, "invoices.csv")
		if got := FindExportFile("", empty); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}
