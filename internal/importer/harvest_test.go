package importer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"yield/pkg/models"
)

func newHarvestTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Harvest-Account-Id"); got != "12345" {
			t.Errorf("Harvest-Account-Id = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-abc" {
			t.Errorf("Authorization = %q", got)
		}

		page := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/clients":
			// Two pages to exercise the pagination loop
			if page == "1" {
				fmt.Fprint(w, `{"clients":[{"id":77,"name":"Acme","address":"123 Main St","currency":"CAD"}],"page":1,"total_pages":2,"next_page":2}`)
			} else {
				fmt.Fprint(w, `{"clients":[{"id":88,"name":"Globex","address":"","currency":"USD"}],"page":2,"total_pages":2,"next_page":null}`)
			}
		case "/contacts":
			fmt.Fprint(w, `{"contacts":[
				{"id":1,"email":"first@acme.test","client":{"id":77}},
				{"id":2,"email":"second@acme.test","client":{"id":77}},
				{"id":3,"email":"","client":{"id":88}}
			],"page":1,"total_pages":1,"next_page":null}`)
		case "/invoices":
			fmt.Fprint(w, `{"invoices":[
				{"id":1001,"number":"H-1","state":"paid","issue_date":"2024-01-01","subject":"January work",
				 "purchase_order":"PO-9","amount":1050,"due_amount":0,"tax_amount":50,
				 "client":{"id":77,"name":"Acme"},
				 "line_items":[{"description":"Consulting","quantity":10,"unit_price":100}]},
				{"id":1002,"number":"H-2","state":"closed","issue_date":"2024-02-01","subject":"",
				 "purchase_order":"","amount":500,"due_amount":500,"tax_amount":0,
				 "client":{"id":88,"name":"Globex"},
				 "line_items":[]}
			],"page":1,"total_pages":1,"next_page":null}`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestHarvestSourceRows(t *testing.T) {
	srv := newHarvestTestServer(t)
	defer srv.Close()

	source := NewHarvestSource("12345", "token-abc", srv.URL)
	rows, err := source.Rows(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	first := rows[0]
	if first.Number != "H-1" {
		t.Errorf("Number = %q", first.Number)
	}
	if first.ClientHarvestID != "77" {
		t.Errorf("ClientHarvestID = %q, want 77", first.ClientHarvestID)
	}
	if first.ClientAddress != "123 Main St" {
		t.Errorf("ClientAddress = %q (joined from paginated clients)", first.ClientAddress)
	}
	// First contact per client wins
	if first.ClientEmail != "first@acme.test" {
		t.Errorf("ClientEmail = %q", first.ClientEmail)
	}
	if first.Status != models.StatusPaid {
		t.Errorf("Status = %q, want paid", first.Status)
	}
	if first.PaidAmount != 1050 {
		t.Errorf("PaidAmount = %v, want 1050", first.PaidAmount)
	}
	if len(first.Items) != 1 || first.Items[0].Quantity != 10 || first.Items[0].UnitPrice != 100 {
		t.Errorf("Items = %+v", first.Items)
	}

	second := rows[1]
	if second.Status != models.StatusWrittenOff {
		t.Errorf("Status = %q, want written_off", second.Status)
	}
	if second.ClientEmail != "" {
		t.Errorf("ClientEmail = %q, want empty (contact had no address)", second.ClientEmail)
	}
	if second.Balance != 500 {
		t.Errorf("Balance = %v, want 500", second.Balance)
	}
}

func TestHarvestSourceAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	source := NewHarvestSource("12345", "bad-token", srv.URL)
	if _, err := source.Rows(context.Background()); err == nil {
		t.Fatal("expected error for rejected credentials")
	}
}
