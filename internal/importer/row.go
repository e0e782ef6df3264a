package importer

import "context"

// Row is one normalized invoice row from an external billing system. Both
// ingestion sources (Harvest CSV export, Harvest REST API) produce this shape
// before any reconciliation runs, so the import pipeline itself is
// source-agnostic.
type Row struct {
	// Number is the external invoice identifier, reused as the invoice
	// number and idempotency key.
	Number string

	ClientName      string
	ClientHarvestID string // numeric Harvest client id, empty for CSV rows
	ClientEmail     string // backfilled from contacts, API source only
	ClientAddress   string
	ClientCurrency  string // raw currency label, normalized at client creation

	Subject   string
	IssueDate string // raw date string from the source
	Notes     string // PO / reference field

	Subtotal   float64
	Tax        float64
	Balance    float64
	PaidAmount float64

	// Status is the source's authoritative lifecycle state, already mapped
	// to an internal status. Empty means the importer derives it.
	Status string

	// Items holds explicit line items when the source has them. When empty
	// a single synthetic item is created from Subject and Subtotal.
	Items []LineItem
}

// LineItem is one line of an external invoice.
type LineItem struct {
	Description string
	Quantity    float64
	UnitPrice   float64
}

// clientKey is the external client reference this row resolves through:
// the Harvest id when the source carries one, otherwise the exact name.
func (r Row) clientKey() string {
	if r.ClientHarvestID != "" {
		return r.ClientHarvestID
	}
	return r.ClientName
}

// Source produces normalized rows for one import run.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string

	// Rows loads and normalizes every row up front. Rows must fail fast
	// on a structurally unusable source (wrong columns, unreachable API)
	// since nothing has been written at that point.
	Rows(ctx context.Context) ([]Row, error)
}
