package models

// Collection names in the record store.
const (
	CollectionClients      = "clients"
	CollectionInvoices     = "invoices"
	CollectionInvoiceItems = "invoice_items"
)

// Invoice lifecycle statuses.
const (
	StatusDraft      = "draft"
	StatusSent       = "sent"
	StatusPaid       = "paid"
	StatusWrittenOff = "written_off"
)

type Client struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`       // Display name, required and unique
	Email     string `json:"email"`      // Contact email, may be backfilled by import
	Address   string `json:"address"`    // Postal address, free text
	Currency  string `json:"currency"`   // ISO 4217 code (USD, CAD, ...)
	HarvestID string `json:"harvest_id"` // External Harvest client id, empty for locally created clients
	Archived  bool   `json:"archived"`
}

type Invoice struct {
	ID         string  `json:"id,omitempty"`
	Client     string  `json:"client"`      // Owning client record id
	Number     string  `json:"number"`      // Human-facing number, globally unique
	IssueDate  string  `json:"issue_date"`  // YYYY-MM-DD
	DueDate    string  `json:"due_date"`    // YYYY-MM-DD, issue date + 30 when imported
	Status     string  `json:"status"`      // draft, sent, paid or written_off
	TaxPercent float64 `json:"tax_percent"` // Scalar percentage, not a jurisdiction rate
	PaidAmount float64 `json:"paid_amount"`
	Notes      string  `json:"notes"`
}

type InvoiceItem struct {
	ID          string  `json:"id,omitempty"`
	Invoice     string  `json:"invoice"` // Owning invoice record id
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"` // May be fractional (hours)
	UnitPrice   float64 `json:"unit_price"`
}

// Subtotal returns the pre-tax sum of quantity × unit price.
func Subtotal(items []InvoiceItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Quantity * it.UnitPrice
	}
	return sum
}
