// Package importer migrates Harvest billing data into the invoicing record
// store: it reconciles clients, then creates invoices with their line items,
// idempotently and with per-row failure tolerance.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"yield/internal/logger"
	"yield/internal/pocketbase"
	"yield/pkg/models"
)

// Store is the slice of the record store the importer needs. FindFirst must
// return pocketbase.ErrNotFound when no record matches.
type Store interface {
	Health(ctx context.Context) error
	FindFirst(ctx context.Context, collection, filter string) (pocketbase.Record, error)
	Create(ctx context.Context, collection string, fields map[string]any) (pocketbase.Record, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) (pocketbase.Record, error)
}

// Importer runs import batches against a single record store. Rows are
// processed sequentially in source order: the store's uniqueness checks are
// read-then-write, so there is exactly one writer per run.
type Importer struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

func New(store Store) *Importer {
	return &Importer{
		store: store,
		now:   time.Now,
		log:   logger.WithComponent("importer"),
	}
}

// Run executes one import batch from source. Only batch-aborting conditions
// (store unreachable, source unreadable) return an error; per-row problems
// degrade to counters and capped error strings on the report. Re-running
// against the same source and store is a no-op.
func (imp *Importer) Run(ctx context.Context, source Source) (*Report, error) {
	const op = "Run"

	if err := imp.store.Health(ctx); err != nil {
		return nil, fmt.Errorf("%s: store health check failed: %w", op, err)
	}

	rows, err := source.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: reading %s: %w", op, source.Name(), err)
	}

	imp.log.Info().
		Str("source", source.Name()).
		Int("rows", len(rows)).
		Msg("starting import")

	report := &Report{}

	// Clients must be fully reconciled before any invoice is created:
	// invoice creation needs the complete external→internal id mapping.
	clientIDs := imp.reconcileClients(ctx, rows, report)

	imp.log.Info().
		Int("created", report.ClientsCreated).
		Int("already_existed", report.ClientsSkipped).
		Msg("clients reconciled")

	imp.importInvoices(ctx, rows, clientIDs, report)

	imp.log.Info().
		Int("created", report.InvoicesCreated).
		Int("skipped", report.InvoicesSkipped()).
		Int("failed", report.InvoicesFailed).
		Msg("import finished")

	return report, nil
}

// reconcileClients maps every distinct external client reference in the
// batch to an internal record id, creating records as needed. A reference
// that cannot be created is recorded as an error and left out of the map;
// its invoices are skipped downstream.
func (imp *Importer) reconcileClients(ctx context.Context, rows []Row, report *Report) map[string]string {
	// First-seen row wins for attribute sourcing (address, currency).
	unique := make(map[string]Row)
	var order []string
	for _, row := range rows {
		if strings.TrimSpace(row.ClientName) == "" {
			continue
		}
		key := row.clientKey()
		if _, seen := unique[key]; !seen {
			unique[key] = row
			order = append(order, key)
		}
	}

	idMap := make(map[string]string, len(unique))

	for _, key := range order {
		row := unique[key]
		name := strings.TrimSpace(row.ClientName)

		filter := pocketbase.FilterEq("name", name)
		if row.ClientHarvestID != "" {
			filter = pocketbase.FilterEq("harvest_id", row.ClientHarvestID)
		}

		existing, err := imp.store.FindFirst(ctx, models.CollectionClients, filter)
		if errors.Is(err, pocketbase.ErrNotFound) && row.ClientHarvestID != "" {
			// A client first imported from a CSV export carries no
			// harvest_id; fall back to the name so both sources resolve
			// to the same record.
			existing, err = imp.store.FindFirst(ctx, models.CollectionClients, pocketbase.FilterEq("name", name))
		}
		switch {
		case err == nil:
			idMap[key] = existing.ID()
			report.ClientsSkipped++
			imp.backfillClient(ctx, existing, row)
			continue
		case !errors.Is(err, pocketbase.ErrNotFound):
			report.addError(fmt.Sprintf("client %q: %v", name, err))
			continue
		}

		fields := map[string]any{
			"name":     name,
			"address":  strings.TrimSpace(row.ClientAddress),
			"currency": ParseCurrencyCode(row.ClientCurrency),
			"archived": false,
		}
		if row.ClientHarvestID != "" {
			fields["harvest_id"] = row.ClientHarvestID
		}
		if row.ClientEmail != "" {
			fields["email"] = row.ClientEmail
		}

		record, err := imp.store.Create(ctx, models.CollectionClients, fields)
		if err != nil {
			report.addError(fmt.Sprintf("client %q: %v", name, err))
			continue
		}

		idMap[key] = record.ID()
		report.ClientsCreated++
		imp.log.Info().Str("client", name).Msg("client created")
	}

	return idMap
}

// backfillClient fills gaps on an existing client (contact email, external
// id) without overwriting any non-empty value. Failures only warn: the
// mapping entry is already correct.
func (imp *Importer) backfillClient(ctx context.Context, existing pocketbase.Record, row Row) {
	fields := map[string]any{}
	if row.ClientEmail != "" && existing.GetString("email") == "" {
		fields["email"] = row.ClientEmail
	}
	if row.ClientHarvestID != "" && existing.GetString("harvest_id") == "" {
		fields["harvest_id"] = row.ClientHarvestID
	}
	if len(fields) == 0 {
		return
	}
	_, err := imp.store.Update(ctx, models.CollectionClients, existing.ID(), fields)
	if err != nil {
		imp.log.Warn().
			Err(err).
			Str("client", existing.GetString("name")).
			Msg("client backfill failed")
	}
}

// importInvoices creates one invoice (plus line items) per processable row.
// The step order per row is fixed: required fields, client resolution,
// duplicate check, then creation.
func (imp *Importer) importInvoices(ctx context.Context, rows []Row, clientIDs map[string]string, report *Report) {
	for _, row := range rows {
		number := strings.TrimSpace(row.Number)
		clientName := strings.TrimSpace(row.ClientName)

		if number == "" || clientName == "" {
			report.SkippedMissingFields++
			continue
		}

		clientID, ok := clientIDs[row.clientKey()]
		if !ok {
			if report.SkippedNoClient < maxNoClientErrors {
				report.addError(fmt.Sprintf("invoice #%s: no client record for %q", number, clientName))
			}
			report.SkippedNoClient++
			continue
		}

		// Idempotent re-run behavior: an invoice number that already
		// exists is a skip, not an error.
		_, err := imp.store.FindFirst(ctx, models.CollectionInvoices, pocketbase.FilterEq("number", number))
		switch {
		case err == nil:
			report.SkippedDuplicate++
			continue
		case !errors.Is(err, pocketbase.ErrNotFound):
			report.InvoicesFailed++
			report.addError(fmt.Sprintf("invoice #%s: %v", number, err))
			continue
		}

		items := row.Items
		if len(items) == 0 {
			items = []LineItem{{
				Description: strings.TrimSpace(row.Subject),
				Quantity:    1,
				UnitPrice:   row.Subtotal,
			}}
		}

		subtotal := row.Subtotal
		if len(row.Items) > 0 {
			subtotal = 0
			for _, it := range row.Items {
				subtotal += it.Quantity * it.UnitPrice
			}
		}

		status := row.Status
		if status == "" {
			status = DeriveStatus(row.Balance, row.IssueDate, imp.now())
		}

		issueDate := ParseISODate(row.IssueDate)

		invoice, err := imp.store.Create(ctx, models.CollectionInvoices, map[string]any{
			"client":      clientID,
			"number":      number,
			"issue_date":  issueDate,
			"due_date":    AddDays(issueDate, 30),
			"status":      status,
			"tax_percent": TaxPercent(row.Tax, subtotal),
			"paid_amount": row.PaidAmount,
			"notes":       strings.TrimSpace(row.Notes),
		})
		if err != nil {
			report.InvoicesFailed++
			report.addError(fmt.Sprintf("invoice #%s: %v", number, err))
			continue
		}

		// Zero-subtotal invoices get no synthetic item. A failed item
		// create leaves the invoice shell in place; there is no
		// compensating delete.
		if subtotal > 0 {
			if err := imp.createItems(ctx, invoice.ID(), items); err != nil {
				report.InvoicesFailed++
				report.addError(fmt.Sprintf("invoice #%s: %v", number, err))
				continue
			}
		}

		report.InvoicesCreated++
		imp.log.Info().
			Str("number", number).
			Str("client", clientName).
			Str("status", status).
			Msg("invoice created")
	}
}

func (imp *Importer) createItems(ctx context.Context, invoiceID string, items []LineItem) error {
	for _, item := range items {
		description := item.Description
		if description == "" {
			description = "Services"
		}
		_, err := imp.store.Create(ctx, models.CollectionInvoiceItems, map[string]any{
			"invoice":     invoiceID,
			"description": description,
			"quantity":    item.Quantity,
			"unit_price":  item.UnitPrice,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
