package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"yield/internal/importer"
	"yield/internal/logger"
	"yield/internal/pocketbase"
	"yield/pkg/models"
)

// Upload size cap for import files.
const maxImportBytes = 20 << 20

func (app *App) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		app.log.Error().Err(err).Msg("response encoding failed")
	}
}

func (app *App) serverError(w http.ResponseWriter, err error) {
	app.log.Error().Err(err).Msg("internal error")
	app.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (app *App) clientError(w http.ResponseWriter, status int, msg string) {
	app.writeJSON(w, status, map[string]string{"error": msg})
}

func (app *App) health(w http.ResponseWriter, r *http.Request) {
	if err := app.store.Health(r.Context()); err != nil {
		app.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unreachable"})
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// importHarvest accepts a multipart Harvest report upload ("csv" field) and
// runs the import, returning the full report as JSON. Shape problems are 400,
// an unreachable store is 503; per-row failures still return 200 with the
// counters for the caller to judge.
func (app *App) importHarvest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		app.clientError(w, http.StatusBadRequest, "could not read the uploaded file")
		return
	}

	file, header, err := r.FormFile("csv")
	if err != nil {
		app.clientError(w, http.StatusBadRequest, "select a Harvest report export (.csv or .xlsx)")
		return
	}
	defer file.Close()

	name := strings.ToLower(header.Filename)
	if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".xlsx") {
		app.clientError(w, http.StatusBadRequest, "select a Harvest report export (.csv or .xlsx)")
		return
	}

	// Read one byte past the cap so truncation is detectable
	payload, err := io.ReadAll(io.LimitReader(file, maxImportBytes+1))
	if err != nil {
		app.clientError(w, http.StatusBadRequest, "could not read the uploaded file")
		return
	}
	if len(payload) > maxImportBytes {
		app.clientError(w, http.StatusBadRequest, "file exceeds the 20MB upload limit")
		return
	}

	// Imports can run for a while; key the progress logs to the request
	reqLogger := logger.WithRequestID(w.Header().Get("X-Request-ID"))
	reqLogger.Info().
		Str("file", header.Filename).
		Int("bytes", len(payload)).
		Msg("import upload received")

	report, err := app.importer.Run(r.Context(), importer.NewBytesSource(header.Filename, payload))
	if err != nil {
		switch {
		case errors.Is(err, pocketbase.ErrUnreachable):
			app.clientError(w, http.StatusServiceUnavailable, "record store unreachable")
		case errors.Is(err, importer.ErrUnrecognizedReport),
			errors.Is(err, importer.ErrEmptyFile),
			errors.Is(err, importer.ErrUnsupportedFormat):
			app.clientError(w, http.StatusBadRequest, err.Error())
		default:
			app.serverError(w, err)
		}
		return
	}

	app.writeJSON(w, http.StatusOK, report)
}

func (app *App) listClients(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)

	opts := pocketbase.ListOptions{Sort: "name"}
	if r.URL.Query().Get("archived") == "" {
		opts.Filter = "archived = false"
	}

	result, err := app.store.List(r.Context(), models.CollectionClients, page, perPage, opts)
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, result)
}

// createClient quick-creates a client by name. A name that already exists
// returns the existing record instead of a uniqueness error, matching the
// importer's reconciliation semantics.
func (app *App) createClient(w http.ResponseWriter, r *http.Request) {
	var body models.Client
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		app.clientError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		app.clientError(w, http.StatusBadRequest, "name is required")
		return
	}

	existing, err := app.store.FindFirst(r.Context(), models.CollectionClients, pocketbase.FilterEq("name", name))
	if err == nil {
		app.writeJSON(w, http.StatusOK, map[string]any{"client": existing})
		return
	}
	if !errors.Is(err, pocketbase.ErrNotFound) {
		app.serverError(w, err)
		return
	}

	client, err := app.store.Create(r.Context(), models.CollectionClients, map[string]any{
		"name":       name,
		"email":      strings.TrimSpace(body.Email),
		"address":    "",
		"currency":   "USD",
		"harvest_id": "",
		"archived":   false,
	})
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.writeJSON(w, http.StatusCreated, map[string]any{"client": client})
}

func (app *App) listInvoices(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)

	opts := pocketbase.ListOptions{Sort: "-created", Expand: "client"}
	if status := r.URL.Query().Get("status"); status != "" {
		opts.Filter = pocketbase.FilterEq("status", status)
	}

	result, err := app.store.List(r.Context(), models.CollectionInvoices, page, perPage, opts)
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, result)
}

// createDraftInvoice creates an empty draft for a client with a generated
// number. Numbers use a date plus random suffix, so concurrent drafts cannot
// collide with each other or with imported Harvest ids.
func (app *App) createDraftInvoice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClientID string `json:"client_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		app.clientError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.ClientID == "" {
		app.clientError(w, http.StatusBadRequest, "client_id is required")
		return
	}

	today := time.Now().Format("2006-01-02")
	number := fmt.Sprintf("INV-%s-%s",
		strings.ReplaceAll(today, "-", ""),
		uuid.NewString()[:6])

	invoice, err := app.store.Create(r.Context(), models.CollectionInvoices, map[string]any{
		"client":      body.ClientID,
		"number":      number,
		"issue_date":  today,
		"due_date":    importer.AddDays(today, 30),
		"status":      models.StatusDraft,
		"tax_percent": 0,
		"paid_amount": 0,
		"notes":       "",
	})
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.writeJSON(w, http.StatusCreated, map[string]any{"invoice": invoice})
}

// getInvoice returns one invoice with its line items and computed totals.
func (app *App) getInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID := r.URL.Query().Get(":id")

	record, err := app.store.FindFirst(r.Context(), models.CollectionInvoices, pocketbase.FilterEq("id", invoiceID))
	if err != nil {
		if errors.Is(err, pocketbase.ErrNotFound) {
			app.clientError(w, http.StatusNotFound, "invoice not found")
			return
		}
		app.serverError(w, err)
		return
	}

	invoice := models.Invoice{
		ID:         record.ID(),
		Client:     record.GetString("client"),
		Number:     record.GetString("number"),
		IssueDate:  record.GetString("issue_date"),
		DueDate:    record.GetString("due_date"),
		Status:     record.GetString("status"),
		TaxPercent: record.GetFloat("tax_percent"),
		PaidAmount: record.GetFloat("paid_amount"),
		Notes:      record.GetString("notes"),
	}

	result, err := app.store.List(r.Context(), models.CollectionInvoiceItems, 1, 200, pocketbase.ListOptions{
		Filter: pocketbase.FilterEq("invoice", invoiceID),
	})
	if err != nil {
		app.serverError(w, err)
		return
	}

	items := make([]models.InvoiceItem, 0, len(result.Items))
	for _, itemRecord := range result.Items {
		items = append(items, models.InvoiceItem{
			ID:          itemRecord.ID(),
			Invoice:     invoiceID,
			Description: itemRecord.GetString("description"),
			Quantity:    itemRecord.GetFloat("quantity"),
			UnitPrice:   itemRecord.GetFloat("unit_price"),
		})
	}

	subtotal := models.Subtotal(items)
	total := subtotal + subtotal*invoice.TaxPercent/100

	app.writeJSON(w, http.StatusOK, map[string]any{
		"invoice":  invoice,
		"items":    items,
		"subtotal": subtotal,
		"total":    total,
	})
}

func (app *App) addInvoiceItem(w http.ResponseWriter, r *http.Request) {
	invoiceID := r.URL.Query().Get(":id")

	var body models.InvoiceItem
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		app.clientError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	description := strings.TrimSpace(body.Description)
	if description == "" {
		app.clientError(w, http.StatusBadRequest, "description is required")
		return
	}

	if _, err := app.store.FindFirst(r.Context(), models.CollectionInvoices, pocketbase.FilterEq("id", invoiceID)); err != nil {
		if errors.Is(err, pocketbase.ErrNotFound) {
			app.clientError(w, http.StatusNotFound, "invoice not found")
			return
		}
		app.serverError(w, err)
		return
	}

	quantity := body.Quantity
	if quantity == 0 {
		quantity = 1
	}

	item, err := app.store.Create(r.Context(), models.CollectionInvoiceItems, map[string]any{
		"invoice":     invoiceID,
		"description": description,
		"quantity":    quantity,
		"unit_price":  body.UnitPrice,
	})
	if err != nil {
		app.serverError(w, err)
		return
	}

	app.writeJSON(w, http.StatusCreated, map[string]any{"invoice_id": invoiceID, "item_id": item.ID()})
}

// resetData wipes imported data in dependency order: items, then invoices,
// then clients. Intended for starting an import over on a scratch store.
func (app *App) resetData(w http.ResponseWriter, r *http.Request) {
	collections := []string{
		models.CollectionInvoiceItems,
		models.CollectionInvoices,
		models.CollectionClients,
	}
	for _, collection := range collections {
		if err := app.deleteAll(r.Context(), collection); err != nil {
			app.serverError(w, fmt.Errorf("reset failed for %s: %w", collection, err))
			return
		}
	}
	app.writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

func (app *App) deleteAll(ctx context.Context, collection string) error {
	for {
		result, err := app.store.List(ctx, collection, 1, 200, pocketbase.ListOptions{})
		if err != nil {
			return err
		}
		if len(result.Items) == 0 {
			return nil
		}
		for _, record := range result.Items {
			if err := app.store.Delete(ctx, collection, record.ID()); err != nil {
				return err
			}
		}
		if len(result.Items) < 200 {
			return nil
		}
	}
}

func pagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}
	return page, perPage
}
