// Package server exposes the invoicing API over HTTP: the in-app Harvest
// import plus thin JSON CRUD glue over the record store.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"yield/internal/importer"
	"yield/internal/logger"
	"yield/internal/pocketbase"
)

// Store is the record store surface the handlers need. *pocketbase.Client
// satisfies it; tests substitute a fake.
type Store interface {
	importer.Store
	List(ctx context.Context, collection string, page, perPage int, opts pocketbase.ListOptions) (*pocketbase.ListResult, error)
	Delete(ctx context.Context, collection, id string) error
}

type App struct {
	store    Store
	importer *importer.Importer
	log      zerolog.Logger
}

func New(store Store) *App {
	return &App{
		store:    store,
		importer: importer.New(store),
		log:      logger.WithComponent("server"),
	}
}

// Routes wires the handler chain: panic recovery, request id, request
// logging, security headers, JSON content type, CORS.
func (app *App) Routes() http.Handler {
	standard := alice.New(app.recoverPanic, app.requestID, app.logRequest, secureHeaders, jsonResponse)

	mux := pat.New()

	mux.Get("/api/health", standard.ThenFunc(app.health))

	mux.Post("/api/import/harvest", standard.ThenFunc(app.importHarvest))
	mux.Post("/api/reset", standard.ThenFunc(app.resetData))

	mux.Get("/api/clients", standard.ThenFunc(app.listClients))
	mux.Post("/api/clients", standard.ThenFunc(app.createClient))

	mux.Get("/api/invoices", standard.ThenFunc(app.listInvoices))
	mux.Post("/api/invoices/draft", standard.ThenFunc(app.createDraftInvoice))
	mux.Get("/api/invoices/:id", standard.ThenFunc(app.getInvoice))
	mux.Post("/api/invoices/:id/items", standard.ThenFunc(app.addInvoiceItem))

	return cors.Default().Handler(mux)
}

// ListenAndServe runs the HTTP server until the listener fails.
func (app *App) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  time.Minute,
	}
	app.log.Info().Str("addr", addr).Msg("listening")
	return srv.ListenAndServe()
}
