package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"yield/internal/logger"
)

const harvestPageSize = 100

// HarvestSource pulls billing data straight from the Harvest REST API:
// clients, contacts (email backfill only, first contact per client wins) and
// invoices with their nested line items. Unlike the CSV export, the API
// supplies an authoritative invoice state, so DeriveStatus is bypassed.
type HarvestSource struct {
	AccountID  string
	Token      string
	BaseURL    string
	HTTPClient *http.Client

	log zerolog.Logger
}

func NewHarvestSource(accountID, token, baseURL string) *HarvestSource {
	return &HarvestSource{
		AccountID:  accountID,
		Token:      token,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		log:        logger.WithComponent("harvest"),
	}
}

func (s *HarvestSource) Name() string {
	return "harvest account " + s.AccountID
}

// Envelope fields shared by every paginated Harvest response.
type harvestPage struct {
	Page       int  `json:"page"`
	TotalPages int  `json:"total_pages"`
	NextPage   *int `json:"next_page"`
}

type harvestClient struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Currency string `json:"currency"`
}

type harvestContact struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Client struct {
		ID int64 `json:"id"`
	} `json:"client"`
}

type harvestLineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type harvestInvoice struct {
	ID        int64  `json:"id"`
	Number    string `json:"number"`
	State     string `json:"state"`
	IssueDate string `json:"issue_date"`
	Subject   string `json:"subject"`
	PO        string `json:"purchase_order"`
	Amount    float64 `json:"amount"`
	DueAmount float64 `json:"due_amount"`
	TaxAmount float64 `json:"tax_amount"`
	Client    struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"client"`
	LineItems []harvestLineItem `json:"line_items"`
}

// Rows fetches all three endpoints page by page and joins them into
// normalized rows. Any fetch error aborts: nothing has been written yet.
func (s *HarvestSource) Rows(ctx context.Context) ([]Row, error) {
	const op = "Rows"

	clients, err := s.fetchClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: clients: %w", op, err)
	}

	emails, err := s.fetchContactEmails(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: contacts: %w", op, err)
	}

	invoices, err := s.fetchInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: invoices: %w", op, err)
	}

	s.log.Info().
		Int("clients", len(clients)).
		Int("invoices", len(invoices)).
		Msg("harvest data fetched")

	rows := make([]Row, 0, len(invoices))
	for _, inv := range invoices {
		row := Row{
			Number:          inv.Number,
			ClientName:      inv.Client.Name,
			ClientHarvestID: strconv.FormatInt(inv.Client.ID, 10),
			Subject:         inv.Subject,
			IssueDate:       inv.IssueDate,
			Notes:           inv.PO,
			Tax:             inv.TaxAmount,
			Balance:         inv.DueAmount,
			PaidAmount:      inv.Amount - inv.DueAmount,
			Status:          MapHarvestState(inv.State),
		}
		if c, ok := clients[inv.Client.ID]; ok {
			row.ClientAddress = c.Address
			row.ClientCurrency = c.Currency
		}
		if email, ok := emails[inv.Client.ID]; ok {
			row.ClientEmail = email
		}
		for _, item := range inv.LineItems {
			row.Items = append(row.Items, LineItem{
				Description: item.Description,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
			})
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func (s *HarvestSource) fetchClients(ctx context.Context) (map[int64]harvestClient, error) {
	clients := make(map[int64]harvestClient)
	for page := 1; ; page++ {
		var body struct {
			harvestPage
			Clients []harvestClient `json:"clients"`
		}
		if err := s.get(ctx, "/clients", page, &body); err != nil {
			return nil, err
		}
		for _, c := range body.Clients {
			clients[c.ID] = c
		}
		if body.NextPage == nil {
			return clients, nil
		}
	}
}

func (s *HarvestSource) fetchContactEmails(ctx context.Context) (map[int64]string, error) {
	emails := make(map[int64]string)
	for page := 1; ; page++ {
		var body struct {
			harvestPage
			Contacts []harvestContact `json:"contacts"`
		}
		if err := s.get(ctx, "/contacts", page, &body); err != nil {
			return nil, err
		}
		for _, c := range body.Contacts {
			if c.Email == "" {
				continue
			}
			// First contact per client wins
			if _, ok := emails[c.Client.ID]; !ok {
				emails[c.Client.ID] = c.Email
			}
		}
		if body.NextPage == nil {
			return emails, nil
		}
	}
}

func (s *HarvestSource) fetchInvoices(ctx context.Context) ([]harvestInvoice, error) {
	var invoices []harvestInvoice
	for page := 1; ; page++ {
		var body struct {
			harvestPage
			Invoices []harvestInvoice `json:"invoices"`
		}
		if err := s.get(ctx, "/invoices", page, &body); err != nil {
			return nil, err
		}
		invoices = append(invoices, body.Invoices...)
		if body.NextPage == nil {
			return invoices, nil
		}
	}
}

func (s *HarvestSource) get(ctx context.Context, path string, page int, out any) error {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(harvestPageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = query.Encode()
	req.Header.Set("Harvest-Account-Id", s.AccountID)
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("User-Agent", "yield-import")

	s.log.Debug().Str("path", path).Int("page", page).Msg("fetching")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("harvest request %s failed with status %d: %s", path, resp.StatusCode, string(b))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
