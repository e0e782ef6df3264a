// Package pocketbase is a minimal client for the PocketBase record API:
// named collections of JSON records with filterable list queries. Only the
// surface the application needs is implemented (auth, find, create, update,
// delete, paginated list, health).
package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"yield/internal/logger"
)

// Record is a raw record as returned by the store. Field access goes through
// the typed getters; absent fields yield zero values.
type Record map[string]any

// ID returns the record id.
func (r Record) ID() string { return r.GetString("id") }

// GetString returns the named field as a string, or "" when absent.
func (r Record) GetString(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// GetFloat returns the named field as a float64, or 0 when absent.
func (r Record) GetFloat(key string) float64 {
	if v, ok := r[key].(float64); ok {
		return v
	}
	return 0
}

// GetBool returns the named field as a bool, or false when absent.
func (r Record) GetBool(key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}

// ListResult is one page of a collection listing.
type ListResult struct {
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalItems int      `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
	Items      []Record `json:"items"`
}

// ListOptions narrows a List call. Zero values are omitted from the query.
type ListOptions struct {
	Filter string
	Sort   string
	Expand string
}

type authResponse struct {
	Token string `json:"token"`
}

// Client talks to a single PocketBase instance as an administrator. It is
// safe for concurrent use; the cached auth token is guarded by mu because
// the HTTP server shares one Client across request handlers.
type Client struct {
	BaseURL    string
	Email      string
	Password   string
	HTTPClient *http.Client

	mu    sync.Mutex
	token string

	log zerolog.Logger
}

func NewClient(baseURL, email, password string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Email:      email,
		Password:   password,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger.WithComponent("pocketbase"),
	}
}

// Authenticate obtains an admin token via the superusers password flow.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticate(ctx)
}

// authenticate must be called with mu held.
func (c *Client) authenticate(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{
		"identity": c.Email,
		"password": c.Password,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/api/collections/_superusers/auth-with-password", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("admin authentication failed: %s", strings.TrimSpace(string(b)))
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return err
	}

	c.token = auth.Token
	c.log.Debug().Msg("authenticated as admin")
	return nil
}

// ensureToken returns the cached token, authenticating first if none is held.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		if err := c.authenticate(ctx); err != nil {
			return "", err
		}
	}
	return c.token, nil
}

// refreshToken replaces a token the store rejected. When another request
// already re-authenticated, the newer token is returned without a second
// auth round trip.
func (c *Client) refreshToken(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == stale {
		if err := c.authenticate(ctx); err != nil {
			return "", err
		}
	}
	return c.token, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) (*http.Response, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	build := func(token string) (*http.Request, error) {
		var body io.Reader
		if payload != nil {
			b, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			body = bytes.NewReader(b)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
		if err != nil {
			return nil, err
		}
		if query != nil {
			req.URL.RawQuery = query.Encode()
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Authorization", token)
		return req, nil
	}

	req, err := build(token)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	// Re-authenticate once on an expired token
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.log.Debug().Msg("token rejected, re-authenticating")
		token, err = c.refreshToken(ctx, token)
		if err != nil {
			return nil, err
		}
		req, err = build(token)
		if err != nil {
			return nil, err
		}
		resp, err = c.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}

	return resp, nil
}

// List fetches one page of a collection.
func (c *Client) List(ctx context.Context, collection string, page, perPage int, opts ListOptions) (*ListResult, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("perPage", strconv.Itoa(perPage))
	if opts.Filter != "" {
		query.Set("filter", opts.Filter)
	}
	if opts.Sort != "" {
		query.Set("sort", opts.Sort)
	}
	if opts.Expand != "" {
		query.Set("expand", opts.Expand)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/collections/"+collection+"/records", query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result ListResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FindFirst returns the first record matching filter, or ErrNotFound.
func (c *Client) FindFirst(ctx context.Context, collection, filter string) (Record, error) {
	result, err := c.List(ctx, collection, 1, 1, ListOptions{Filter: filter})
	if err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, ErrNotFound
	}
	return result.Items[0], nil
}

// Create inserts a record and returns it as stored.
func (c *Client) Create(ctx context.Context, collection string, fields map[string]any) (Record, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/collections/"+collection+"/records", nil, fields)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var record Record
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, err
	}
	return record, nil
}

// Update patches a record by id and returns the updated record.
func (c *Client) Update(ctx context.Context, collection, id string, fields map[string]any) (Record, error) {
	resp, err := c.doRequest(ctx, http.MethodPatch, "/api/collections/"+collection+"/records/"+id, nil, fields)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var record Record
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a record by id.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/api/collections/"+collection+"/records/"+id, nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Health checks that the store is reachable. Unlike the record endpoints it
// needs no auth token.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}
	return nil
}

// FilterEq builds a `field = "value"` filter expression with the value quoted
// and escaped, matching the store's filter syntax.
func FilterEq(field, value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return field + ` = "` + escaped + `"`
}
