// Package rest implements the generic data-access client for the hosted
// relational store's REST interface (PostgREST dialect): single-statement
// select/insert/update/delete against named tables, authenticated with the
// service-level credential.
//
// The client offers no retries, no batching, and no transactions. Callers
// performing multi-row transitions sequence their own writes and compensate
// on partial failure.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// DataError is returned for any non-2xx response from the store.
type DataError struct {
	Status int
	Body   string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data access: status %d: %s", e.Status, e.Body)
}

// Client talks to the store's REST endpoint with the service key, which
// bypasses row-level security. End-user tokens never reach this layer;
// authorisation happens in the services before any write.
type Client struct {
	baseURL    string
	serviceKey string
	httpc      *http.Client
}

// NewClient creates a Client for the store at baseURL (project root, without
// the /rest/v1 suffix).
func NewClient(baseURL, serviceKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpc:      &http.Client{Timeout: timeout},
	}
}

// Select returns the raw JSON array of rows matching query.
func (c *Client) Select(ctx context.Context, table string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, c.tableURL(table, query), nil)
}

// Insert writes one row and returns the JSON array holding the created row
// (Prefer: return=representation).
func (c *Client) Insert(ctx context.Context, table string, payload any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, c.tableURL(table, nil), payload)
}

// Update patches all rows matching filters and returns the JSON array of
// updated rows. An empty array means no row matched — callers using
// conditional filters treat that as a concurrent-modification signal.
func (c *Client) Update(ctx context.Context, table string, filters map[string]string, payload any) ([]byte, error) {
	return c.do(ctx, http.MethodPatch, c.tableURL(table, filterQuery(filters)), payload)
}

// Delete removes all rows matching filters.
func (c *Client) Delete(ctx context.Context, table string, filters map[string]string) error {
	_, err := c.do(ctx, http.MethodDelete, c.tableURL(table, filterQuery(filters)), nil)
	return err
}

func (c *Client) tableURL(table string, query url.Values) string {
	u := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func filterQuery(filters map[string]string) url.Values {
	q := url.Values{}
	for column, value := range filters {
		q.Set(column, "eq."+value)
	}
	return q
}

func (c *Client) do(ctx context.Context, method, rawURL string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("data access: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("data access: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DataError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}
