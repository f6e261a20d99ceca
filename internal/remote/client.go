// Package remote implements the HTTP client for the finance tracker's
// remote API.
//
// Every endpoint wraps its result in a common envelope:
//
//	{"success": true, "data": ..., "message": "", "error": "", "code": 0}
//
// The engine only ever reads the data field; everything else feeds the
// error path. Timeout policy is owned by the injected http.Client; the
// engine adds no timeout layer of its own.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avasilenko/pocketledger/internal/model"
)

// APIError is a failure reported by the remote API, either as a non-2xx
// response or a success=false envelope.
type APIError struct {
	Status  int    // HTTP status code
	Code    int    // application error code from the envelope
	Message string // human-readable message from the envelope
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote API error (status %d, code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("remote API error (status %d, code %d)", e.Status, e.Code)
}

// envelope is the common response wrapper used by all endpoints.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    int             `json:"code"`
}

// Client talks to the remote entity CRUD endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// New creates a remote API client.
//
// If httpClient is nil, a default client with a 30s timeout is used.
// If logger is nil, a default logger writing to stderr is used.
func New(baseURL string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// Ping checks whether the remote API is reachable. Used by the
// connectivity probe.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}

// Create uploads a new entity (CREATE → POST /{collection}).
func (c *Client) Create(ctx context.Context, e model.Entity) error {
	path := "/" + e.EntityKind().Collection()
	return c.do(ctx, http.MethodPost, path, e, nil)
}

// Update uploads a changed entity (UPDATE → PUT /{collection}/{id}).
func (c *Client) Update(ctx context.Context, e model.Entity) error {
	path := fmt.Sprintf("/%s/%s", e.EntityKind().Collection(), e.EntityID())
	return c.do(ctx, http.MethodPut, path, e, nil)
}

// Delete removes an entity remotely (DELETE → DELETE /{collection}/{id}).
func (c *Client) Delete(ctx context.Context, kind model.Kind, id string) error {
	path := fmt.Sprintf("/%s/%s", kind.Collection(), id)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// FetchTransactions downloads the full transaction collection.
// The API offers no delta endpoint; every download is a full pull.
func (c *Client) FetchTransactions(ctx context.Context) ([]*model.Transaction, error) {
	var out []*model.Transaction
	if err := c.do(ctx, http.MethodGet, "/transactions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchTags downloads the full tag collection.
func (c *Client) FetchTags(ctx context.Context) ([]*model.Tag, error) {
	var out []*model.Tag
	if err := c.do(ctx, http.MethodGet, "/tags", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchGoals downloads the full goal collection.
func (c *Client) FetchGoals(ctx context.Context) ([]*model.Goal, error) {
	var out []*model.Goal
	if err := c.do(ctx, http.MethodGet, "/goals", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchFixedExpenses downloads the full fixed-expense collection.
func (c *Client) FetchFixedExpenses(ctx context.Context) ([]*model.FixedExpense, error) {
	var out []*model.FixedExpense
	if err := c.do(ctx, http.MethodGet, "/fixed-expenses", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// do issues one request and decodes the envelope. When out is non-nil
// the envelope's data field is unmarshalled into it.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s %s: %w", method, path, err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("failed to decode response from %s %s: %w", method, path, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || (len(raw) > 0 && !env.Success) {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode data from %s %s: %w", method, path, err)
		}
	}
	return nil
}
