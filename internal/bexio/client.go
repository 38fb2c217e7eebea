// Package bexio is the accounting API client: counterparts, their
// relations and quote documents.
package bexio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/eta-consult/quote-api/internal/config"
	"github.com/eta-consult/quote-api/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxErrorBody = 2048

// ErrUnavailable marks an accounting call that got no usable answer: the API
// was unreachable or its reply could not be decoded.
var ErrUnavailable = errors.New("accounting API unavailable")

// APIError is a non-2xx answer from the accounting API
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bexio %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks JSON to the accounting API. Calls are throttled and never retried.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a new accounting API client
func NewClient(cfg config.AccountingConfig, logger *zap.Logger) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.TimeoutDuration()},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}
}

// SearchCounterparts runs a free-text search over the contact directory
func (c *Client) SearchCounterparts(ctx context.Context, term string) ([]domain.Counterpart, error) {
	var out []domain.Counterpart
	err := c.do(ctx, http.MethodGet, "/2.0/contact", url.Values{"search": {term}}, nil, &out)
	return out, err
}

// CreateCounterpart creates a contact. The API ignores the street address here.
func (c *Client) CreateCounterpart(ctx context.Context, cp domain.Counterpart) (domain.Counterpart, error) {
	cp.ID = 0
	cp.Address = ""
	var out domain.Counterpart
	err := c.do(ctx, http.MethodPost, "/2.0/contact", nil, cp, &out)
	return out, err
}

// UpdateCounterpart patches the given fields of a contact
func (c *Client) UpdateCounterpart(ctx context.Context, id int, fields map[string]interface{}) (domain.Counterpart, error) {
	var out domain.Counterpart
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/2.0/contact/%d", id), nil, fields, &out)
	return out, err
}

// ListRelations lists the people linked to a company contact
func (c *Client) ListRelations(ctx context.Context, companyID int) ([]domain.CounterpartRelation, error) {
	var out []domain.CounterpartRelation
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/2.0/contact/%d/contact_relation", companyID), nil, nil, &out)
	return out, err
}

// CreateRelation links a person to a company contact
func (c *Client) CreateRelation(ctx context.Context, companyID int, rel domain.CounterpartRelation) (domain.CounterpartRelation, error) {
	body := map[string]interface{}{
		"contact_sub_id": rel.ContactSubID,
		"description":    rel.Description,
	}
	var out domain.CounterpartRelation
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/2.0/contact/%d/contact_relation", companyID), nil, body, &out)
	return out, err
}

// CreateQuote submits a quote document
func (c *Client) CreateQuote(ctx context.Context, payload domain.QuotePayload) (domain.QuoteReceipt, error) {
	var out domain.QuoteReceipt
	err := c.do(ctx, http.MethodPost, "/2.0/kb_offer", nil, payload, &out)
	return out, err
}

// Ping checks that the token is accepted
func (c *Client) Ping(ctx context.Context) error {
	var out []json.RawMessage
	return c.do(ctx, http.MethodGet, "/2.0/contact", url.Values{"limit": {"1"}}, nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Accounting API request", zap.String("method", method), zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Accounting API request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		// a cancelled or expired caller context keeps its own meaning
		if ctx.Err() != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		c.logger.Error("Accounting API error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", ErrUnavailable, method, path, err)
	}
	return nil
}
