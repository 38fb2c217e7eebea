// Package distance computes driving distances with the Google Distance Matrix API.
package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/eta-consult/quote-api/internal/config"
	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var metresPerKm = decimal.NewFromInt(1000)

// Client never fails into its caller: every problem yields 0 km and a warning
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	logger     *zap.Logger
}

// NewClient creates a new distance client
func NewClient(cfg config.DistanceConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.TimeoutDuration()},
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value int64 `json:"value"` // metres
			} `json:"distance"`
		} `json:"elements"`
	} `json:"rows"`
}

// DrivingDistanceKm returns the driving distance in km rounded to 2 places
func (c *Client) DrivingDistanceKm(ctx context.Context, origin, destination string) decimal.Decimal {
	if c.apiKey == "" {
		c.logger.Warn("Distance API key not configured, using 0 km")
		return decimal.Zero
	}

	km, err := c.lookup(ctx, origin, destination)
	if err != nil {
		c.logger.Warn("Distance lookup failed, using 0 km",
			zap.String("destination", destination),
			zap.Error(err),
		)
		return decimal.Zero
	}

	c.logger.Info("Driving distance computed", zap.String("distance_km", km.String()))
	return km
}

func (c *Client) lookup(ctx context.Context, origin, destination string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("origins", origin)
	params.Set("destinations", destination)
	params.Set("mode", "driving")
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+params.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: create request: %v", domain.ErrExternalLookup, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrExternalLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: status %d", domain.ErrExternalLookup, resp.StatusCode)
	}

	var body matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode response: %v", domain.ErrExternalLookup, err)
	}
	if body.Status != "OK" {
		return decimal.Zero, fmt.Errorf("%w: api status %s %s", domain.ErrExternalLookup, body.Status, body.ErrorMessage)
	}
	if len(body.Rows) == 0 || len(body.Rows[0].Elements) == 0 {
		return decimal.Zero, fmt.Errorf("%w: empty distance matrix", domain.ErrExternalLookup)
	}

	element := body.Rows[0].Elements[0]
	if element.Status != "OK" {
		return decimal.Zero, fmt.Errorf("%w: element status %s", domain.ErrExternalLookup, element.Status)
	}
	if element.Distance.Value < 0 {
		return decimal.Zero, fmt.Errorf("%w: negative distance", domain.ErrExternalLookup)
	}

	return decimal.NewFromInt(element.Distance.Value).Div(metresPerKm).Round(2), nil
}

// Destination formats a building address the way the matrix API resolves it best
func Destination(addr domain.Address) string {
	return fmt.Sprintf("%s, %s %s, Suisse", addr.Street, addr.Postcode, addr.Locality)
}
