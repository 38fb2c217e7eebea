// Package geodata looks up building attributes in the federal building
// register through the geo.admin.ch REST services.
package geodata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/eta-consult/quote-api/internal/config"
	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Provider resolves an address to building attributes
type Provider interface {
	Lookup(ctx context.Context, addr domain.Address) (domain.BuildingAttributes, error)
}

// Client queries SearchServer for a feature id, then MapServer for its attributes
type Client struct {
	httpClient *http.Client
	searchURL  string
	featureURL string
	layer      string
	logger     *zap.Logger
}

// NewClient creates a new geo.admin.ch client
func NewClient(cfg config.GeoDataConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.TimeoutDuration()},
		searchURL:  strings.TrimRight(cfg.SearchURL, "/"),
		featureURL: strings.TrimRight(cfg.FeatureURL, "/"),
		layer:      cfg.Layer,
		logger:     logger,
	}
}

type searchResponse struct {
	Results []struct {
		Attrs struct {
			FeatureID  json.RawMessage `json:"featureId"`
			FeatureID2 json.RawMessage `json:"feature_id"`
			Lat        float64         `json:"lat"`
			Lon        float64         `json:"lon"`
		} `json:"attrs"`
	} `json:"results"`
}

type featureResponse struct {
	Feature struct {
		Attributes map[string]interface{} `json:"attributes"`
		Properties map[string]interface{} `json:"properties"`
	} `json:"feature"`
}

// Lookup returns ErrBuildingNotFound when the register has no usable match
// and ErrExternalLookup when the service cannot be reached or decoded.
func (c *Client) Lookup(ctx context.Context, addr domain.Address) (domain.BuildingAttributes, error) {
	featureID, err := c.search(ctx, addr)
	if err != nil {
		return domain.BuildingAttributes{}, err
	}

	attrs, err := c.feature(ctx, featureID)
	if err != nil {
		return domain.BuildingAttributes{}, err
	}

	building := toBuilding(attrs)
	if !building.GroundArea.IsPositive() {
		return domain.BuildingAttributes{}, fmt.Errorf("%w: %s has no ground area", domain.ErrBuildingNotFound, addr)
	}

	c.logger.Info("Building found",
		zap.String("egid", building.EGID),
		zap.String("ground_area", building.GroundArea.String()),
		zap.Int("floors", building.AboveGroundFloors),
	)
	return building, nil
}

func (c *Client) search(ctx context.Context, addr domain.Address) (string, error) {
	params := url.Values{}
	params.Set("searchText", addr.String())
	params.Set("lang", "fr")
	params.Set("type", "featuresearch")
	params.Set("features", c.layer)

	var resp searchResponse
	if err := c.getJSON(ctx, c.searchURL+"?"+params.Encode(), &resp); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrBuildingNotFound, addr)
	}

	attrs := resp.Results[0].Attrs
	featureID := rawID(attrs.FeatureID)
	if featureID == "" {
		featureID = rawID(attrs.FeatureID2)
	}
	if featureID == "" {
		return "", fmt.Errorf("%w: %s has no feature id", domain.ErrBuildingNotFound, addr)
	}
	return featureID, nil
}

func (c *Client) feature(ctx context.Context, featureID string) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("lang", "fr")
	params.Set("sr", "4326")

	reqURL := fmt.Sprintf("%s/%s/%s?%s", c.featureURL, url.PathEscape(c.layer), url.PathEscape(featureID), params.Encode())

	var resp featureResponse
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, err
	}
	if resp.Feature.Attributes != nil {
		return resp.Feature.Attributes, nil
	}
	if resp.Feature.Properties != nil {
		return resp.Feature.Properties, nil
	}
	return nil, fmt.Errorf("%w: feature %s has no attributes", domain.ErrBuildingNotFound, featureID)
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", domain.ErrExternalLookup, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExternalLookup, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrBuildingNotFound, req.URL.Path)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: geo.admin.ch returned status %d", domain.ErrExternalLookup, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrExternalLookup, err)
	}
	return nil
}

// rawID accepts both numeric and string feature ids
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func toBuilding(attrs map[string]interface{}) domain.BuildingAttributes {
	b := domain.BuildingAttributes{
		EGID:             stringAttr(attrs, "egid"),
		GroundArea:       decimalAttr(attrs, "garea"),
		ConstructionYear: stringAttr(attrs, "gbauj"),
		ParcelNumber:     stringAttr(attrs, "lparz"),
		BuildingNumber:   stringAttr(attrs, "gebnr"),
		LayerName:        domain.DefaultLayerName,
		FromRegistry:     true,
	}
	if floors := decimalAttr(attrs, "gastw"); floors.IsPositive() {
		b.AboveGroundFloors = int(floors.IntPart())
	}
	return b
}

func stringAttr(attrs map[string]interface{}, key string) string {
	switch v := attrs[key].(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return domain.NotAvailable
}

func decimalAttr(attrs map[string]interface{}, key string) decimal.Decimal {
	switch v := attrs[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return decimal.Zero
}
