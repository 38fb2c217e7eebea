package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NotAvailable marks a registry identifier that could not be determined
const NotAvailable = "N/A"

// DefaultLayerName is the registry layer label printed on quotes
const DefaultLayerName = "Bâtiment"

// Address is a Swiss postal address
type Address struct {
	Street   string `json:"street"`
	Postcode string `json:"postcode"`
	Locality string `json:"locality"`
}

// IsZero reports whether no part of the address is set
func (a Address) IsZero() bool {
	return a.Street == "" && a.Postcode == "" && a.Locality == ""
}

// String formats the address for geocoding ("street, postcode locality")
func (a Address) String() string {
	return fmt.Sprintf("%s, %s %s", a.Street, a.Postcode, a.Locality)
}

// CacheKey normalizes the address for lookups: trimmed, lower-cased,
// inner whitespace collapsed.
func (a Address) CacheKey() string {
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return norm(a.Street) + "|" + norm(a.Postcode) + "|" + norm(a.Locality)
}

// BuildingAttributes are the registry facts used for pricing and quote text
type BuildingAttributes struct {
	EGID              string          `json:"egid"`
	GroundArea        decimal.Decimal `json:"groundArea"`
	AboveGroundFloors int             `json:"aboveGroundFloors"`
	ConstructionYear  string          `json:"constructionYear"`
	ParcelNumber      string          `json:"parcelNumber"`
	BuildingNumber    string          `json:"buildingNumber"`
	LayerName         string          `json:"layerName"`
	// FromRegistry is false when the attributes are the documented defaults
	FromRegistry bool `json:"fromRegistry"`
}

// DefaultBuilding is used when the registry has no usable record
func DefaultBuilding() BuildingAttributes {
	return BuildingAttributes{
		EGID:              NotAvailable,
		GroundArea:        decimal.NewFromInt(100),
		AboveGroundFloors: 2,
		ConstructionYear:  NotAvailable,
		ParcelNumber:      NotAvailable,
		BuildingNumber:    NotAvailable,
		LayerName:         DefaultLayerName,
	}
}

// Validate checks the invariants pricing relies on
func (b BuildingAttributes) Validate() error {
	if !b.GroundArea.IsPositive() {
		return fmt.Errorf("%w: ground area must be positive, got %s", ErrInvalidBuildingData, b.GroundArea)
	}
	if b.AboveGroundFloors < 0 {
		return fmt.Errorf("%w: floor count must not be negative, got %d", ErrInvalidBuildingData, b.AboveGroundFloors)
	}
	return nil
}
