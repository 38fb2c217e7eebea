package domain

import "github.com/shopspring/decimal"

// PricingResult holds the priced components of one quote computation
type PricingResult struct {
	EquivalentFloors   decimal.Decimal `json:"equivalentFloors"`
	EquivalentSurface  decimal.Decimal `json:"equivalentSurface"`
	DistanceKm         decimal.Decimal `json:"distanceKm"`
	BasicUnitPrice     decimal.Decimal `json:"basicUnitPrice"`
	PlusUnitPrice      decimal.Decimal `json:"plusUnitPrice"`
	ExecutionSurcharge decimal.Decimal `json:"executionSurcharge"`
	DeadlineLabel      string          `json:"deadlineLabel"`
}
