package service

import (
	"fmt"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// Plausibility limits; values above them are priced but logged
	warnDistanceKm = decimal.NewFromInt(500)
	warnSurfaceM2  = decimal.NewFromInt(200000)
)

// RoundCurrency rounds to whole currency units, halves away from zero.
// Monetary inputs are never negative, so this is half-up.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// EquivalentFloors sums the above-ground floor count with the basement and
// attic heating coefficients.
func EquivalentFloors(aboveGroundFloors int, basement, attic domain.HeatingState) decimal.Decimal {
	return decimal.NewFromInt(int64(aboveGroundFloors)).
		Add(basement.Coefficient()).
		Add(attic.Coefficient())
}

// EquivalentSurface is equivalent floors times ground area
func EquivalentSurface(equivalentFloors, groundArea decimal.Decimal) (decimal.Decimal, error) {
	if !groundArea.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: ground area must be positive, got %s", domain.ErrInvalidBuildingData, groundArea)
	}
	return equivalentFloors.Mul(groundArea), nil
}

// PricingEngine turns geometry, distance and a tariff snapshot into unit prices.
// It performs no I/O.
type PricingEngine struct {
	tariffs domain.Tariffs
	scheme  domain.PlusScheme
	logger  *zap.Logger
}

// NewPricingEngine validates the tariffs and binds them to an engine
func NewPricingEngine(tariffs domain.Tariffs, logger *zap.Logger) (*PricingEngine, error) {
	if err := tariffs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tariffs: %w", err)
	}
	scheme, err := tariffs.PlusScheme()
	if err != nil {
		return nil, err
	}
	return &PricingEngine{
		tariffs: tariffs.Clone(),
		scheme:  scheme,
		logger:  logger,
	}, nil
}

// BasicPrice computes round(base + distance*km_factor + surface*surface_factor).
// Factors switch at their threshold with strict less-than: a value equal to the
// threshold takes the "far"/"large" factor.
func (e *PricingEngine) BasicPrice(distanceKm, equivalentSurface decimal.Decimal) (decimal.Decimal, error) {
	if distanceKm.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: distance must not be negative, got %s", domain.ErrInvalidPricingInput, distanceKm)
	}
	if !equivalentSurface.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: equivalent surface must be positive, got %s", domain.ErrInvalidPricingInput, equivalentSurface)
	}
	if distanceKm.GreaterThan(warnDistanceKm) {
		e.logger.Warn("Unusually long distance", zap.String("distance_km", distanceKm.String()))
	}
	if equivalentSurface.GreaterThan(warnSurfaceM2) {
		e.logger.Warn("Unusually large equivalent surface", zap.String("surface_m2", equivalentSurface.String()))
	}

	base := e.tariffs[domain.TariffBasePrice]

	kmFactor := e.tariffs[domain.TariffKmFactorFar]
	if distanceKm.LessThan(e.tariffs[domain.TariffKmThreshold]) {
		kmFactor = e.tariffs[domain.TariffKmFactorNear]
	}

	surfaceFactor := e.tariffs[domain.TariffSurfaceFactorLarge]
	if equivalentSurface.LessThan(e.tariffs[domain.TariffSurfaceThreshold]) {
		surfaceFactor = e.tariffs[domain.TariffSurfaceFactorSmall]
	}

	raw := base.Add(distanceKm.Mul(kmFactor)).Add(equivalentSurface.Mul(surfaceFactor))

	e.logger.Debug("Basic price computed",
		zap.String("distance_km", distanceKm.String()),
		zap.String("equivalent_surface", equivalentSurface.String()),
		zap.String("km_factor", kmFactor.String()),
		zap.String("surface_factor", surfaceFactor.String()),
		zap.String("raw", raw.String()),
	)

	return RoundCurrency(raw), nil
}

// PlusFactor returns the multiplier for the configured scheme. The tiered
// scheme selects on equivalent surface: below plus_seuil_petit is "petit",
// below plus_seuil_grand is "moyen", anything else "grand".
func (e *PricingEngine) PlusFactor(equivalentSurface decimal.Decimal) decimal.Decimal {
	if e.scheme == domain.PlusSchemeFlat {
		return e.tariffs[domain.TariffPlusFactor]
	}
	switch {
	case equivalentSurface.LessThan(e.tariffs[domain.TariffPlusThresholdSmall]):
		return e.tariffs[domain.TariffPlusFactorSmall]
	case equivalentSurface.LessThan(e.tariffs[domain.TariffPlusThresholdLarge]):
		return e.tariffs[domain.TariffPlusFactorMedium]
	default:
		return e.tariffs[domain.TariffPlusFactorLarge]
	}
}

// PlusPrice computes min(plus_price_max, round(basic * plus factor))
func (e *PricingEngine) PlusPrice(basicPrice, equivalentSurface decimal.Decimal) (decimal.Decimal, error) {
	if basicPrice.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: basic price must not be negative, got %s", domain.ErrInvalidPricingInput, basicPrice)
	}
	price := RoundCurrency(basicPrice.Mul(e.PlusFactor(equivalentSurface)))
	return decimal.Min(price, e.tariffs[domain.TariffPlusPriceMax]), nil
}

// DeadlineSurcharge looks up the execution surcharge for a tier.
// Unrecognized tiers are treated as Normal.
func (e *PricingEngine) DeadlineSurcharge(tier domain.DeadlineTier) (decimal.Decimal, string) {
	switch tier {
	case domain.DeadlineExpress:
		return e.tariffs[domain.TariffDeadlineExpress], string(domain.DeadlineExpress)
	case domain.DeadlineUrgent:
		return e.tariffs[domain.TariffDeadlineUrgent], string(domain.DeadlineUrgent)
	default:
		return e.tariffs[domain.TariffDeadlineNormal], string(domain.DeadlineNormal)
	}
}

// Price runs every formula for one quote. The form's floor override takes
// precedence over the registry floor count.
func (e *PricingEngine) Price(building domain.BuildingAttributes, form domain.FormInput, distanceKm decimal.Decimal) (domain.PricingResult, error) {
	floors := building.AboveGroundFloors
	if form.FloorsOverride != nil {
		floors = *form.FloorsOverride
	}

	eqFloors := EquivalentFloors(floors, form.BasementState, form.AtticState)
	eqSurface, err := EquivalentSurface(eqFloors, building.GroundArea)
	if err != nil {
		return domain.PricingResult{}, err
	}

	basic, err := e.BasicPrice(distanceKm, eqSurface)
	if err != nil {
		return domain.PricingResult{}, err
	}

	plus := decimal.Zero
	if form.CertificateType == domain.CertificatePlus {
		if plus, err = e.PlusPrice(basic, eqSurface); err != nil {
			return domain.PricingResult{}, err
		}
	}

	surcharge, label := e.DeadlineSurcharge(form.Deadline)

	return domain.PricingResult{
		EquivalentFloors:   eqFloors,
		EquivalentSurface:  eqSurface,
		DistanceKm:         distanceKm,
		BasicUnitPrice:     basic,
		PlusUnitPrice:      plus,
		ExecutionSurcharge: surcharge,
		DeadlineLabel:      label,
	}, nil
}
