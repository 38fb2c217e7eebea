package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Tariff keys
const (
	TariffBasePrice          = "base_price"
	TariffKmFactorNear       = "km_factor_proche"
	TariffKmFactorFar        = "km_factor_loin"
	TariffKmThreshold        = "km_seuil"
	TariffSurfaceFactorSmall = "surface_factor_petit"
	TariffSurfaceFactorLarge = "surface_factor_grand"
	TariffSurfaceThreshold   = "surface_seuil"

	TariffPlusFactor           = "plus_factor"
	TariffPlusFactorSmall      = "plus_factor_petit"
	TariffPlusFactorMedium     = "plus_factor_moyen"
	TariffPlusFactorLarge      = "plus_factor_grand"
	TariffPlusThresholdSmall   = "plus_seuil_petit"
	TariffPlusThresholdLarge   = "plus_seuil_grand"
	TariffPlusPriceMax         = "plus_price_max"
	TariffEmissionFee          = "frais_emission_cecb"
	TariffPlusEmissionFee      = "frais_emission_cecb_plus"
	TariffTransferFee          = "frais_transfert_cecb"
	TariffAdvisoryDebrief      = "conseil_restitution_cecb_plus"
	TariffSubsidyApplication   = "demande_subvention_cecb_plus"
	TariffIncentiveAdvicePrice = "prix_conseil_incitatif"

	TariffDeadlineNormal  = "forfait_normal"
	TariffDeadlineExpress = "forfait_express"
	TariffDeadlineUrgent  = "forfait_urgent"

	TariffDownPaymentPct = "pct_acompte"
)

var essentialTariffs = []string{
	TariffBasePrice,
	TariffKmFactorNear, TariffKmFactorFar, TariffKmThreshold,
	TariffSurfaceFactorSmall, TariffSurfaceFactorLarge, TariffSurfaceThreshold,
	TariffPlusPriceMax,
	TariffEmissionFee,
	TariffDeadlineNormal, TariffDeadlineExpress, TariffDeadlineUrgent,
	TariffDownPaymentPct,
}

var tieredPlusTariffs = []string{
	TariffPlusFactorSmall, TariffPlusFactorMedium, TariffPlusFactorLarge,
	TariffPlusThresholdSmall, TariffPlusThresholdLarge,
}

// Tariffs maps named pricing parameters to their values. A Tariffs value is
// treated as immutable once handed to a pricing run.
type Tariffs map[string]decimal.Decimal

// Get returns the value for key or a MissingTariffError
func (t Tariffs) Get(key string) (decimal.Decimal, error) {
	v, ok := t[key]
	if !ok {
		return decimal.Zero, &MissingTariffError{Key: key}
	}
	return v, nil
}

// GetOr returns the value for key, or def when absent
func (t Tariffs) GetOr(key string, def decimal.Decimal) decimal.Decimal {
	if v, ok := t[key]; ok {
		return v
	}
	return def
}

// Has reports whether key is configured
func (t Tariffs) Has(key string) bool {
	_, ok := t[key]
	return ok
}

// Clone returns an independent copy
func (t Tariffs) Clone() Tariffs {
	out := make(Tariffs, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Keys returns the configured keys in sorted order
func (t Tariffs) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PlusScheme selects how the Plus multiplier is determined
type PlusScheme int

const (
	PlusSchemeFlat PlusScheme = iota + 1
	PlusSchemeTiered
)

// PlusScheme returns the single configured Plus factor scheme. Configuring
// both the flat factor and any tiered key, or only part of the tiered set,
// is a configuration error.
func (t Tariffs) PlusScheme() (PlusScheme, error) {
	tiered := 0
	for _, k := range tieredPlusTariffs {
		if t.Has(k) {
			tiered++
		}
	}
	flat := t.Has(TariffPlusFactor)

	switch {
	case flat && tiered > 0:
		return 0, fmt.Errorf("tariffs define both %s and tiered plus factors", TariffPlusFactor)
	case flat:
		return PlusSchemeFlat, nil
	case tiered == len(tieredPlusTariffs):
		return PlusSchemeTiered, nil
	case tiered > 0:
		for _, k := range tieredPlusTariffs {
			if !t.Has(k) {
				return 0, &MissingTariffError{Key: k}
			}
		}
	}
	return 0, &MissingTariffError{Key: TariffPlusFactor}
}

// Validate checks that every essential key is present and non-negative and
// that exactly one Plus factor scheme is configured.
func (t Tariffs) Validate() error {
	for _, k := range essentialTariffs {
		v, err := t.Get(k)
		if err != nil {
			return err
		}
		if v.IsNegative() {
			return fmt.Errorf("tariff %s must not be negative", k)
		}
	}
	for k, v := range t {
		if v.IsNegative() {
			return fmt.Errorf("tariff %s must not be negative", k)
		}
	}
	scheme, err := t.PlusScheme()
	if err != nil {
		return err
	}
	if scheme == PlusSchemeTiered && t[TariffPlusThresholdSmall].GreaterThan(t[TariffPlusThresholdLarge]) {
		return fmt.Errorf("%s must not exceed %s", TariffPlusThresholdSmall, TariffPlusThresholdLarge)
	}
	return nil
}

// TariffsFromFloats converts a decoded JSON document into Tariffs
func TariffsFromFloats(values map[string]float64) Tariffs {
	out := make(Tariffs, len(values))
	for k, v := range values {
		out[k] = decimal.NewFromFloat(v)
	}
	return out
}
