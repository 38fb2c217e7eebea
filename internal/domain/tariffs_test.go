package domain_test

import (
	"errors"
	"testing"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseTariffs() domain.Tariffs {
	return domain.TariffsFromFloats(map[string]float64{
		"base_price":           500,
		"km_factor_proche":     0.9,
		"km_factor_loin":       0.7,
		"km_seuil":             25,
		"surface_factor_petit": 0.6,
		"surface_factor_grand": 0.5,
		"surface_seuil":        750,
		"plus_factor":          1.4,
		"plus_price_max":       1989,
		"frais_emission_cecb":  80,
		"forfait_normal":       0,
		"forfait_express":      135,
		"forfait_urgent":       270,
		"pct_acompte":          30,
	})
}

func TestTariffs_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(domain.Tariffs)
		wantKey string
		wantErr bool
	}{
		{name: "complete flat scheme", mutate: func(domain.Tariffs) {}},
		{
			name:    "missing base price",
			mutate:  func(t domain.Tariffs) { delete(t, domain.TariffBasePrice) },
			wantKey: domain.TariffBasePrice,
			wantErr: true,
		},
		{
			name:    "missing half of the km pair",
			mutate:  func(t domain.Tariffs) { delete(t, domain.TariffKmFactorFar) },
			wantKey: domain.TariffKmFactorFar,
			wantErr: true,
		},
		{
			name:    "no plus scheme",
			mutate:  func(t domain.Tariffs) { delete(t, domain.TariffPlusFactor) },
			wantKey: domain.TariffPlusFactor,
			wantErr: true,
		},
		{
			name: "both plus schemes",
			mutate: func(t domain.Tariffs) {
				t[domain.TariffPlusFactorSmall] = decimal.NewFromFloat(3.69)
			},
			wantErr: true,
		},
		{
			name: "negative factor",
			mutate: func(t domain.Tariffs) {
				t[domain.TariffSurfaceFactorSmall] = decimal.NewFromFloat(-0.1)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tariffs := baseTariffs()
			tt.mutate(tariffs)

			err := tariffs.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantKey != "" {
				var missing *domain.MissingTariffError
				require.True(t, errors.As(err, &missing))
				assert.Equal(t, tt.wantKey, missing.Key)
			}
		})
	}
}

func TestTariffs_PlusScheme(t *testing.T) {
	tiered := baseTariffs()
	delete(tiered, domain.TariffPlusFactor)
	tiered[domain.TariffPlusFactorSmall] = decimal.NewFromFloat(3.69)
	tiered[domain.TariffPlusFactorMedium] = decimal.NewFromFloat(2.29)
	tiered[domain.TariffPlusFactorLarge] = decimal.NewFromFloat(1.79)
	tiered[domain.TariffPlusThresholdSmall] = decimal.NewFromInt(160)
	tiered[domain.TariffPlusThresholdLarge] = decimal.NewFromInt(750)

	scheme, err := tiered.PlusScheme()
	require.NoError(t, err)
	assert.Equal(t, domain.PlusSchemeTiered, scheme)
	assert.NoError(t, tiered.Validate())

	scheme, err = baseTariffs().PlusScheme()
	require.NoError(t, err)
	assert.Equal(t, domain.PlusSchemeFlat, scheme)

	partial := tiered.Clone()
	delete(partial, domain.TariffPlusThresholdLarge)
	_, err = partial.PlusScheme()
	var missing *domain.MissingTariffError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, domain.TariffPlusThresholdLarge, missing.Key)
}

func TestTariffs_CloneIsIndependent(t *testing.T) {
	original := baseTariffs()
	clone := original.Clone()
	clone[domain.TariffBasePrice] = decimal.NewFromInt(1)

	assert.True(t, original[domain.TariffBasePrice].Equal(decimal.NewFromInt(500)))
}

func TestTariffs_Get(t *testing.T) {
	tariffs := baseTariffs()

	v, err := tariffs.Get(domain.TariffBasePrice)
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.NewFromInt(500)))

	_, err = tariffs.Get("unknown")
	var missing *domain.MissingTariffError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "missing tariff: unknown", err.Error())

	assert.True(t, tariffs.GetOr("unknown", decimal.NewFromInt(7)).Equal(decimal.NewFromInt(7)))
}
