package service_test

import (
	"errors"
	"testing"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/eta-consult/quote-api/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func testTariffs() domain.Tariffs {
	return domain.TariffsFromFloats(map[string]float64{
		"base_price":                    500,
		"km_factor_proche":              0.9,
		"km_factor_loin":                0.7,
		"km_seuil":                      25,
		"surface_factor_petit":          0.6,
		"surface_factor_grand":          0.5,
		"surface_seuil":                 750,
		"plus_factor":                   1.4,
		"plus_price_max":                1989,
		"frais_emission_cecb":           80,
		"frais_emission_cecb_plus":      120,
		"frais_transfert_cecb":          50,
		"conseil_restitution_cecb_plus": 155,
		"demande_subvention_cecb_plus":  155,
		"prix_conseil_incitatif":        0,
		"forfait_normal":                0,
		"forfait_express":               135,
		"forfait_urgent":                270,
		"pct_acompte":                   30,
	})
}

func newEngine(t *testing.T, tariffs domain.Tariffs) *service.PricingEngine {
	t.Helper()
	engine, err := service.NewPricingEngine(tariffs, zap.NewNop())
	require.NoError(t, err)
	return engine
}

// ============================================================================
// Geometry
// ============================================================================

func TestEquivalentFloors(t *testing.T) {
	got := service.EquivalentFloors(3, domain.HeatingHeated, domain.HeatingPartiallyHeated50)
	assert.True(t, got.Equal(d(4.5)), "got %s", got)

	// Commutative in the heating states
	swapped := service.EquivalentFloors(3, domain.HeatingPartiallyHeated50, domain.HeatingHeated)
	assert.True(t, got.Equal(swapped))

	unknown := service.EquivalentFloors(2, domain.HeatingState("Sauna"), domain.HeatingHeated30)
	assert.True(t, unknown.Equal(d(2.3)), "got %s", unknown)
}

func TestEquivalentSurface(t *testing.T) {
	got, err := service.EquivalentSurface(d(4.5), d(200))
	require.NoError(t, err)
	assert.True(t, got.Equal(d(900)))

	_, err = service.EquivalentSurface(d(3), decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidBuildingData)
	_, err = service.EquivalentSurface(d(3), d(-10))
	assert.ErrorIs(t, err, domain.ErrInvalidBuildingData)
}

// ============================================================================
// Basic price
// ============================================================================

func TestPricingEngine_BasicPrice(t *testing.T) {
	engine := newEngine(t, testTariffs())

	tests := []struct {
		name     string
		distance float64
		surface  float64
		want     int64
	}{
		{name: "near and small", distance: 15, surface: 500, want: 814},
		{name: "far and large", distance: 50, surface: 1000, want: 1035},
		{name: "far and very large", distance: 50, surface: 2000, want: 1535},
		// 500 + 0 + 749*0.6 = 949.4
		{name: "just below surface threshold", distance: 0, surface: 749, want: 949},
		// surface equal to threshold selects the large factor: 500 + 750*0.5
		{name: "surface at threshold", distance: 0, surface: 750, want: 875},
		// distance equal to threshold selects the far factor: 500 + 25*0.7 + 100*0.6
		{name: "distance at threshold", distance: 25, surface: 100, want: 578},
		// 500 + 24.9*0.9 + 100*0.6 = 582.41
		{name: "distance just below threshold", distance: 24.9, surface: 100, want: 582},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.BasicPrice(d(tt.distance), d(tt.surface))
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "got %s want %d", got, tt.want)
			assert.False(t, got.IsNegative())
		})
	}
}

func TestPricingEngine_BasicPriceRoundsHalfUp(t *testing.T) {
	tariffs := testTariffs()
	tariffs[domain.TariffSurfaceFactorSmall] = d(0.5)
	engine := newEngine(t, tariffs)

	// 500 + 0 + 1*0.5 = 500.5 -> 501
	got, err := engine.BasicPrice(decimal.Zero, d(1))
	require.NoError(t, err)
	assert.Equal(t, "501", got.String())

	// 500 + 0 + 5*0.5 = 502.5 -> 503 (banker's rounding would give 502)
	got, err = engine.BasicPrice(decimal.Zero, d(5))
	require.NoError(t, err)
	assert.Equal(t, "503", got.String())
}

func TestPricingEngine_BasicPriceBaseDelta(t *testing.T) {
	low := newEngine(t, testTariffs())
	doubled := testTariffs()
	doubled[domain.TariffBasePrice] = d(1000)
	high := newEngine(t, doubled)

	for _, surface := range []float64{10, 500, 750, 3000} {
		a, err := low.BasicPrice(d(12.34), d(surface))
		require.NoError(t, err)
		b, err := high.BasicPrice(d(12.34), d(surface))
		require.NoError(t, err)
		assert.True(t, b.Sub(a).Equal(d(500)), "surface %v", surface)
	}
}

func TestPricingEngine_BasicPriceRejectsInvalidInput(t *testing.T) {
	engine := newEngine(t, testTariffs())

	_, err := engine.BasicPrice(d(-1), d(100))
	assert.ErrorIs(t, err, domain.ErrInvalidPricingInput)

	_, err = engine.BasicPrice(d(10), decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidPricingInput)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ============================================================================
// Plus price
// ============================================================================

func TestPricingEngine_PlusPrice(t *testing.T) {
	engine := newEngine(t, testTariffs())

	got, err := engine.PlusPrice(d(814), d(500))
	require.NoError(t, err)
	assert.Equal(t, "1140", got.String())

	// 1535 * 1.4 = 2149 -> capped
	got, err = engine.PlusPrice(d(1535), d(2000))
	require.NoError(t, err)
	assert.Equal(t, "1989", got.String())

	for _, basic := range []float64{0, 100, 1420, 1421, 5000} {
		got, err := engine.PlusPrice(d(basic), d(100))
		require.NoError(t, err)
		assert.True(t, got.LessThanOrEqual(d(1989)))
	}
}

func TestPricingEngine_TieredPlusFactor(t *testing.T) {
	tariffs := testTariffs()
	delete(tariffs, domain.TariffPlusFactor)
	tariffs[domain.TariffPlusFactorSmall] = d(3.69)
	tariffs[domain.TariffPlusFactorMedium] = d(2.29)
	tariffs[domain.TariffPlusFactorLarge] = d(1.79)
	tariffs[domain.TariffPlusThresholdSmall] = d(160)
	tariffs[domain.TariffPlusThresholdLarge] = d(750)
	tariffs[domain.TariffPlusPriceMax] = d(10000)
	engine := newEngine(t, tariffs)

	tests := []struct {
		surface float64
		want    string
	}{
		{surface: 159, want: "3.69"},
		{surface: 160, want: "2.29"},
		{surface: 749, want: "2.29"},
		{surface: 750, want: "1.79"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, engine.PlusFactor(d(tt.surface)).String(), "surface %v", tt.surface)
	}

	// 600 * 2.29 = 1374
	got, err := engine.PlusPrice(d(600), d(300))
	require.NoError(t, err)
	assert.Equal(t, "1374", got.String())
}

func TestNewPricingEngine_RejectsInvalidTariffs(t *testing.T) {
	tariffs := testTariffs()
	delete(tariffs, domain.TariffSurfaceThreshold)

	_, err := service.NewPricingEngine(tariffs, zap.NewNop())
	var missing *domain.MissingTariffError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, domain.TariffSurfaceThreshold, missing.Key)
}

func TestNewPricingEngine_SnapshotIsImmutable(t *testing.T) {
	tariffs := testTariffs()
	engine := newEngine(t, tariffs)
	tariffs[domain.TariffBasePrice] = d(9999)

	got, err := engine.BasicPrice(d(15), d(500))
	require.NoError(t, err)
	assert.Equal(t, "814", got.String())
}

// ============================================================================
// Deadline surcharge and full pricing
// ============================================================================

func TestPricingEngine_DeadlineSurcharge(t *testing.T) {
	engine := newEngine(t, testTariffs())

	tests := []struct {
		tier      domain.DeadlineTier
		wantAmt   string
		wantLabel string
	}{
		{domain.DeadlineNormal, "0", "Normal"},
		{domain.DeadlineExpress, "135", "Express"},
		{domain.DeadlineUrgent, "270", "Urgent"},
		{domain.DeadlineTier("Yesterday"), "0", "Normal"},
		{domain.DeadlineTier(""), "0", "Normal"},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			amount, label := engine.DeadlineSurcharge(tt.tier)
			assert.Equal(t, tt.wantAmt, amount.String())
			assert.Equal(t, tt.wantLabel, label)
		})
	}
}

func TestPricingEngine_Price(t *testing.T) {
	engine := newEngine(t, testTariffs())

	building := domain.DefaultBuilding()
	building.GroundArea = d(200)
	building.AboveGroundFloors = 3

	form := domain.FormInput{
		CertificateType: domain.CertificatePlus,
		BasementState:   domain.HeatingHeated,
		AtticState:      domain.HeatingPartiallyHeated50,
		Deadline:        domain.DeadlineExpress,
	}

	result, err := engine.Price(building, form, d(15))
	require.NoError(t, err)

	assert.Equal(t, "4.5", result.EquivalentFloors.String())
	assert.Equal(t, "900", result.EquivalentSurface.String())
	// 500 + 15*0.9 + 900*0.5 = 963.5 -> 964
	assert.Equal(t, "964", result.BasicUnitPrice.String())
	// 964 * 1.4 = 1349.6 -> 1350
	assert.Equal(t, "1350", result.PlusUnitPrice.String())
	assert.Equal(t, "135", result.ExecutionSurcharge.String())
	assert.Equal(t, "Express", result.DeadlineLabel)
}

func TestPricingEngine_PriceFloorOverride(t *testing.T) {
	engine := newEngine(t, testTariffs())

	building := domain.DefaultBuilding() // 100 m², 2 floors
	floors := 5
	form := domain.FormInput{CertificateType: domain.CertificateBasic, FloorsOverride: &floors}

	result, err := engine.Price(building, form, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "500", result.EquivalentSurface.String())
	assert.True(t, result.PlusUnitPrice.IsZero())
}

func TestPricingEngine_PriceRejectsZeroArea(t *testing.T) {
	engine := newEngine(t, testTariffs())

	building := domain.DefaultBuilding()
	building.GroundArea = decimal.Zero

	_, err := engine.Price(building, domain.FormInput{CertificateType: domain.CertificateBasic}, d(10))
	assert.ErrorIs(t, err, domain.ErrInvalidBuildingData)
}
