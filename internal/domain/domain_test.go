package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCertificateType(t *testing.T) {
	tests := []struct {
		input   string
		want    domain.CertificateType
		wantErr bool
	}{
		{input: "Basic", want: domain.CertificateBasic},
		{input: " Plus ", want: domain.CertificatePlus},
		{input: "IncentiveAdvice", want: domain.CertificateIncentiveAdvice},
		{input: "CECB Plus", want: domain.CertificatePlus},
		{input: "Conseil Incitatif", want: domain.CertificateIncentiveAdvice},
		{input: "Premium", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := domain.ParseCertificateType(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidCertificateType)
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseContactType(t *testing.T) {
	got, err := domain.ParseContactType("  Company ")
	require.NoError(t, err)
	assert.Equal(t, domain.ContactCompany, got)

	got, err = domain.ParseContactType("Privé")
	require.NoError(t, err)
	assert.Equal(t, domain.ContactIndividual, got)

	_, err = domain.ParseContactType("Association")
	assert.ErrorIs(t, err, domain.ErrUnknownContactType)
}

func TestHeatingState_Coefficient(t *testing.T) {
	tests := []struct {
		state domain.HeatingState
		want  string
	}{
		{domain.HeatingUnheated, "0"},
		{domain.HeatingPartiallyHeated50, "0.5"},
		{domain.HeatingHeated30, "0.3"},
		{domain.HeatingHeated, "1"},
		{domain.HeatingState("Sauna"), "0"},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.Coefficient().String())
		})
	}
}

func TestParseHeatingState(t *testing.T) {
	state, ok := domain.ParseHeatingState("Partiellement chauffé 50%")
	assert.True(t, ok)
	assert.Equal(t, domain.HeatingPartiallyHeated50, state)

	state, ok = domain.ParseHeatingState("Heated")
	assert.True(t, ok)
	assert.Equal(t, domain.HeatingHeated, state)

	state, ok = domain.ParseHeatingState("Cold")
	assert.False(t, ok)
	assert.True(t, state.Coefficient().IsZero())
}

func TestNewPricedItem(t *testing.T) {
	one := decimal.NewFromInt(1)
	price := decimal.NewFromInt(814)

	tests := []struct {
		name      string
		quantity  decimal.Decimal
		unitPrice decimal.Decimal
		taxID     int
		unitID    int
		wantErr   bool
	}{
		{name: "complete", quantity: one, unitPrice: price, taxID: 16, unitID: 1},
		{name: "zero price allowed", quantity: one, unitPrice: decimal.Zero, taxID: 16, unitID: 1},
		{name: "missing quantity", quantity: decimal.Zero, unitPrice: price, taxID: 16, unitID: 1, wantErr: true},
		{name: "negative price", quantity: one, unitPrice: decimal.NewFromInt(-1), taxID: 16, unitID: 1, wantErr: true},
		{name: "missing tax", quantity: one, unitPrice: price, unitID: 1, wantErr: true},
		{name: "missing unit", quantity: one, unitPrice: price, taxID: 16, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := domain.NewPricedItem("CECB", tt.quantity, tt.unitPrice, tt.taxID, tt.unitID)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrIncompleteLineItem)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.LineItemPriced, item.Kind)
		})
	}
}

func TestLineItem_ToPosition(t *testing.T) {
	priced, err := domain.NewPricedItem("Frais", decimal.NewFromInt(1), decimal.NewFromInt(80), 16, 1)
	require.NoError(t, err)

	raw, err := json.Marshal(priced.ToPosition())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"KbPositionCustom","text":"Frais","amount":"1","unit_price":"80","tax_id":16,"unit_id":1,"is_optional":false}`, string(raw))

	raw, err = json.Marshal(domain.NewTextItem("Texte").ToPosition())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"KbPositionText","text":"Texte"}`, string(raw))
}

func TestSumLineItems(t *testing.T) {
	a, _ := domain.NewPricedItem("a", decimal.NewFromInt(2), decimal.NewFromInt(100), 1, 1)
	b, _ := domain.NewPricedItem("b", decimal.NewFromInt(1), decimal.NewFromInt(80), 1, 1)
	items := []domain.LineItem{a, domain.NewTextItem("t"), b}

	assert.Equal(t, "280", domain.SumLineItems(items).String())
}

func TestBuildingAttributes_Validate(t *testing.T) {
	b := domain.DefaultBuilding()
	require.NoError(t, b.Validate())
	assert.False(t, b.FromRegistry)
	assert.Equal(t, domain.NotAvailable, b.EGID)

	b.GroundArea = decimal.Zero
	err := b.Validate()
	assert.True(t, errors.Is(err, domain.ErrInvalidBuildingData))
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestAddress_CacheKey(t *testing.T) {
	a := domain.Address{Street: "  Rue du  Lac 1 ", Postcode: "1180", Locality: "ROLLE"}
	b := domain.Address{Street: "rue du lac 1", Postcode: "1180 ", Locality: "Rolle"}

	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.Equal(t, "rue du lac 1|1180|rolle", b.CacheKey())
}

func TestValidationError(t *testing.T) {
	err := domain.NewValidationError("postcode", "must be 4 digits")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "postcode")
}
