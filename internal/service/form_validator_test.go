package service_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/eta-consult/quote-api/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validRequest() domain.CreateQuoteRequest {
	return domain.CreateQuoteRequest{
		ContactType:     "Individual",
		Salutation:      "Mme",
		FirstName:       " Anne ",
		LastName:        "Martin",
		Email:           "Anne@Example.ch",
		Phone:           "021 825 12 34",
		Street:          "Rue du Lac 1",
		Postcode:        "1180",
		Locality:        "Rolle",
		CertificateType: "CECB Plus",
		BasementState:   "Chauffé",
		AtticState:      "PartiallyHeated50",
		Deadline:        "Express (+135 CHF)",
	}
}

func TestFormValidator_Valid(t *testing.T) {
	v := service.NewFormValidator(zap.NewNop())

	form, err := v.Validate("jdoe", validRequest())
	require.NoError(t, err)

	assert.Equal(t, "jdoe", form.Operator)
	assert.Equal(t, domain.ContactIndividual, form.ContactType)
	assert.Equal(t, domain.SalutationMadame, form.Salutation)
	assert.Equal(t, "Anne", form.FirstName)
	assert.Equal(t, "anne@example.ch", form.Email)
	assert.Equal(t, "+41218251234", form.Phone)
	assert.Equal(t, domain.CertificatePlus, form.CertificateType)
	assert.Equal(t, domain.HeatingHeated, form.BasementState)
	assert.Equal(t, domain.HeatingPartiallyHeated50, form.AtticState)
	assert.Equal(t, domain.DeadlineExpress, form.Deadline)
	assert.Equal(t, form.BillingAddress, form.BuildingAddress, "building address defaults to billing")
	assert.True(t, form.ExistingCertificateDiscount.IsZero())
}

func TestFormValidator_BuildingAddressOverride(t *testing.T) {
	v := service.NewFormValidator(zap.NewNop())
	req := validRequest()
	req.BuildingStreet = "Chemin des Vignes 4"
	req.BuildingLocality = "Mont-sur-Rolle"

	form, err := v.Validate("jdoe", req)
	require.NoError(t, err)
	assert.Equal(t, domain.Address{Street: "Chemin des Vignes 4", Postcode: "1180", Locality: "Mont-sur-Rolle"}, form.BuildingAddress)
}

func TestFormValidator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *domain.CreateQuoteRequest)
		wantErr error
	}{
		{
			name:    "unknown certificate type",
			mutate:  func(r *domain.CreateQuoteRequest) { r.CertificateType = "CECB Gold" },
			wantErr: domain.ErrInvalidCertificateType,
		},
		{
			name:    "unknown contact type",
			mutate:  func(r *domain.CreateQuoteRequest) { r.ContactType = "Association" },
			wantErr: domain.ErrUnknownContactType,
		},
		{
			name:    "five digit postcode",
			mutate:  func(r *domain.CreateQuoteRequest) { r.Postcode = "11800" },
			wantErr: domain.ErrInvalidPostcode,
		},
		{
			name:    "non numeric postcode",
			mutate:  func(r *domain.CreateQuoteRequest) { r.Postcode = "12a4" },
			wantErr: domain.ErrInvalidPostcode,
		},
		{
			name:    "bad building postcode",
			mutate:  func(r *domain.CreateQuoteRequest) { r.BuildingPostcode = "999" },
			wantErr: domain.ErrInvalidPostcode,
		},
		{
			name:    "company without name",
			mutate:  func(r *domain.CreateQuoteRequest) { r.ContactType = "Company" },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "blank last name",
			mutate:  func(r *domain.CreateQuoteRequest) { r.LastName = "   " },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "negative discount",
			mutate:  func(r *domain.CreateQuoteRequest) { r.ExistingCertificateDiscount = decimal.NewFromInt(-10) },
			wantErr: domain.ErrValidation,
		},
	}

	v := service.NewFormValidator(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := v.Validate("jdoe", req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestFormValidator_TagErrorsAreExposed(t *testing.T) {
	v := service.NewFormValidator(zap.NewNop())
	req := validRequest()
	req.Email = "not-an-email"

	_, err := v.Validate("jdoe", req)
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "Email", verrs[0].Field())
}

func TestFormValidator_LenientEnums(t *testing.T) {
	v := service.NewFormValidator(zap.NewNop())
	req := validRequest()
	req.BasementState = "Sauna"
	req.Deadline = "Whenever"

	form, err := v.Validate("jdoe", req)
	require.NoError(t, err)
	assert.True(t, form.BasementState.Coefficient().IsZero())
	assert.Equal(t, domain.DeadlineTier("Whenever"), form.Deadline)
}

func TestFormValidator_Discount(t *testing.T) {
	v := service.NewFormValidator(zap.NewNop())
	req := validRequest()
	req.ExistingCertificateDiscount = decimal.NewFromInt(150)

	form, err := v.Validate("jdoe", req)
	require.NoError(t, err)
	assert.True(t, form.ExistingCertificateDiscount.IsZero(), "discount ignored without a pre-existing certificate")

	req.PreExistingCertificate = true
	form, err = v.Validate("jdoe", req)
	require.NoError(t, err)
	assert.Equal(t, "150", form.ExistingCertificateDiscount.String())
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"079 123 45 67", "+41791234567"},
		{"+33 1 42 68 53 00", "+33142685300"},
		{"  ", ""},
		{"call me", "call me"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, service.NormalizePhone(tt.in))
		})
	}
}

func TestFormValidator_NegativeDiscountNamesField(t *testing.T) {
	v := service.NewFormValidator(zap.NewNop())
	req := validRequest()
	req.PreExistingCertificate = true
	req.ExistingCertificateDiscount = decimal.RequireFromString("-0.05")

	_, err := v.Validate("jdoe", req)
	var fe *domain.ValidationError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "existingCertificateDiscount", fe.Field)
}

func TestFormValidator_DiscountKeepsDecimalPrecision(t *testing.T) {
	var req domain.CreateQuoteRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"contactType": "Individual",
		"firstName": "Anne",
		"lastName": "Martin",
		"street": "Rue du Lac 1",
		"postcode": "1180",
		"locality": "Rolle",
		"certificateType": "CECB",
		"preExistingCertificate": true,
		"existingCertificateDiscount": 0.1
	}`), &req))

	form, err := service.NewFormValidator(zap.NewNop()).Validate("jdoe", req)
	require.NoError(t, err)
	assert.Equal(t, "0.1", form.ExistingCertificateDiscount.String())
}
