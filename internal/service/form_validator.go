package service

import (
	"fmt"
	"strings"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const phoneRegion = "CH"

// FormValidator is the single sanitation pass between the raw request and
// the typed FormInput the rest of the workflow consumes.
type FormValidator struct {
	validate *validator.Validate
	logger   *zap.Logger
}

// NewFormValidator creates a new validator
func NewFormValidator(logger *zap.Logger) *FormValidator {
	return &FormValidator{
		validate: validator.New(),
		logger:   logger,
	}
}

// Validate checks struct tags, trims every field and parses the enums
func (v *FormValidator) Validate(operator string, req domain.CreateQuoteRequest) (domain.FormInput, error) {
	req = trimRequest(req)

	if err := v.validate.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return domain.FormInput{}, fmt.Errorf("%w: %w", domain.ErrValidation, verrs)
		}
		return domain.FormInput{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	contactType, err := domain.ParseContactType(req.ContactType)
	if err != nil {
		return domain.FormInput{}, err
	}
	certificate, err := domain.ParseCertificateType(req.CertificateType)
	if err != nil {
		return domain.FormInput{}, err
	}
	if contactType == domain.ContactCompany && req.CompanyName == "" {
		return domain.FormInput{}, domain.NewValidationError("companyName", "company name is required for company contacts")
	}
	if req.ExistingCertificateDiscount.IsNegative() {
		return domain.FormInput{}, domain.NewValidationError("existingCertificateDiscount", "discount cannot be negative")
	}

	billing := domain.Address{Street: req.Street, Postcode: req.Postcode, Locality: req.Locality}
	if err := checkPostcode("postcode", billing.Postcode); err != nil {
		return domain.FormInput{}, err
	}

	building := domain.Address{
		Street:   firstNonEmpty(req.BuildingStreet, billing.Street),
		Postcode: firstNonEmpty(req.BuildingPostcode, billing.Postcode),
		Locality: firstNonEmpty(req.BuildingLocality, billing.Locality),
	}
	if err := checkPostcode("buildingPostcode", building.Postcode); err != nil {
		return domain.FormInput{}, err
	}

	basement := v.heatingState("basementState", req.BasementState)
	attic := v.heatingState("atticState", req.AtticState)

	deadline, ok := domain.ParseDeadlineTier(req.Deadline)
	if !ok {
		v.logger.Warn("Unrecognized deadline tier, surcharged as Normal", zap.String("deadline", req.Deadline))
	}

	form := domain.FormInput{
		Operator:                    operator,
		ContactType:                 contactType,
		Salutation:                  domain.Salutation(req.Salutation),
		FirstName:                   req.FirstName,
		LastName:                    req.LastName,
		CompanyName:                 req.CompanyName,
		Email:                       strings.ToLower(req.Email),
		Phone:                       NormalizePhone(req.Phone),
		BillingAddress:              billing,
		BuildingAddress:             building,
		CertificateType:             certificate,
		BasementState:               basement,
		AtticState:                  attic,
		Deadline:                    deadline,
		FloorsOverride:              req.Floors,
		CustomMessage:               req.CustomMessage,
		PreExistingCertificate:      req.PreExistingCertificate,
		ExistingCertificateDiscount: req.ExistingCertificateDiscount,
	}
	if !form.PreExistingCertificate {
		form.ExistingCertificateDiscount = decimal.Zero
	}
	return form, nil
}

// heatingState keeps unrecognized states; they price as coefficient 0
func (v *FormValidator) heatingState(field, raw string) domain.HeatingState {
	if raw == "" {
		return domain.HeatingUnheated
	}
	state, ok := domain.ParseHeatingState(raw)
	if !ok {
		v.logger.Warn("Unrecognized heating state, counted as unheated",
			zap.String("field", field),
			zap.String("value", raw),
		)
	}
	return state
}

// NormalizePhone formats a Swiss or international number to E.164.
// Unparseable input is returned trimmed.
func NormalizePhone(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, phoneRegion)
	if err != nil {
		return trimmed
	}
	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

func checkPostcode(field, postcode string) error {
	if len(postcode) != 4 {
		return fmt.Errorf("%w: %s=%q", domain.ErrInvalidPostcode, field, postcode)
	}
	for _, r := range postcode {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: %s=%q", domain.ErrInvalidPostcode, field, postcode)
		}
	}
	return nil
}

func trimRequest(req domain.CreateQuoteRequest) domain.CreateQuoteRequest {
	for _, s := range []*string{
		&req.ContactType, &req.Salutation, &req.FirstName, &req.LastName,
		&req.CompanyName, &req.Email, &req.Phone,
		&req.Street, &req.Postcode, &req.Locality,
		&req.BuildingStreet, &req.BuildingPostcode, &req.BuildingLocality,
		&req.CertificateType, &req.BasementState, &req.AtticState, &req.Deadline,
		&req.CustomMessage,
	} {
		*s = strings.TrimSpace(*s)
	}
	return req
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
