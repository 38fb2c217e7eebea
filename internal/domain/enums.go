package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CertificateType is the product being quoted
type CertificateType string

const (
	CertificateBasic           CertificateType = "Basic"
	CertificatePlus            CertificateType = "Plus"
	CertificateIncentiveAdvice CertificateType = "IncentiveAdvice"
)

// IsValid checks if the CertificateType is a valid enum value
func (c CertificateType) IsValid() bool {
	switch c {
	case CertificateBasic, CertificatePlus, CertificateIncentiveAdvice:
		return true
	}
	return false
}

// Label is the product name printed on quotes
func (c CertificateType) Label() string {
	switch c {
	case CertificateBasic:
		return "CECB"
	case CertificatePlus:
		return "CECB Plus"
	case CertificateIncentiveAdvice:
		return "Conseil Incitatif"
	}
	return string(c)
}

// RequiresPricing reports whether the product price depends on the building
func (c CertificateType) RequiresPricing() bool {
	return c == CertificateBasic || c == CertificatePlus
}

// ParseCertificateType accepts the canonical value or the printed label
func ParseCertificateType(s string) (CertificateType, error) {
	s = strings.TrimSpace(s)
	for _, c := range []CertificateType{CertificateBasic, CertificatePlus, CertificateIncentiveAdvice} {
		if s == string(c) || s == c.Label() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCertificateType, s)
}

// ContactType discriminates private clients from companies
type ContactType string

const (
	ContactIndividual ContactType = "Individual"
	ContactCompany    ContactType = "Company"
)

// IsValid checks if the ContactType is a valid enum value
func (c ContactType) IsValid() bool {
	return c == ContactIndividual || c == ContactCompany
}

// ParseContactType trims the value and rejects anything outside the enum
func ParseContactType(s string) (ContactType, error) {
	switch strings.TrimSpace(s) {
	case string(ContactIndividual), "Privé":
		return ContactIndividual, nil
	case string(ContactCompany), "Société":
		return ContactCompany, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownContactType, s)
}

// HeatingState describes how much of a basement or attic is heated
type HeatingState string

const (
	HeatingUnheated          HeatingState = "Unheated"
	HeatingPartiallyHeated50 HeatingState = "PartiallyHeated50"
	HeatingHeated30          HeatingState = "Heated30"
	HeatingHeated            HeatingState = "Heated"
)

var heatingAliases = map[string]HeatingState{
	"Non chauffé ou inexistant": HeatingUnheated,
	"Partiellement chauffé 50%": HeatingPartiallyHeated50,
	"Chauffé 30%":               HeatingHeated30,
	"Chauffé":                   HeatingHeated,
}

// IsValid checks if the HeatingState is a valid enum value
func (h HeatingState) IsValid() bool {
	switch h {
	case HeatingUnheated, HeatingPartiallyHeated50, HeatingHeated30, HeatingHeated:
		return true
	}
	return false
}

// Coefficient is the fraction of a floor the space counts for.
// Unrecognized states count as 0.
func (h HeatingState) Coefficient() decimal.Decimal {
	switch h {
	case HeatingPartiallyHeated50:
		return decimal.NewFromFloat(0.5)
	case HeatingHeated30:
		return decimal.NewFromFloat(0.3)
	case HeatingHeated:
		return decimal.NewFromInt(1)
	}
	return decimal.Zero
}

// ParseHeatingState maps canonical values and form labels. Unknown input is
// returned unchanged with ok=false; it still prices as coefficient 0.
func ParseHeatingState(s string) (state HeatingState, ok bool) {
	s = strings.TrimSpace(s)
	if alias, found := heatingAliases[s]; found {
		return alias, true
	}
	state = HeatingState(s)
	return state, state.IsValid()
}

// DeadlineTier is the requested execution speed
type DeadlineTier string

const (
	DeadlineNormal  DeadlineTier = "Normal"
	DeadlineExpress DeadlineTier = "Express"
	DeadlineUrgent  DeadlineTier = "Urgent"
)

// IsValid checks if the DeadlineTier is a valid enum value
func (d DeadlineTier) IsValid() bool {
	switch d {
	case DeadlineNormal, DeadlineExpress, DeadlineUrgent:
		return true
	}
	return false
}

var deadlineAliases = map[string]DeadlineTier{
	"Express (+135 CHF)": DeadlineExpress,
	"Urgent (+270 CHF)":  DeadlineUrgent,
}

// ParseDeadlineTier maps canonical values and form labels. An empty string
// is Normal; unknown input is kept and later surcharged as Normal.
func ParseDeadlineTier(s string) (tier DeadlineTier, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DeadlineNormal, true
	}
	if alias, found := deadlineAliases[s]; found {
		return alias, true
	}
	tier = DeadlineTier(s)
	return tier, tier.IsValid()
}

// LineItemKind discriminates priced positions from text-only positions
type LineItemKind int

const (
	LineItemPriced LineItemKind = iota + 1
	LineItemText
)

func (k LineItemKind) String() string {
	switch k {
	case LineItemPriced:
		return "priced"
	case LineItemText:
		return "text"
	}
	return "unknown"
}
