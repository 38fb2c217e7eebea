package domain

import "github.com/shopspring/decimal"

// Salutation is the courtesy title of an individual
type Salutation string

const (
	SalutationNone     Salutation = ""
	SalutationMadame   Salutation = "Mme"
	SalutationMonsieur Salutation = "M."
	SalutationNeutral  Salutation = "Mx"
)

// FormInput is the sanitized, typed quote request. Only FormValidator builds it.
type FormInput struct {
	Operator string

	ContactType ContactType
	Salutation  Salutation
	FirstName   string
	LastName    string
	CompanyName string
	Email       string
	Phone       string

	BillingAddress  Address
	BuildingAddress Address

	CertificateType CertificateType
	BasementState   HeatingState
	AtticState      HeatingState
	Deadline        DeadlineTier
	// FloorsOverride replaces the registry floor count when set
	FloorsOverride *int

	CustomMessage string

	PreExistingCertificate      bool
	ExistingCertificateDiscount decimal.Decimal
}

// ClientName is the name shown in listings: company name or "First Last"
func (f FormInput) ClientName() string {
	if f.ContactType == ContactCompany && f.CompanyName != "" {
		return f.CompanyName
	}
	if f.FirstName == "" {
		return f.LastName
	}
	return f.FirstName + " " + f.LastName
}
