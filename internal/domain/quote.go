package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Accounting position type names
const (
	PositionTypeCustom = "KbPositionCustom"
	PositionTypeText   = "KbPositionText"
)

// Position is a quote position in the accounting system's wire format
type Position struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	Amount     string `json:"amount,omitempty"`
	UnitPrice  string `json:"unit_price,omitempty"`
	TaxID      int    `json:"tax_id,omitempty"`
	UnitID     int    `json:"unit_id,omitempty"`
	IsOptional *bool  `json:"is_optional,omitempty"`
}

// ToPosition converts a line item to its wire representation
func (l LineItem) ToPosition() Position {
	if l.Kind != LineItemPriced {
		return Position{Type: PositionTypeText, Text: l.Text}
	}
	optional := false
	return Position{
		Type:       PositionTypeCustom,
		Text:       l.Text,
		Amount:     l.Quantity.String(),
		UnitPrice:  l.UnitPrice.String(),
		TaxID:      l.TaxID,
		UnitID:     l.UnitID,
		IsOptional: &optional,
	}
}

// QuotePayload is the document submitted to the accounting system
type QuotePayload struct {
	ContactID    int        `json:"contact_id"`
	ContactSubID *int       `json:"contact_sub_id,omitempty"`
	UserID       int        `json:"user_id"`
	Title        string     `json:"title"`
	MwstType     int        `json:"mwst_type"`
	CurrencyID   int        `json:"currency_id"`
	LanguageID   int        `json:"language_id"`
	Footer       string     `json:"footer"`
	Positions    []Position `json:"positions"`
}

// QuoteReceipt holds the identifiers the accounting system assigns
type QuoteReceipt struct {
	ID         int    `json:"id"`
	DocumentNr string `json:"document_nr"`
}

// QuoteOutcome is the result of a full quote-creation run
type QuoteOutcome struct {
	SubmissionID   uuid.UUID          `json:"submissionId"`
	QuoteID        int                `json:"quoteId"`
	DocumentNumber string             `json:"documentNumber"`
	Title          string             `json:"title"`
	Contacts       ContactResolution  `json:"contacts"`
	Pricing        *PricingResult     `json:"pricing,omitempty"`
	Building       BuildingAttributes `json:"building"`
	LineItems      []LineItem         `json:"lineItems"`
	TotalExclTax   decimal.Decimal    `json:"totalExclTax"`
}

// QuotePreview is a dry run: everything except contacts and submission
type QuotePreview struct {
	Title        string             `json:"title"`
	Footer       string             `json:"footer"`
	Pricing      *PricingResult     `json:"pricing,omitempty"`
	Building     BuildingAttributes `json:"building"`
	LineItems    []LineItem         `json:"lineItems"`
	Positions    []Position         `json:"positions"`
	TotalExclTax decimal.Decimal    `json:"totalExclTax"`
}
