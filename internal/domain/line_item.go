package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MarshalText renders the kind by name in JSON
func (k LineItemKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// LineItem is one quote position. Priced items always carry quantity,
// unit price, tax category and unit category together.
type LineItem struct {
	Kind      LineItemKind    `json:"kind"`
	Text      string          `json:"text"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	TaxID     int             `json:"taxId,omitempty"`
	UnitID    int             `json:"unitId,omitempty"`
}

// NewPricedItem builds a priced position, rejecting partial specifications
func NewPricedItem(text string, quantity, unitPrice decimal.Decimal, taxID, unitID int) (LineItem, error) {
	switch {
	case !quantity.IsPositive():
		return LineItem{}, fmt.Errorf("%w: quantity must be positive", ErrIncompleteLineItem)
	case unitPrice.IsNegative():
		return LineItem{}, fmt.Errorf("%w: unit price must not be negative", ErrIncompleteLineItem)
	case taxID <= 0:
		return LineItem{}, fmt.Errorf("%w: tax category is required", ErrIncompleteLineItem)
	case unitID <= 0:
		return LineItem{}, fmt.Errorf("%w: unit category is required", ErrIncompleteLineItem)
	}
	return LineItem{
		Kind:      LineItemPriced,
		Text:      text,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		TaxID:     taxID,
		UnitID:    unitID,
	}, nil
}

// NewTextItem builds a description-only position
func NewTextItem(text string) LineItem {
	return LineItem{Kind: LineItemText, Text: text}
}

// Total is quantity x unit price; zero for text items
func (l LineItem) Total() decimal.Decimal {
	if l.Kind != LineItemPriced {
		return decimal.Zero
	}
	return l.Quantity.Mul(l.UnitPrice)
}

// SumLineItems totals all priced items, excluding tax
func SumLineItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total())
	}
	return total
}
