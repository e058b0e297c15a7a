package models

import (
	"github.com/shopspring/decimal"
)

// CartLine is one distinct item/modification combination in the cart
type CartLine struct {
	ID            string          `json:"id"`
	ItemName      string          `json:"itemName"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Quantity      int             `json:"quantity"`
	Modifications []string        `json:"modifications"`
}

// LineTotal returns unit price times quantity
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Clone copies the line including its modification slice
func (l CartLine) Clone() CartLine {
	mods := make([]string, len(l.Modifications))
	copy(mods, l.Modifications)
	l.Modifications = mods
	return l
}

// CartState is the session's cart together with its derived totals
type CartState struct {
	Lines    []CartLine      `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Clone returns a deep copy so callers can never alias another state's lines
func (s CartState) Clone() CartState {
	lines := make([]CartLine, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = l.Clone()
	}
	s.Lines = lines
	return s
}

// IsEmpty reports whether the cart has no lines
func (s CartState) IsEmpty() bool {
	return len(s.Lines) == 0
}

// ItemCount returns the total quantity across all lines
func (s CartState) ItemCount() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}

// Line returns the line with the given id
func (s CartState) Line(id string) (CartLine, bool) {
	for _, l := range s.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return CartLine{}, false
}
