package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MinTableNumber is the lowest table number in the restaurant
	MinTableNumber = 1
	// MaxTableNumber is the highest table number in the restaurant
	MaxTableNumber = 20
)

// OrderConfirmation is an immutable snapshot of the cart at confirmation time
type OrderConfirmation struct {
	ID          string          `json:"id"`
	TableNumber int             `json:"tableNumber"`
	Lines       []CartLine      `json:"lines"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ValidTableNumber reports whether n is a table in the restaurant
func ValidTableNumber(n int) bool {
	return n >= MinTableNumber && n <= MaxTableNumber
}
