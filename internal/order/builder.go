// Package order turns a cart into an immutable order confirmation.
package order

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tableside/internal/cart"
	"tableside/internal/models"
)

// Builder produces order confirmations from cart snapshots
type Builder struct {
	taxRate decimal.Decimal
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Builder
type Option func(*Builder)

// WithClock overrides the confirmation timestamp source
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithRand overrides the table number generator
func WithRand(r *rand.Rand) Option {
	return func(b *Builder) { b.rng = r }
}

// NewBuilder creates a builder that computes tax at taxRate
func NewBuilder(taxRate decimal.Decimal, opts ...Option) *Builder {
	b := &Builder{
		taxRate: taxRate,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Confirm snapshots the cart. tableNumber may be nil, in which case a table is
// picked uniformly from the restaurant's range. Totals are always recomputed
// from the snapshot lines.
func (b *Builder) Confirm(state models.CartState, tableNumber *int) (*models.OrderConfirmation, error) {
	if state.IsEmpty() {
		return nil, models.ErrEmptyOrder
	}

	table, err := b.table(tableNumber)
	if err != nil {
		return nil, err
	}

	lines := state.Clone().Lines
	subtotal, tax, total := cart.Totals(lines, b.taxRate)

	return &models.OrderConfirmation{
		ID:          uuid.NewString(),
		TableNumber: table,
		Lines:       lines,
		Subtotal:    subtotal,
		Tax:         tax,
		Total:       total,
		CreatedAt:   b.now().UTC(),
	}, nil
}

func (b *Builder) table(requested *int) (int, error) {
	if requested != nil {
		if !models.ValidTableNumber(*requested) {
			return 0, &models.ValidationError{
				Tool:   "confirmOrder",
				Field:  "tableNumber",
				Reason: fmt.Sprintf("must be between %d and %d", models.MinTableNumber, models.MaxTableNumber),
			}
		}
		return *requested, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return models.MinTableNumber + b.rng.Intn(models.MaxTableNumber-models.MinTableNumber+1), nil
}

// Claimed is what the model said the order totals were
type Claimed struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Drift lists the totals where the model's claim differs from the confirmation
// by more than a cent
func Drift(conf *models.OrderConfirmation, claimed Claimed) []string {
	cent := decimal.New(1, -2)
	var fields []string
	check := func(name string, got, want decimal.Decimal) {
		if got.Sub(want).Abs().GreaterThan(cent) {
			fields = append(fields, name)
		}
	}
	check("subtotal", claimed.Subtotal, conf.Subtotal)
	check("tax", claimed.Tax, conf.Tax)
	check("total", claimed.Total, conf.Total)
	return fields
}
