package order

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/cart"
	"tableside/internal/models"
	"tableside/internal/tools"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func oneBurger(a *cart.Aggregator) models.CartState {
	return a.Add(a.Empty(), tools.AddToCartArgs{Name: "Burger", Price: dec("12.00"), Quantity: 1, Modifications: []string{}})
}

func TestConfirmEmptyCart(t *testing.T) {
	a := cart.NewAggregator(cart.DefaultTaxRate)
	b := NewBuilder(cart.DefaultTaxRate)

	conf, err := b.Confirm(a.Empty(), nil)
	assert.Nil(t, conf)
	assert.True(t, errors.Is(err, models.ErrEmptyOrder))
}

func TestConfirmSingleLineGeneratesTable(t *testing.T) {
	a := cart.NewAggregator(cart.DefaultTaxRate)
	fixed := time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)
	b := NewBuilder(cart.DefaultTaxRate, WithClock(func() time.Time { return fixed }))

	state := oneBurger(a)
	conf, err := b.Confirm(state, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, conf.ID)
	assert.GreaterOrEqual(t, conf.TableNumber, models.MinTableNumber)
	assert.LessOrEqual(t, conf.TableNumber, models.MaxTableNumber)
	assert.True(t, state.Subtotal.Equal(conf.Subtotal))
	assert.True(t, dec("0.84").Equal(conf.Tax))
	assert.True(t, dec("12.84").Equal(conf.Total))
	assert.Equal(t, fixed, conf.CreatedAt)
}

func TestTableNumberRange(t *testing.T) {
	b := NewBuilder(cart.DefaultTaxRate, WithRand(rand.New(rand.NewSource(7))))
	state := oneBurger(cart.NewAggregator(cart.DefaultTaxRate))

	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		conf, err := b.Confirm(state, nil)
		require.NoError(t, err)
		require.True(t, models.ValidTableNumber(conf.TableNumber), "table %d", conf.TableNumber)
		seen[conf.TableNumber] = true
	}
	assert.Len(t, seen, models.MaxTableNumber-models.MinTableNumber+1)
}

func TestSuppliedTableNumber(t *testing.T) {
	b := NewBuilder(cart.DefaultTaxRate)
	state := oneBurger(cart.NewAggregator(cart.DefaultTaxRate))

	n := 12
	conf, err := b.Confirm(state, &n)
	require.NoError(t, err)
	assert.Equal(t, 12, conf.TableNumber)

	for _, bad := range []int{0, 21, -3} {
		bad := bad
		_, err := b.Confirm(state, &bad)
		assert.True(t, models.IsValidation(err), "table %d", bad)
	}
}

func TestConfirmationIsImmutable(t *testing.T) {
	a := cart.NewAggregator(cart.DefaultTaxRate)
	b := NewBuilder(cart.DefaultTaxRate)
	state := a.Add(a.Empty(), tools.AddToCartArgs{Name: "Burger", Price: dec("12"), Quantity: 1, Modifications: []string{"no onion"}})

	conf, err := b.Confirm(state, nil)
	require.NoError(t, err)

	state = a.Add(state, tools.AddToCartArgs{Name: "Burger", Price: dec("12"), Quantity: 5, Modifications: []string{"no onion"}})
	state.Lines[0].Modifications[0] = "mutated"

	require.Len(t, conf.Lines, 1)
	assert.Equal(t, 1, conf.Lines[0].Quantity)
	assert.Equal(t, "no onion", conf.Lines[0].Modifications[0])
	assert.True(t, dec("12").Equal(conf.Subtotal))
}

func TestTaxIsRecomputedNotTrusted(t *testing.T) {
	rate := dec("0.07")
	b := NewBuilder(rate)
	state := oneBurger(cart.NewAggregator(rate))
	// a stale state whose totals were never recomputed
	state.Tax = dec("5.00")
	state.Total = dec("17.00")

	conf, err := b.Confirm(state, nil)
	require.NoError(t, err)
	assert.True(t, dec("0.84").Equal(conf.Tax))

	drift := Drift(conf, Claimed{Subtotal: dec("12"), Tax: dec("1.00"), Total: dec("13.00")})
	assert.Equal(t, []string{"tax", "total"}, drift)
	assert.Empty(t, Drift(conf, Claimed{Subtotal: dec("12"), Tax: dec("0.84"), Total: dec("12.84")}))
}
