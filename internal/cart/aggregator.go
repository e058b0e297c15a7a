// Package cart applies accepted tool invocations and storefront edits to a
// session's cart. Every operation takes a CartState value and returns a new one
// with totals recomputed from its lines.
package cart

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tableside/internal/models"
	"tableside/internal/tools"
)

// MaxLineQuantity is the most of one line a cart will hold
const MaxLineQuantity = math.MaxInt32

// DefaultTaxRate is the sales tax applied when none is configured
var DefaultTaxRate = decimal.RequireFromString("0.07")

var lineNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tableside:cart-line"))

// Aggregator owns the arithmetic of the cart
type Aggregator struct {
	taxRate decimal.Decimal
}

// NewAggregator creates an aggregator with the given tax rate
func NewAggregator(taxRate decimal.Decimal) *Aggregator {
	return &Aggregator{taxRate: taxRate}
}

// TaxRate returns the configured tax rate
func (a *Aggregator) TaxRate() decimal.Decimal {
	return a.taxRate
}

// Empty returns a cart with no lines and zero totals
func (a *Aggregator) Empty() models.CartState {
	return a.recompute(nil)
}

// Apply runs an invocation against the cart. Only addToCart mutates; every
// other tool returns the state untouched and false.
func (a *Aggregator) Apply(state models.CartState, inv tools.Invocation) (models.CartState, bool) {
	args, ok := inv.Args.(tools.AddToCartArgs)
	if !ok {
		return state, false
	}
	return a.Add(state, args), true
}

// Add merges quantity into the line with the same item and modification set,
// or appends a new line
func (a *Aggregator) Add(state models.CartState, args tools.AddToCartArgs) models.CartState {
	mods := normalizeModifications(args.Modifications)
	id := LineID(args.Name, mods)

	next := state.Clone()
	for i := range next.Lines {
		if next.Lines[i].ID == id {
			next.Lines[i].Quantity = mergeQuantity(next.Lines[i].Quantity, args.Quantity)
			return a.recompute(next.Lines)
		}
	}

	next.Lines = append(next.Lines, models.CartLine{
		ID:            id,
		ItemName:      strings.TrimSpace(args.Name),
		UnitPrice:     args.Price,
		Quantity:      args.Quantity,
		Modifications: mods,
	})
	return a.recompute(next.Lines)
}

// SetQuantity sets a line's quantity; zero or less removes the line
func (a *Aggregator) SetQuantity(state models.CartState, lineID string, quantity int) (models.CartState, error) {
	if quantity <= 0 {
		return a.Remove(state, lineID)
	}
	if quantity > MaxLineQuantity {
		return state, &models.ValidationError{Tool: "setQuantity", Field: "quantity", Reason: "is too large"}
	}

	next := state.Clone()
	for i := range next.Lines {
		if next.Lines[i].ID == lineID {
			next.Lines[i].Quantity = quantity
			return a.recompute(next.Lines), nil
		}
	}
	return state, fmt.Errorf("set quantity on %s: %w", lineID, models.ErrLineNotFound)
}

// Remove drops a line from the cart
func (a *Aggregator) Remove(state models.CartState, lineID string) (models.CartState, error) {
	next := state.Clone()
	for i := range next.Lines {
		if next.Lines[i].ID == lineID {
			next.Lines = append(next.Lines[:i], next.Lines[i+1:]...)
			return a.recompute(next.Lines), nil
		}
	}
	return state, fmt.Errorf("remove %s: %w", lineID, models.ErrLineNotFound)
}

// Clear empties the cart
func (a *Aggregator) Clear(models.CartState) models.CartState {
	return a.Empty()
}

// Totals computes subtotal, tax and total for a set of lines. Tax is rounded
// to cents; subtotal is exact.
func Totals(lines []models.CartLine, taxRate decimal.Decimal) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
	}
	tax = subtotal.Mul(taxRate).Round(2)
	total = subtotal.Add(tax)
	return subtotal, tax, total
}

func (a *Aggregator) recompute(lines []models.CartLine) models.CartState {
	if lines == nil {
		lines = []models.CartLine{}
	}
	sub, tax, total := Totals(lines, a.taxRate)
	return models.CartState{Lines: lines, Subtotal: sub, Tax: tax, Total: total}
}

// LineID derives the stable id of a cart line from its item name and
// modification set. Case and modification order do not matter.
func LineID(name string, modifications []string) string {
	key := make([]string, 0, len(modifications))
	for _, m := range normalizeModifications(modifications) {
		key = append(key, strings.ToLower(m))
	}
	sort.Strings(key)
	identity := strings.ToLower(strings.TrimSpace(name)) + "\x00" + strings.Join(key, "\x00")
	return uuid.NewSHA1(lineNamespace, []byte(identity)).String()
}

// normalizeModifications trims, drops blanks and removes case-insensitive
// duplicates while keeping the order the customer gave
func normalizeModifications(mods []string) []string {
	out := make([]string, 0, len(mods))
	seen := make(map[string]bool, len(mods))
	for _, m := range mods {
		m = strings.TrimSpace(m)
		k := strings.ToLower(m)
		if m == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, m)
	}
	return out
}

// mergeQuantity adds two line quantities, saturating at MaxLineQuantity
func mergeQuantity(have, add int) int {
	if add > MaxLineQuantity-have {
		return MaxLineQuantity
	}
	return have + add
}
