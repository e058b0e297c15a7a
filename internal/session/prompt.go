package session

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"tableside/internal/config"
	"tableside/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Fallback replies shown instead of errors
const (
	EmptyInputReply = "What can I get for you today?"
	ApologyReply    = "Sorry about that. What were you looking to order?"
	EmptyOrderReply = "Your order is empty. Add something before confirming."
)

// Welcome is the greeting shown before the first turn
type Welcome struct {
	Restaurant string   `json:"restaurant"`
	Greeting   string   `json:"greeting"`
	Prompts    []string `json:"prompts"`
}

// NewWelcome builds the greeting from the restaurant settings
func NewWelcome(r config.RestaurantConfig) Welcome {
	prompts := make([]string, len(r.Prompts))
	copy(prompts, r.Prompts)
	return Welcome{Restaurant: r.Name, Greeting: r.Greeting, Prompts: prompts}
}

// SystemPrompt renders the waiter instructions with the full menu embedded
func SystemPrompt(r config.RestaurantConfig, menu *models.Menu, taxRate decimal.Decimal) (string, error) {
	menuJSON, err := json.MarshalIndent(menu, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode menu for prompt: %w", err)
	}
	percent := taxRate.Mul(decimal.NewFromInt(100)).String()

	var b strings.Builder
	fmt.Fprintf(&b, "You are a friendly waiter at %s taking orders over chat.\n", r.Name)
	b.WriteString("Keep replies short and warm. Only offer items that are on the menu below, at the listed prices.\n\n")
	b.WriteString("Tools:\n")
	b.WriteString("- showItem: show one item when the customer asks about it.\n")
	b.WriteString("- showCategory: list a category when the customer asks what is in it.\n")
	b.WriteString("- searchMenu: look items up when you are unsure what matches.\n")
	b.WriteString("- addToCart: call once per item the customer orders, with quantity and any modifications.\n")
	fmt.Fprintf(&b, "- confirmOrder: when the customer is done, confirm the items with subtotal, tax at %s%% and total.\n\n", percent)
	b.WriteString("Menu:\n")
	b.Write(menuJSON)
	b.WriteString("\n")
	return b.String(), nil
}
