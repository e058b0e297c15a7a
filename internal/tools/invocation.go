// Package tools defines the five ordering tools the model may call, decodes and
// validates their arguments, and derives stable invocation ids.
package tools

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Name identifies one of the ordering tools
type Name string

const (
	ShowItem     Name = "showItem"
	ShowCategory Name = "showCategory"
	AddToCart    Name = "addToCart"
	ConfirmOrder Name = "confirmOrder"
	SearchMenu   Name = "searchMenu"
)

// Names lists every known tool in schema order
var Names = []Name{ShowItem, ShowCategory, AddToCart, ConfirmOrder, SearchMenu}

// Known reports whether n is one of the ordering tools
func Known(n Name) bool {
	for _, k := range Names {
		if k == n {
			return true
		}
	}
	return false
}

// Mutates reports whether invocations of this tool change the cart
func (n Name) Mutates() bool {
	return n == AddToCart
}

// Args is the closed set of decoded tool payloads
type Args interface {
	Tool() Name
	isArgs()
}

// Invocation is a decoded, validated tool call
type Invocation struct {
	ID        string `json:"invocationId"`
	MessageID string `json:"messageId"`
	CallID    string `json:"callId,omitempty"`
	Tool      Name   `json:"toolName"`
	Args      Args   `json:"arguments"`
	// Canonical is the sorted-key, normalized JSON the id was derived from
	Canonical []byte `json:"-"`
}

// ShowItemArgs displays a single menu item
type ShowItemArgs struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category,omitempty"`
	Modifications []string        `json:"modifications"`
}

// CategoryEntry is one item listed by showCategory
type CategoryEntry struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
}

// ShowCategoryArgs displays a category listing
type ShowCategoryArgs struct {
	Category string          `json:"category"`
	Items    []CategoryEntry `json:"items"`
}

// AddToCartArgs adds quantity units of an item to the cart
type AddToCartArgs struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	Modifications []string        `json:"modifications"`
}

// OrderItemArgs is one item the model believes is in the order
type OrderItemArgs struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	Modifications []string        `json:"modifications"`
}

// ConfirmOrderArgs finalizes the order. Totals are the model's claim and are never trusted.
type ConfirmOrderArgs struct {
	Items       []OrderItemArgs `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	TableNumber *int            `json:"tableNumber,omitempty"`
}

// SearchMenuArgs searches the catalog
type SearchMenuArgs struct {
	Query string `json:"query"`
}

func (ShowItemArgs) Tool() Name     { return ShowItem }
func (ShowCategoryArgs) Tool() Name { return ShowCategory }
func (AddToCartArgs) Tool() Name    { return AddToCart }
func (ConfirmOrderArgs) Tool() Name { return ConfirmOrder }
func (SearchMenuArgs) Tool() Name   { return SearchMenu }

func (ShowItemArgs) isArgs()     {}
func (ShowCategoryArgs) isArgs() {}
func (AddToCartArgs) isArgs()    {}
func (ConfirmOrderArgs) isArgs() {}
func (SearchMenuArgs) isArgs()   {}

var invocationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tableside:tool-invocation"))

// InvocationID derives the id of a tool call from its message, tool name and
// canonical arguments. Equal inputs always give equal ids.
func InvocationID(messageID string, tool Name, canonical []byte) string {
	data := make([]byte, 0, len(messageID)+len(tool)+len(canonical)+2)
	data = append(data, messageID...)
	data = append(data, 0)
	data = append(data, tool...)
	data = append(data, 0)
	data = append(data, canonical...)
	return uuid.NewSHA1(invocationNamespace, data).String()
}
