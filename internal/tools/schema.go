package tools

import (
	"github.com/tmc/langchaingo/llms"
)

type schema = map[string]any

func object(required []string, props schema) schema {
	s := schema{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, desc string) schema {
	return schema{"type": typ, "description": desc}
}

func stringList(desc string) schema {
	return schema{"type": "array", "items": schema{"type": "string"}, "description": desc}
}

func orderItem() schema {
	return object([]string{"name", "price"}, schema{
		"name":          prop("string", "Item name"),
		"price":         prop("number", "Unit price"),
		"quantity":      schema{"type": "integer", "minimum": 1, "default": 1},
		"modifications": stringList("Customer requested modifications"),
	})
}

// Definitions returns the tool declarations offered to the model. Field names
// are fixed: models are prompted against exactly these shapes.
func Definitions() []llms.Tool {
	defs := []llms.FunctionDefinition{
		{
			Name:        string(ShowItem),
			Description: "Display a menu item with image and details",
			Parameters: object([]string{"name", "price"}, schema{
				"name":          prop("string", "Item name"),
				"price":         prop("number", "Item price"),
				"description":   prop("string", "Item description"),
				"category":      prop("string", "Menu category"),
				"modifications": stringList("Customer requested modifications"),
			}),
		},
		{
			Name:        string(ShowCategory),
			Description: "Display every item in a menu category",
			Parameters: object([]string{"category", "items"}, schema{
				"category": prop("string", "Menu category"),
				"items": schema{
					"type": "array",
					"items": object([]string{"name", "price"}, schema{
						"name":        prop("string", "Item name"),
						"price":       prop("number", "Item price"),
						"description": prop("string", "Item description"),
					}),
				},
			}),
		},
		{
			Name:        string(AddToCart),
			Description: "Add item to cart",
			Parameters: object([]string{"name", "price"}, schema{
				"name":          prop("string", "Item name"),
				"price":         prop("number", "Unit price"),
				"quantity":      schema{"type": "integer", "minimum": 1, "default": 1},
				"modifications": stringList("Customer requested modifications"),
			}),
		},
		{
			Name:        string(ConfirmOrder),
			Description: "Show order confirmation with payment options",
			Parameters: object([]string{"items", "subtotal", "tax", "total"}, schema{
				"items":       schema{"type": "array", "items": orderItem(), "minItems": 1},
				"subtotal":    prop("number", "Sum of price times quantity"),
				"tax":         prop("number", "Sales tax on the subtotal"),
				"total":       prop("number", "Subtotal plus tax"),
				"tableNumber": schema{"type": "integer", "minimum": 1, "maximum": 20},
			}),
		},
		{
			Name:        string(SearchMenu),
			Description: "Search the menu by keyword or category name",
			Parameters: object([]string{"query"}, schema{
				"query": prop("string", "What the customer is looking for"),
			}),
		},
	}

	out := make([]llms.Tool, 0, len(defs))
	for i := range defs {
		out = append(out, llms.Tool{Type: "function", Function: &defs[i]})
	}
	return out
}
