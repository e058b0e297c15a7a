package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MenuItem represents a dish on the menu
type MenuItem struct {
	Name          string           `json:"name" yaml:"name"`
	Price         decimal.Decimal  `json:"price" yaml:"price"`
	Description   string           `json:"description,omitempty" yaml:"description,omitempty"`
	Subcategory   string           `json:"subcategory,omitempty" yaml:"subcategory,omitempty"`
	Image         string           `json:"image,omitempty" yaml:"image,omitempty"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty" yaml:"original_price,omitempty"`
}

// MenuCategory groups menu items under a heading
type MenuCategory struct {
	Name  string     `json:"name" yaml:"name"`
	Image string     `json:"image,omitempty" yaml:"image,omitempty"`
	Items []MenuItem `json:"items" yaml:"items"`
}

// Menu is the read-only catalog for a session
type Menu struct {
	Categories []MenuCategory `json:"categories" yaml:"categories"`
}

// MenuHit is a search result that remembers the category an item came from
type MenuHit struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

// ValidateMenuItem validates a menu item
func ValidateMenuItem(item *MenuItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("menu item name is required")
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("menu item %q price must not be negative", item.Name)
	}
	return nil
}

// Validate checks every item and enforces unique item names across the catalog
func (m *Menu) Validate() error {
	seen := make(map[string]string)
	for _, cat := range m.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("menu category name is required")
		}
		for i := range cat.Items {
			item := &cat.Items[i]
			if err := ValidateMenuItem(item); err != nil {
				return err
			}
			key := strings.ToLower(strings.TrimSpace(item.Name))
			if prev, ok := seen[key]; ok {
				return fmt.Errorf("menu item %q appears in both %q and %q", item.Name, prev, cat.Name)
			}
			seen[key] = cat.Name
		}
	}
	return nil
}

// FindItem looks an item up by name, ignoring case
func (m *Menu) FindItem(name string) (MenuItem, string, bool) {
	name = strings.TrimSpace(name)
	for _, cat := range m.Categories {
		for _, item := range cat.Items {
			if strings.EqualFold(item.Name, name) {
				return item, cat.Name, true
			}
		}
	}
	return MenuItem{}, "", false
}

// Category returns the category with the given name, ignoring case
func (m *Menu) Category(name string) (MenuCategory, bool) {
	name = strings.TrimSpace(name)
	for _, cat := range m.Categories {
		if strings.EqualFold(cat.Name, name) {
			return cat, true
		}
	}
	return MenuCategory{}, false
}

// Search matches the query against item names, descriptions and subcategories
func (m *Menu) Search(query string) []MenuHit {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var hits []MenuHit
	for _, cat := range m.Categories {
		for _, item := range cat.Items {
			if strings.Contains(strings.ToLower(item.Name), q) ||
				strings.Contains(strings.ToLower(item.Description), q) ||
				strings.Contains(strings.ToLower(item.Subcategory), q) {
				hits = append(hits, MenuHit{Name: item.Name, Price: item.Price, Category: cat.Name})
			}
		}
	}
	return hits
}

// ItemCount returns the number of items across all categories
func (m *Menu) ItemCount() int {
	n := 0
	for _, cat := range m.Categories {
		n += len(cat.Items)
	}
	return n
}
