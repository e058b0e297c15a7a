package catalog

import (
	"fmt"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"              // SQLite driver
	"github.com/shopspring/decimal"

	"tableside/internal/models"
)

// CategoryRecord is a menu category row
type CategoryRecord struct {
	gorm.Model
	Name     string `gorm:"unique_index;not null"`
	Image    string
	Position int
	Items    []ItemRecord `gorm:"foreignkey:CategoryID"`
}

// TableName sets the category table name
func (CategoryRecord) TableName() string { return "menu_categories" }

// ItemRecord is a menu item row. Prices are stored as decimal strings.
type ItemRecord struct {
	gorm.Model
	CategoryID    uint   `gorm:"index"`
	Name          string `gorm:"unique_index;not null"`
	Price         string `gorm:"type:varchar(20);not null"`
	OriginalPrice string `gorm:"type:varchar(20)"`
	Description   string
	Subcategory   string
	Image         string
	Position      int
}

// TableName sets the item table name
func (ItemRecord) TableName() string { return "menu_items" }

// Store is a gorm-backed menu catalog
type Store struct {
	db *gorm.DB
}

// OpenStore connects to the database and migrates the menu tables
func OpenStore(driver, dsn string) (*Store, error) {
	db, err := gorm.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s menu database: %w", driver, err)
	}
	if err := db.AutoMigrate(&CategoryRecord{}, &ItemRecord{}).Error; err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate menu tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Count returns the number of stored menu items
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.Model(&ItemRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count menu items: %w", err)
	}
	return n, nil
}

// SeedIfEmpty writes menu into empty tables and reports whether it did
func (s *Store) SeedIfEmpty(menu *models.Menu) (bool, error) {
	n, err := s.Count()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	return true, s.Replace(menu)
}

// Replace swaps the stored menu for the given one in a single transaction
func (s *Store) Replace(menu *models.Menu) error {
	if err := menu.Validate(); err != nil {
		return fmt.Errorf("invalid menu: %w", err)
	}

	tx := s.db.Begin()
	if err := tx.Error; err != nil {
		return fmt.Errorf("failed to begin menu transaction: %w", err)
	}
	if err := tx.Unscoped().Delete(&ItemRecord{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear menu items: %w", err)
	}
	if err := tx.Unscoped().Delete(&CategoryRecord{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear menu categories: %w", err)
	}

	for ci, cat := range menu.Categories {
		rec := CategoryRecord{Name: cat.Name, Image: cat.Image, Position: ci}
		if err := tx.Create(&rec).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to create category %q: %w", cat.Name, err)
		}
		for ii, item := range cat.Items {
			row := ItemRecord{
				CategoryID:  rec.ID,
				Name:        item.Name,
				Price:       item.Price.StringFixed(2),
				Description: item.Description,
				Subcategory: item.Subcategory,
				Image:       item.Image,
				Position:    ii,
			}
			if item.OriginalPrice != nil {
				row.OriginalPrice = item.OriginalPrice.StringFixed(2)
			}
			if err := tx.Create(&row).Error; err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to create item %q: %w", item.Name, err)
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit menu: %w", err)
	}
	return nil
}

// Load reads the full menu in stored order
func (s *Store) Load() (*models.Menu, error) {
	var cats []CategoryRecord
	err := s.db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Order("position asc").
		Find(&cats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}

	menu := &models.Menu{Categories: make([]models.MenuCategory, 0, len(cats))}
	for _, c := range cats {
		cat := models.MenuCategory{Name: c.Name, Image: c.Image, Items: make([]models.MenuItem, 0, len(c.Items))}
		for _, r := range c.Items {
			item, err := r.toMenuItem()
			if err != nil {
				return nil, err
			}
			cat.Items = append(cat.Items, item)
		}
		menu.Categories = append(menu.Categories, cat)
	}
	return menu, nil
}

func (r ItemRecord) toMenuItem() (models.MenuItem, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return models.MenuItem{}, fmt.Errorf("menu item %q has invalid price %q: %w", r.Name, r.Price, err)
	}
	item := models.MenuItem{
		Name:        r.Name,
		Price:       price,
		Description: r.Description,
		Subcategory: r.Subcategory,
		Image:       r.Image,
	}
	if r.OriginalPrice != "" {
		orig, err := decimal.NewFromString(r.OriginalPrice)
		if err != nil {
			return models.MenuItem{}, fmt.Errorf("menu item %q has invalid original price %q: %w", r.Name, r.OriginalPrice, err)
		}
		item.OriginalPrice = &orig
	}
	return item, nil
}
