package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category Model
type Category struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Description  string    `gorm:"size:500" json:"description"`
	CreatedAt    time.Time `json:"createdAt"`
	ProductCount int64     `gorm:"->;-:migration" json:"productCount"` // Filled by list/get queries only
}

// Product Model
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:200;not null" json:"name"`
	Description string          `gorm:"size:1000" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"price"`
	Stock       int             `gorm:"not null" json:"stock"`
	ImageURL    *string         `gorm:"size:500" json:"imageUrl"`
	CategoryID  uint            `gorm:"not null;index" json:"categoryId"`
	Category    *Category       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// CategoryName is the loaded category's name, or "" when it was not loaded
func (p Product) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Name
}

// Field limits shared by validation and column sizes
const (
	MaxCategoryNameLen        = 100
	MaxCategoryDescriptionLen = 500
	MaxProductNameLen         = 200
	MaxProductDescriptionLen  = 1000
	MaxImageURLLen            = 500

	MaxQuantity = 2147483647 // Upper bound for stock levels and cart line quantities
	PriceScale  = 2          // Decimal places kept by the price column
)

// MinPrice is the smallest price the decimal(18,2) column can hold above zero
var MinPrice = decimal.New(1, -PriceScale)

// MaxPrice is the first price too large for decimal(18,2)
var MaxPrice = decimal.New(1, 16)
