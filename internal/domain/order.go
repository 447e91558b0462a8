package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order. Orders are created Pending and nothing
// in this service moves them on; Completed and Cancelled are reserved for fulfilment tooling.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// CartItem Model, one row per (user, product)
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"userId"`
	User      User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"productId"`
	Product   Product   `gorm:"constraint:OnDelete:RESTRICT;" json:"-"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

// LineTotal is the live price of the line
func (ci CartItem) LineTotal() decimal.Decimal {
	return ci.Product.Price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// Cart is a user's cart with products joined in
type Cart struct {
	Items []CartItem
}

// TotalAmount sums price x quantity over every line
func (c Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// TotalItems sums quantities over every line
func (c Cart) TotalItems() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Order Model
type Order struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"userId"`
	User        User            `gorm:"constraint:OnDelete:RESTRICT;" json:"-"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"totalAmount"`
	Status      OrderStatus     `gorm:"size:50;not null;default:Pending" json:"status"`
	CreatedAt   time.Time       `gorm:"index" json:"createdAt"`
	Items       []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE;" json:"items"`
}

// OrderItem Model. Price is the product price frozen at checkout.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"orderId"`
	ProductID uint            `gorm:"not null;index" json:"productId"`
	Product   Product         `gorm:"constraint:OnDelete:RESTRICT;" json:"-"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"price"`
}
