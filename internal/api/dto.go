package api

import (
	"time"

	"petshop/internal/domain"

	"github.com/shopspring/decimal"
)

type CategoryResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ProductCount int64  `json:"productCount"`
}

type ProductResponse struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	ImageURL     *string         `json:"imageUrl"`
	CategoryID   uint            `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
}

type CartItemResponse struct {
	ID              uint            `json:"id"`
	ProductID       uint            `json:"productId"`
	ProductName     string          `json:"productName"`
	ProductPrice    decimal.Decimal `json:"productPrice"`
	ProductImageURL *string         `json:"productImageUrl"`
	Quantity        int             `json:"quantity"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
}

type CartResponse struct {
	Items       []CartItemResponse `json:"items"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	TotalItems  int                `json:"totalItems"`
}

type OrderItemResponse struct {
	ProductID   uint            `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type OrderResponse struct {
	ID          uint                `json:"id"`
	UserID      uint                `json:"userId"`
	TotalAmount decimal.Decimal     `json:"totalAmount"`
	Status      domain.OrderStatus  `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	Items       []OrderItemResponse `json:"items"`
}

func toCategory(c *domain.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Description: c.Description, ProductCount: c.ProductCount}
}

func toProduct(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Stock:        p.Stock,
		ImageURL:     p.ImageURL,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName(),
	}
}

func toCartItem(it *domain.CartItem) CartItemResponse {
	return CartItemResponse{
		ID:              it.ID,
		ProductID:       it.ProductID,
		ProductName:     it.Product.Name,
		ProductPrice:    it.Product.Price,
		ProductImageURL: it.Product.ImageURL,
		Quantity:        it.Quantity,
		TotalPrice:      it.LineTotal(),
	}
}

func toCart(cart *domain.Cart) CartResponse {
	resp := CartResponse{
		Items:       make([]CartItemResponse, len(cart.Items)),
		TotalAmount: cart.TotalAmount(),
		TotalItems:  cart.TotalItems(),
	}
	for i := range cart.Items {
		resp.Items[i] = toCartItem(&cart.Items[i])
	}
	return resp
}

func toOrder(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		Items:       make([]OrderItemResponse, len(o.Items)),
	}
	for i, it := range o.Items {
		resp.Items[i] = OrderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.Product.Name,
			Quantity:    it.Quantity,
			Price:       it.Price,
		}
	}
	return resp
}

func toOrders(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = toOrder(&orders[i])
	}
	return out
}
