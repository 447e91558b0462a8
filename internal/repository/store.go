// Package repository holds the persistence port used by the services and its
// gorm-backed and in-memory implementations.
package repository

import (
	"context"
	"errors"

	"petshop/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row (or no row the caller owns)
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique index
	ErrDuplicate = errors.New("duplicate key")
	// ErrReferenced is returned when a write violates a foreign key: deleting a
	// referenced row, or pointing at a parent that does not exist
	ErrReferenced = errors.New("record is still referenced")
)

// UserRepository stores accounts
type UserRepository interface {
	CreateUser(ctx context.Context, u *domain.User) error
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	UserTaken(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error)
}

// CatalogRepository stores categories and products. Reads fill Category.ProductCount
// and Product.Category.
type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CategoryByID(ctx context.Context, id uint) (*domain.Category, error)
	CreateCategory(ctx context.Context, c *domain.Category) error
	SaveCategory(ctx context.Context, c *domain.Category) error
	DeleteCategory(ctx context.Context, id uint) error
	CountProductsInCategory(ctx context.Context, categoryID uint) (int64, error)

	ListProducts(ctx context.Context, categoryID *uint) ([]domain.Product, error)
	ProductByID(ctx context.Context, id uint) (*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	SaveProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	ProductReferenced(ctx context.Context, id uint) (bool, error)

	// DecrementStock subtracts qty only if at least qty is in stock; it reports false otherwise.
	DecrementStock(ctx context.Context, productID uint, qty int) (bool, error)
}

// CartRepository stores cart lines. Every lookup is scoped by user and fills CartItem.Product.
type CartRepository interface {
	CartItems(ctx context.Context, userID uint) ([]domain.CartItem, error)
	CartItemByID(ctx context.Context, userID, itemID uint) (*domain.CartItem, error)
	CartItemByProduct(ctx context.Context, userID, productID uint) (*domain.CartItem, error)
	SaveCartItem(ctx context.Context, item *domain.CartItem) error
	DeleteCartItem(ctx context.Context, userID, itemID uint) error
	ClearCart(ctx context.Context, userID uint) error
}

// OrderRepository stores orders with their items. A nil userID means "any user".
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	OrderByID(ctx context.Context, id uint, userID *uint) (*domain.Order, error)
	ListOrders(ctx context.Context, userID *uint) ([]domain.Order, error)
}

// Store is the full persistence port. Transaction runs fn against a store bound to a
// single transaction: commit when fn returns nil, roll back otherwise.
type Store interface {
	UserRepository
	CatalogRepository
	CartRepository
	OrderRepository

	Transaction(ctx context.Context, fn func(tx Store) error) error
}
