package service

import (
	"context"
	"errors"
	"fmt"

	"petshop/internal/domain"
	"petshop/internal/repository"

	"github.com/sirupsen/logrus"
)

const errInsufficientStock = "insufficient stock"

// CartService manages the authenticated user's cart
type CartService struct {
	store repository.Store
}

func NewCartService(store repository.Store) *CartService {
	return &CartService{store: store}
}

// GetCart returns the caller's lines priced at the current product price
func (s *CartService) GetCart(ctx context.Context, p domain.Principal) (*domain.Cart, error) {
	if err := p.Require(domain.RoleUser); err != nil {
		return nil, err
	}
	items, err := s.store.CartItems(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return &domain.Cart{Items: items}, nil
}

// AddToCart inserts a line or bumps the existing one for the same product. The sum
// of the new and existing quantity may not exceed stock.
func (s *CartService) AddToCart(ctx context.Context, p domain.Principal, productID uint, qty int) (*domain.CartItem, error) {
	if err := p.Require(domain.RoleUser); err != nil {
		return nil, err
	}
	if qty < 1 || qty > domain.MaxQuantity {
		return nil, domain.InvalidInput("quantity must be between 1 and %d", domain.MaxQuantity)
	}

	var saved *domain.CartItem
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		product, err := tx.ProductByID(ctx, productID)
		if err != nil {
			return notFound(err, "product not found")
		}

		item, err := tx.CartItemByProduct(ctx, p.UserID, productID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			item = &domain.CartItem{UserID: p.UserID, ProductID: productID} // New line
		case err != nil:
			return fmt.Errorf("find cart line: %w", err)
		}

		// Both sides stay non-negative, so the comparison cannot overflow
		if qty > product.Stock-item.Quantity {
			return domain.InvalidInput(errInsufficientStock)
		}
		item.Quantity += qty

		if err := tx.SaveCartItem(ctx, item); err != nil {
			// Two concurrent adds both saw no line
			if errors.Is(err, repository.ErrDuplicate) {
				return domain.Conflict("cart was modified concurrently, retry")
			}
			return fmt.Errorf("save cart line: %w", err)
		}
		item.Product = *product
		saved = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    p.UserID,
		"product_id": productID,
		"quantity":   saved.Quantity,
	}).Info("Added to cart")
	return saved, nil
}

// UpdateCartItem sets the quantity of one of the caller's lines
func (s *CartService) UpdateCartItem(ctx context.Context, p domain.Principal, itemID uint, qty int) error {
	if err := p.Require(domain.RoleUser); err != nil {
		return err
	}
	if qty < 1 || qty > domain.MaxQuantity {
		return domain.InvalidInput("quantity must be between 1 and %d", domain.MaxQuantity)
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		item, err := tx.CartItemByID(ctx, p.UserID, itemID)
		if err != nil {
			return notFound(err, "cart item not found")
		}
		if qty > item.Product.Stock {
			return domain.InvalidInput(errInsufficientStock)
		}
		item.Quantity = qty
		if err := tx.SaveCartItem(ctx, item); err != nil {
			return notFound(err, "cart item not found")
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{"user_id": p.UserID, "item_id": itemID, "quantity": qty}).Info("Cart item updated")
	return nil
}

// RemoveFromCart deletes one of the caller's lines; an absent line is not an error
func (s *CartService) RemoveFromCart(ctx context.Context, p domain.Principal, itemID uint) error {
	if err := p.Require(domain.RoleUser); err != nil {
		return err
	}
	if err := s.store.DeleteCartItem(ctx, p.UserID, itemID); err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": p.UserID, "item_id": itemID}).Info("Removed from cart")
	return nil
}

func (s *CartService) ClearCart(ctx context.Context, p domain.Principal) error {
	if err := p.Require(domain.RoleUser); err != nil {
		return err
	}
	if err := s.store.ClearCart(ctx, p.UserID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	logrus.WithField("user_id", p.UserID).Info("Cart cleared")
	return nil
}
