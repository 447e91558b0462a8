package service

import (
	"context"
	"fmt"

	"petshop/internal/domain"
	"petshop/internal/events"
	"petshop/internal/repository"
	"petshop/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// OrderService turns carts into orders and serves order history
type OrderService struct {
	store     repository.Store
	cache     utils.Cache
	publisher events.Publisher
}

func NewOrderService(store repository.Store, cache utils.Cache, publisher events.Publisher) *OrderService {
	return &OrderService{store: store, cache: cache, publisher: publisher}
}

// CreateOrder checks out the caller's cart. The order, its items, the stock decrements
// and the cart cleanup commit together or not at all.
func (s *OrderService) CreateOrder(ctx context.Context, p domain.Principal) (*domain.Order, error) {
	if err := p.Require(domain.RoleUser); err != nil {
		return nil, err
	}

	var orderID uint
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		lines, err := tx.CartItems(ctx, p.UserID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(lines) == 0 {
			return domain.InvalidInput("cart is empty")
		}

		// Check every line before writing anything
		for _, line := range lines {
			if line.Product.Stock < line.Quantity {
				return domain.InvalidInput("insufficient stock for product %q", line.Product.Name)
			}
		}

		order := &domain.Order{
			UserID:      p.UserID,
			TotalAmount: decimal.Zero,
			Status:      domain.OrderStatusPending,
			Items:       make([]domain.OrderItem, 0, len(lines)),
		}
		for _, line := range lines {
			order.TotalAmount = order.TotalAmount.Add(line.LineTotal())
			order.Items = append(order.Items, domain.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     line.Product.Price, // Frozen at purchase
			})
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, line := range lines {
			ok, err := tx.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if !ok {
				// Another checkout took the stock after our read
				return domain.InvalidInput("insufficient stock for product %q", line.Product.Name)
			}
		}

		if err := tx.ClearCart(ctx, p.UserID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": p.UserID, "error": err.Error()}).Warn("Order creation failed")
		return nil, err
	}

	// Stock changed, so cached product reads are stale
	invalidateCatalog(ctx, s.cache)

	order, err := s.store.OrderByID(ctx, orderID, &p.UserID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}
	s.publishCreated(ctx, order)

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  p.UserID,
		"total":    order.TotalAmount.StringFixed(2),
		"items":    len(order.Items),
	}).Info("Order created")
	return order, nil
}

func (s *OrderService) publishCreated(ctx context.Context, order *domain.Order) {
	env, err := events.OrderCreated(order)
	if err == nil {
		err = s.publisher.Publish(ctx, env)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{"order_id": order.ID, "error": err.Error()}).Error("Failed to publish OrderCreated")
	}
}

// GetOrders lists the caller's orders, newest first
func (s *OrderService) GetOrders(ctx context.Context, p domain.Principal) ([]domain.Order, error) {
	if err := p.Require(domain.RoleUser); err != nil {
		return nil, err
	}
	orders, err := s.store.ListOrders(ctx, &p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns one of the caller's orders; someone else's order is NotFound
func (s *OrderService) GetOrder(ctx context.Context, p domain.Principal, id uint) (*domain.Order, error) {
	if err := p.Require(domain.RoleUser); err != nil {
		return nil, err
	}
	order, err := s.store.OrderByID(ctx, id, &p.UserID)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	return order, nil
}

// GetAllOrders lists every order in the system, newest first
func (s *OrderService) GetAllOrders(ctx context.Context, p domain.Principal) ([]domain.Order, error) {
	if err := p.Require(domain.RoleManager); err != nil {
		return nil, err
	}
	orders, err := s.store.ListOrders(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
