package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"petshop/internal/domain"
	"petshop/internal/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderService_CheckoutScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat := f.category(t, "Dogs")
	prod := f.product(t, cat.ID, "Kennel", 100, 5)

	_, err := f.cart.AddToCart(ctx, customer, prod.ID, 5)
	require.NoError(t, err)

	order, err := f.orders.CreateOrder(ctx, customer)
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(500)), "total %s", order.TotalAmount)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Kennel", order.Items[0].Product.Name)
	assert.Equal(t, 5, order.Items[0].Quantity)
	assert.Equal(t, 0, f.stockOf(t, prod.ID))

	cart, err := f.cart.GetCart(ctx, customer)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = f.orders.CreateOrder(ctx, customer)
	requireKind(t, err, domain.KindInvalidInput)
	assert.Equal(t, "cart is empty", err.Error())
}

func TestOrderService_TotalsAndFrozenPrices(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat := f.category(t, "Fish")
	a := f.product(t, cat.ID, "Food", 3, 10)
	b, err := f.catalog.CreateProduct(ctx, manager, ProductInput{
		Name: "Filter", Price: decimal.RequireFromString("19.95"), Stock: 4, CategoryID: cat.ID,
	})
	require.NoError(t, err)

	_, err = f.cart.AddToCart(ctx, customer, a.ID, 4)
	require.NoError(t, err)
	_, err = f.cart.AddToCart(ctx, customer, b.ID, 2)
	require.NoError(t, err)

	order, err := f.orders.CreateOrder(ctx, customer)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, it := range order.Items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	assert.True(t, sum.Equal(order.TotalAmount))
	assert.Equal(t, "51.90", order.TotalAmount.StringFixed(2))
	assert.Equal(t, 6, f.stockOf(t, a.ID))
	assert.Equal(t, 2, f.stockOf(t, b.ID))

	// Repricing later does not touch the order
	require.NoError(t, f.catalog.UpdateProduct(ctx, manager, a.ID, ProductPatch{Price: ptr(decimal.NewFromInt(99))}))
	got, err := f.orders.GetOrder(ctx, customer, order.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(order.TotalAmount))
	for _, it := range got.Items {
		if it.ProductID == a.ID {
			assert.True(t, it.Price.Equal(decimal.NewFromInt(3)))
		}
	}
}

func TestOrderService_InsufficientStockRollsBackEverything(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat := f.category(t, "Birds")
	plenty := f.product(t, cat.ID, "Seed", 2, 50)
	scarce := f.product(t, cat.ID, "Perch", 7, 3)

	_, err := f.cart.AddToCart(ctx, customer, plenty.ID, 10)
	require.NoError(t, err)
	_, err = f.cart.AddToCart(ctx, customer, scarce.ID, 3)
	require.NoError(t, err)

	// Another shopper buys the perches first
	shopper := domain.Principal{UserID: 2, Role: domain.RoleUser}
	_, err = f.cart.AddToCart(ctx, shopper, scarce.ID, 2)
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(ctx, shopper)
	require.NoError(t, err)

	_, err = f.orders.CreateOrder(ctx, customer)
	requireKind(t, err, domain.KindInvalidInput)
	assert.Contains(t, err.Error(), `"Perch"`)

	assert.Equal(t, 50, f.stockOf(t, plenty.ID))
	assert.Equal(t, 1, f.stockOf(t, scarce.ID))
	cart, err := f.cart.GetCart(ctx, customer)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	mine, err := f.orders.GetOrders(ctx, customer)
	require.NoError(t, err)
	assert.Empty(t, mine)
	assert.Len(t, f.publisher.envelopes(), 1)
}

func TestOrderService_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat := f.category(t, "Dogs")
	prod := f.product(t, cat.ID, "Limited bed", 80, 3)

	const shoppers = 12
	for i := 1; i <= shoppers; i++ {
		_, err := f.cart.AddToCart(ctx, domain.Principal{UserID: uint(i), Role: domain.RoleUser}, prod.ID, 1)
		require.NoError(t, err)
	}

	var wins, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 1; i <= shoppers; i++ {
		wg.Add(1)
		go func(p domain.Principal) {
			defer wg.Done()
			_, err := f.orders.CreateOrder(ctx, p)
			switch {
			case err == nil:
				wins.Add(1)
			case domain.KindOf(err) == domain.KindInvalidInput:
				rejected.Add(1)
			}
		}(domain.Principal{UserID: uint(i), Role: domain.RoleUser})
	}
	wg.Wait()

	assert.Equal(t, int32(3), wins.Load())
	assert.Equal(t, int32(shoppers-3), rejected.Load())
	assert.Equal(t, 0, f.stockOf(t, prod.ID))

	all, err := f.orders.GetAllOrders(ctx, manager)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOrderService_PublishesAndInvalidates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat := f.category(t, "Cats")
	prod := f.product(t, cat.ID, "Litter", 12, 9)

	_, err := f.catalog.GetProduct(ctx, prod.ID)
	require.NoError(t, err)
	require.Equal(t, 1, f.cache.size())

	_, err = f.cart.AddToCart(ctx, customer, prod.ID, 2)
	require.NoError(t, err)
	order, err := f.orders.CreateOrder(ctx, customer)
	require.NoError(t, err)
	assert.Zero(t, f.cache.size())

	got, err := f.catalog.GetProduct(ctx, prod.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)

	sent := f.publisher.envelopes()
	require.Len(t, sent, 1)
	assert.Equal(t, events.EventOrderCreated, sent[0].EventType)
	var payload events.OrderCreatedPayload
	require.NoError(t, json.Unmarshal(sent[0].Payload, &payload))
	assert.Equal(t, order.ID, payload.OrderID)
	assert.Equal(t, customer.UserID, payload.UserID)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, 2, payload.Items[0].Quantity)
}

func TestOrderService_PublishFailureKeepsOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.publisher.err = errors.New("broker down")
	cat := f.category(t, "Cats")
	prod := f.product(t, cat.ID, "Brush", 6, 2)

	_, err := f.cart.AddToCart(ctx, customer, prod.ID, 1)
	require.NoError(t, err)
	order, err := f.orders.CreateOrder(ctx, customer)
	require.NoError(t, err)

	got, err := f.orders.GetOrder(ctx, customer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestOrderService_Queries(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat := f.category(t, "Dogs")
	prod := f.product(t, cat.ID, "Chew", 1, 100)
	other := domain.Principal{UserID: 2, Role: domain.RoleUser}

	checkout := func(p domain.Principal) *domain.Order {
		_, err := f.cart.AddToCart(ctx, p, prod.ID, 1)
		require.NoError(t, err)
		o, err := f.orders.CreateOrder(ctx, p)
		require.NoError(t, err)
		return o
	}
	first := checkout(customer)
	time.Sleep(2 * time.Millisecond)
	second := checkout(customer)
	theirs := checkout(other)

	mine, err := f.orders.GetOrders(ctx, customer)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	_, err = f.orders.GetOrder(ctx, customer, theirs.ID)
	requireKind(t, err, domain.KindNotFound)

	_, err = f.orders.GetAllOrders(ctx, customer)
	requireKind(t, err, domain.KindForbidden)
	_, err = f.orders.CreateOrder(ctx, manager)
	requireKind(t, err, domain.KindForbidden)

	all, err := f.orders.GetAllOrders(ctx, manager)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, theirs.ID, all[0].ID)
}
