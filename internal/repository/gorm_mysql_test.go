package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"petshop/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openMySQL connects to MYSQL_DSN and resets the schema, skipping when no database is reachable
func openMySQL(t *testing.T) *GormStore {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/petshop_test?charset=utf8mb4&parseTime=true&clientFoundRows=true"
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil || sqlDB.Ping() != nil {
		t.Skip("MySQL not available")
	}

	models := []any{&domain.OrderItem{}, &domain.Order{}, &domain.CartItem{}, &domain.Product{}, &domain.Category{}, &domain.User{}}
	require.NoError(t, db.Migrator().DropTable(models...))
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Category{}, &domain.Product{}, &domain.CartItem{}, &domain.Order{}, &domain.OrderItem{}))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewGormStore(db)
}

func seedGorm(t *testing.T, s *GormStore, stock int) (*domain.User, *domain.Category, *domain.Product) {
	t.Helper()
	ctx := context.Background()
	u := &domain.User{Username: "buyer", Email: "buyer@example.com", PasswordHash: "x", Role: domain.RoleUser}
	require.NoError(t, s.CreateUser(ctx, u))
	cat := &domain.Category{Name: "Dogs"}
	require.NoError(t, s.CreateCategory(ctx, cat))
	p := &domain.Product{Name: "Bone", Price: decimal.RequireFromString("10.50"), Stock: stock, CategoryID: cat.ID}
	require.NoError(t, s.CreateProduct(ctx, p))
	return u, cat, p
}

func TestGormStore_DecrementStockUnderContention(t *testing.T) {
	s := openMySQL(t)
	ctx := context.Background()
	_, _, p := seedGorm(t, s, 10)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := s.DecrementStock(ctx, p.ID, 1); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	got, err := s.ProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(10), wins.Load())
	assert.Equal(t, 0, got.Stock)
}

func TestGormStore_OrderTransactionRollsBack(t *testing.T) {
	s := openMySQL(t)
	ctx := context.Background()
	u, _, p := seedGorm(t, s, 5)
	require.NoError(t, s.SaveCartItem(ctx, &domain.CartItem{UserID: u.ID, ProductID: p.ID, Quantity: 2}))

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx Store) error {
		order := &domain.Order{
			UserID:      u.ID,
			TotalAmount: decimal.RequireFromString("21.00"),
			Status:      domain.OrderStatusPending,
			Items:       []domain.OrderItem{{ProductID: p.ID, Quantity: 2, Price: p.Price}},
		}
		require.NoError(t, tx.CreateOrder(ctx, order))
		ok, err := tx.DecrementStock(ctx, p.ID, 2)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, tx.ClearCart(ctx, u.ID))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.ProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
	items, err := s.CartItems(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	orders, err := s.ListOrders(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestGormStore_ConstraintsTranslate(t *testing.T) {
	s := openMySQL(t)
	ctx := context.Background()
	u, cat, p := seedGorm(t, s, 3)

	got, err := s.CategoryByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ProductCount)

	assert.ErrorIs(t, s.DeleteCategory(ctx, cat.ID), ErrReferenced)

	unchanged := *p
	unchanged.Category = nil
	assert.NoError(t, s.SaveProduct(ctx, &unchanged))
	orphan := unchanged
	orphan.CategoryID = 999
	assert.ErrorIs(t, s.SaveProduct(ctx, &orphan), ErrReferenced)
	ghost := unchanged
	ghost.ID = 999
	assert.ErrorIs(t, s.SaveProduct(ctx, &ghost), ErrNotFound)
	assert.ErrorIs(t, s.SaveCategory(ctx, &domain.Category{ID: 999, Name: "Ghost"}), ErrNotFound)
	assert.ErrorIs(t, s.CreateUser(ctx, &domain.User{Username: "buyer", Email: "x@example.com", PasswordHash: "x", Role: domain.RoleUser}), ErrDuplicate)

	require.NoError(t, s.SaveCartItem(ctx, &domain.CartItem{UserID: u.ID, ProductID: p.ID, Quantity: 1}))
	assert.ErrorIs(t, s.SaveCartItem(ctx, &domain.CartItem{UserID: u.ID, ProductID: p.ID, Quantity: 1}), ErrDuplicate)
	assert.ErrorIs(t, s.DeleteProduct(ctx, p.ID), ErrReferenced)

	_, err = s.OrderByID(ctx, 999, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
