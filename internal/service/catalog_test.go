package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"petshop/internal/domain"
	"petshop/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCatalogService_WritesRequireManager(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat := f.category(t, "Dogs")
	prod := f.product(t, cat.ID, "Leash", 15, 3)

	_, err := f.catalog.CreateCategory(ctx, customer, CategoryInput{Name: "Cats"})
	requireKind(t, err, domain.KindForbidden)
	_, err = f.catalog.CreateProduct(ctx, domain.Principal{}, ProductInput{Name: "x"})
	requireKind(t, err, domain.KindUnauthorized)
	requireKind(t, f.catalog.UpdateProduct(ctx, customer, prod.ID, ProductPatch{Stock: ptr(0)}), domain.KindForbidden)
	requireKind(t, f.catalog.DeleteCategory(ctx, customer, cat.ID), domain.KindForbidden)
}

func TestCatalogService_CreateProductValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat := f.category(t, "Fish")

	tests := []struct {
		name string
		in   ProductInput
	}{
		{"missing category", ProductInput{Name: "Tank", Price: decimal.NewFromInt(5), CategoryID: 999}},
		{"zero price", ProductInput{Name: "Tank", Price: decimal.Zero, CategoryID: cat.ID}},
		{"sub-cent price", ProductInput{Name: "Tank", Price: decimal.RequireFromString("0.004"), CategoryID: cat.ID}},
		{"fractional cents", ProductInput{Name: "Tank", Price: decimal.RequireFromString("9.995"), CategoryID: cat.ID}},
		{"price overflows column", ProductInput{Name: "Tank", Price: decimal.New(1, 16), CategoryID: cat.ID}},
		{"stock too large", ProductInput{Name: "Tank", Price: decimal.NewFromInt(5), Stock: domain.MaxQuantity + 1, CategoryID: cat.ID}},
		{"negative stock", ProductInput{Name: "Tank", Price: decimal.NewFromInt(5), Stock: -1, CategoryID: cat.ID}},
		{"empty name", ProductInput{Name: "  ", Price: decimal.NewFromInt(5), CategoryID: cat.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.catalog.CreateProduct(ctx, manager, tt.in)
			requireKind(t, err, domain.KindInvalidInput)
		})
	}

	created, err := f.catalog.CreateProduct(ctx, manager, ProductInput{
		Name:       "Tank",
		Price:      decimal.RequireFromString("49.99"),
		Stock:      2,
		ImageURL:   ptr("https://img.example.com/tank.png"),
		CategoryID: cat.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Fish", created.CategoryName())

	cheapest, err := f.catalog.CreateProduct(ctx, manager, ProductInput{Name: "Pebble", Price: decimal.RequireFromString("0.010"), CategoryID: cat.ID})
	require.NoError(t, err)
	assert.True(t, cheapest.Price.Equal(domain.MinPrice))

	err = f.catalog.UpdateProduct(ctx, manager, created.ID, ProductPatch{Price: ptr(decimal.RequireFromString("0.001"))})
	requireKind(t, err, domain.KindInvalidInput)
}

// categoryDroppingStore deletes the target category just before a product is
// moved into it, as a concurrent manager would
type categoryDroppingStore struct {
	*repository.MemoryStore
}

func (s categoryDroppingStore) SaveProduct(ctx context.Context, p *domain.Product) error {
	if err := s.MemoryStore.DeleteCategory(ctx, p.CategoryID); err != nil {
		return err
	}
	return s.MemoryStore.SaveProduct(ctx, p)
}

func TestCatalogService_UpdateProductCategoryDeletedConcurrently(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	catalog := NewCatalogService(categoryDroppingStore{mem}, newMapCache(), time.Minute)

	dogs, err := catalog.CreateCategory(ctx, manager, CategoryInput{Name: "Dogs"})
	require.NoError(t, err)
	cats, err := catalog.CreateCategory(ctx, manager, CategoryInput{Name: "Cats"})
	require.NoError(t, err)
	prod, err := catalog.CreateProduct(ctx, manager, ProductInput{Name: "Bowl", Price: decimal.NewFromInt(8), CategoryID: dogs.ID})
	require.NoError(t, err)

	err = catalog.UpdateProduct(ctx, manager, prod.ID, ProductPatch{CategoryID: &cats.ID})
	requireKind(t, err, domain.KindInvalidInput)
	assert.Equal(t, "category not found", err.Error())

	got, err := mem.ProductByID(ctx, prod.ID)
	require.NoError(t, err)
	assert.Equal(t, dogs.ID, got.CategoryID)
}

func TestCatalogService_UpdateProductIsPartial(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	dogs := f.category(t, "Dogs")
	cats := f.category(t, "Cats")
	prod, err := f.catalog.CreateProduct(ctx, manager, ProductInput{
		Name:        "Bowl",
		Description: "steel",
		Price:       decimal.NewFromInt(8),
		Stock:       4,
		ImageURL:    ptr("bowl.png"),
		CategoryID:  dogs.ID,
	})
	require.NoError(t, err)

	require.NoError(t, f.catalog.UpdateProduct(ctx, manager, prod.ID, ProductPatch{Price: ptr(decimal.NewFromInt(9))}))
	got, err := f.catalog.GetProduct(ctx, prod.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(9)))
	assert.Equal(t, "Bowl", got.Name)
	assert.Equal(t, "steel", got.Description)
	assert.Equal(t, 4, got.Stock)
	require.NotNil(t, got.ImageURL)

	err = f.catalog.UpdateProduct(ctx, manager, prod.ID, ProductPatch{CategoryID: ptr(uint(999))})
	requireKind(t, err, domain.KindInvalidInput)

	require.NoError(t, f.catalog.UpdateProduct(ctx, manager, prod.ID, ProductPatch{CategoryID: &cats.ID, ImageURL: ptr("")}))
	got, err = f.catalog.GetProduct(ctx, prod.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cats", got.CategoryName())
	assert.Nil(t, got.ImageURL)

	requireKind(t, f.catalog.UpdateProduct(ctx, manager, prod.ID, ProductPatch{Name: ptr("")}), domain.KindInvalidInput)
	requireKind(t, f.catalog.UpdateProduct(ctx, manager, 999, ProductPatch{}), domain.KindNotFound)
}

func TestCatalogService_DeleteRestrictions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat := f.category(t, "Birds")
	prod := f.product(t, cat.ID, "Cage", 60, 2)

	err := f.catalog.DeleteCategory(ctx, manager, cat.ID)
	requireKind(t, err, domain.KindConflict)
	assert.Equal(t, "cannot delete a category that owns products", err.Error())

	_, err = f.cart.AddToCart(ctx, customer, prod.ID, 1)
	require.NoError(t, err)
	requireKind(t, f.catalog.DeleteProduct(ctx, manager, prod.ID), domain.KindConflict)

	require.NoError(t, f.cart.ClearCart(ctx, customer))
	require.NoError(t, f.catalog.DeleteProduct(ctx, manager, prod.ID))
	require.NoError(t, f.catalog.DeleteCategory(ctx, manager, cat.ID))
	requireKind(t, f.catalog.DeleteCategory(ctx, manager, cat.ID), domain.KindNotFound)
	requireKind(t, f.catalog.DeleteProduct(ctx, manager, prod.ID), domain.KindNotFound)
}

func TestCatalogService_CategoryUpdateAndCount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat := f.category(t, "Reptiles")
	f.product(t, cat.ID, "Lamp", 20, 1)
	f.product(t, cat.ID, "Rock", 5, 10)

	require.NoError(t, f.catalog.UpdateCategory(ctx, manager, cat.ID, CategoryPatch{Description: ptr("Cold blooded")}))
	got, err := f.catalog.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reptiles", got.Name)
	assert.Equal(t, "Cold blooded", got.Description)
	assert.Equal(t, int64(2), got.ProductCount)

	requireKind(t, f.catalog.UpdateCategory(ctx, manager, cat.ID, CategoryPatch{Name: ptr(" ")}), domain.KindInvalidInput)
	requireKind(t, f.catalog.UpdateCategory(ctx, manager, 42, CategoryPatch{}), domain.KindNotFound)
	_, err = f.catalog.GetCategory(ctx, 42)
	requireKind(t, err, domain.KindNotFound)
}

func TestCatalogService_ReadsAreCachedUntilWrite(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cat := f.category(t, "Dogs")
	prod := f.product(t, cat.ID, "Ball", 3, 5)

	first, err := f.catalog.ListProducts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, first, 1)
	_, err = f.catalog.ListProducts(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)

	byCategory, err := f.catalog.ListProducts(ctx, &cat.ID)
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Dogs", byCategory[0].CategoryName())
	assert.Equal(t, 2, f.cache.size())

	require.NoError(t, f.catalog.UpdateProduct(ctx, manager, prod.ID, ProductPatch{Name: ptr("Tennis ball")}))
	assert.Zero(t, f.cache.size())

	after, err := f.catalog.ListProducts(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "Tennis ball", after[0].Name)
}

func TestCatalogService_CacheFailureDoesNotFailReads(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.category(t, "Dogs")
	f.cache.failing = true

	cats, err := f.catalog.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)

	_, err = f.catalog.CreateCategory(ctx, manager, CategoryInput{Name: "Cats"})
	require.NoError(t, err)
}

func TestReadCatalog_LoadOverlappingWriteIsNotServed(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()

	stale, err := readCatalog(ctx, cache, "product:1", time.Minute, func() (int, error) {
		invalidateCatalog(ctx, cache) // a write commits while this load is in flight
		return 5, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, stale)

	fresh, err := readCatalog(ctx, cache, "product:1", time.Minute, func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, fresh)

	cached, err := readCatalog(ctx, cache, "product:1", time.Minute, func() (int, error) {
		return 0, errors.New("expected a cache hit")
	})
	require.NoError(t, err)
	assert.Equal(t, 3, cached)
}
