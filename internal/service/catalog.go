package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"petshop/internal/domain"
	"petshop/internal/repository"
	"petshop/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CategoryInput creates a category
type CategoryInput struct {
	Name        string
	Description string
}

// CategoryPatch updates a category; nil fields are left unchanged
type CategoryPatch struct {
	Name        *string
	Description *string
}

// ProductInput creates a product
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURL    *string
	CategoryID  uint
}

// ProductPatch updates a product; nil fields are left unchanged and an empty
// ImageURL clears the image
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	ImageURL    *string
	CategoryID  *uint
}

// CatalogService manages categories and products. Reads are cached; every write
// drops the whole catalog cache.
type CatalogService struct {
	store repository.Store
	cache utils.Cache
	ttl   time.Duration
}

func NewCatalogService(store repository.Store, cache utils.Cache, ttl time.Duration) *CatalogService {
	return &CatalogService{store: store, cache: cache, ttl: ttl}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return readCatalog(ctx, s.cache, "categories", s.ttl, func() ([]domain.Category, error) {
		return s.store.ListCategories(ctx)
	})
}

func (s *CatalogService) GetCategory(ctx context.Context, id uint) (*domain.Category, error) {
	key := fmt.Sprintf("category:%d", id)
	return readCatalog(ctx, s.cache, key, s.ttl, func() (*domain.Category, error) {
		c, err := s.store.CategoryByID(ctx, id)
		return c, notFound(err, "category not found")
	})
}

func (s *CatalogService) CreateCategory(ctx context.Context, p domain.Principal, in CategoryInput) (*domain.Category, error) {
	if err := p.Require(domain.RoleManager); err != nil {
		return nil, err
	}
	c := &domain.Category{Name: strings.TrimSpace(in.Name), Description: in.Description}
	if err := validateCategory(c); err != nil {
		return nil, err
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	invalidateCatalog(ctx, s.cache)

	logrus.WithFields(logrus.Fields{"category_id": c.ID, "by": p.UserID}).Info("Category created")
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, p domain.Principal, id uint, patch CategoryPatch) error {
	if err := p.Require(domain.RoleManager); err != nil {
		return err
	}
	c, err := s.store.CategoryByID(ctx, id)
	if err != nil {
		return notFound(err, "category not found")
	}
	if patch.Name != nil {
		c.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if err := validateCategory(c); err != nil {
		return err
	}
	if err := s.store.SaveCategory(ctx, c); err != nil {
		return notFound(err, "category not found")
	}
	invalidateCatalog(ctx, s.cache)

	logrus.WithFields(logrus.Fields{"category_id": id, "by": p.UserID}).Info("Category updated")
	return nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, p domain.Principal, id uint) error {
	if err := p.Require(domain.RoleManager); err != nil {
		return err
	}
	n, err := s.store.CountProductsInCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if n > 0 {
		return domain.Conflict("cannot delete a category that owns products")
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		// A product slipped in after the count
		if errors.Is(err, repository.ErrReferenced) {
			return domain.Conflict("cannot delete a category that owns products")
		}
		return notFound(err, "category not found")
	}
	invalidateCatalog(ctx, s.cache)

	logrus.WithFields(logrus.Fields{"category_id": id, "by": p.UserID}).Info("Category deleted")
	return nil
}

// ListProducts returns every product, or only those in categoryID when it is set
func (s *CatalogService) ListProducts(ctx context.Context, categoryID *uint) ([]domain.Product, error) {
	key := "products:all"
	if categoryID != nil {
		key = fmt.Sprintf("products:category:%d", *categoryID)
	}
	return readCatalog(ctx, s.cache, key, s.ttl, func() ([]domain.Product, error) {
		return s.store.ListProducts(ctx, categoryID)
	})
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*domain.Product, error) {
	key := fmt.Sprintf("product:%d", id)
	return readCatalog(ctx, s.cache, key, s.ttl, func() (*domain.Product, error) {
		p, err := s.store.ProductByID(ctx, id)
		return p, notFound(err, "product not found")
	})
}

func (s *CatalogService) CreateProduct(ctx context.Context, p domain.Principal, in ProductInput) (*domain.Product, error) {
	if err := p.Require(domain.RoleManager); err != nil {
		return nil, err
	}
	prod := &domain.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		ImageURL:    normalizeImageURL(in.ImageURL),
		CategoryID:  in.CategoryID,
	}
	if err := validateProduct(prod); err != nil {
		return nil, err
	}
	if err := s.requireCategory(ctx, prod.CategoryID); err != nil {
		return nil, err
	}
	if err := s.store.CreateProduct(ctx, prod); err != nil {
		return nil, categoryMissing(err, "create product")
	}
	invalidateCatalog(ctx, s.cache)

	created, err := s.store.ProductByID(ctx, prod.ID)
	if err != nil {
		return nil, fmt.Errorf("reload product: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"product_id":  created.ID,
		"category_id": created.CategoryID,
		"by":          p.UserID,
	}).Info("Product created")
	return created, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, p domain.Principal, id uint, patch ProductPatch) error {
	if err := p.Require(domain.RoleManager); err != nil {
		return err
	}
	prod, err := s.store.ProductByID(ctx, id)
	if err != nil {
		return notFound(err, "product not found")
	}
	if patch.Name != nil {
		prod.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		prod.Description = *patch.Description
	}
	if patch.Price != nil {
		prod.Price = *patch.Price
	}
	if patch.Stock != nil {
		prod.Stock = *patch.Stock
	}
	if patch.ImageURL != nil {
		prod.ImageURL = normalizeImageURL(patch.ImageURL)
	}
	if patch.CategoryID != nil && *patch.CategoryID != prod.CategoryID {
		if err := s.requireCategory(ctx, *patch.CategoryID); err != nil {
			return err
		}
		prod.CategoryID = *patch.CategoryID
		prod.Category = nil
	}
	if err := validateProduct(prod); err != nil {
		return err
	}
	if err := s.store.SaveProduct(ctx, prod); err != nil {
		// A foreign key failure means the category went away after requireCategory
		if errors.Is(err, repository.ErrReferenced) {
			return categoryMissing(err, "update product")
		}
		return notFound(err, "product not found")
	}
	invalidateCatalog(ctx, s.cache)

	logrus.WithFields(logrus.Fields{"product_id": id, "by": p.UserID}).Info("Product updated")
	return nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, p domain.Principal, id uint) error {
	if err := p.Require(domain.RoleManager); err != nil {
		return err
	}
	if _, err := s.store.ProductByID(ctx, id); err != nil {
		return notFound(err, "product not found")
	}
	referenced, err := s.store.ProductReferenced(ctx, id)
	if err != nil {
		return fmt.Errorf("check product references: %w", err)
	}
	if referenced {
		return domain.Conflict("product is referenced by carts or orders")
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return domain.Conflict("product is referenced by carts or orders")
		}
		return notFound(err, "product not found")
	}
	invalidateCatalog(ctx, s.cache)

	logrus.WithFields(logrus.Fields{"product_id": id, "by": p.UserID}).Info("Product deleted")
	return nil
}

func (s *CatalogService) requireCategory(ctx context.Context, id uint) error {
	if _, err := s.store.CategoryByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.InvalidInput("category not found")
		}
		return fmt.Errorf("find category: %w", err)
	}
	return nil
}

// categoryMissing reports a category deleted between the check and the write as bad input
func categoryMissing(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrReferenced) {
		return domain.InvalidInput("category not found")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func normalizeImageURL(u *string) *string {
	if u == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*u)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validateCategory(c *domain.Category) error {
	if c.Name == "" {
		return domain.InvalidInput("name is required")
	}
	if len(c.Name) > domain.MaxCategoryNameLen {
		return domain.InvalidInput("name must be at most %d characters", domain.MaxCategoryNameLen)
	}
	if len(c.Description) > domain.MaxCategoryDescriptionLen {
		return domain.InvalidInput("description must be at most %d characters", domain.MaxCategoryDescriptionLen)
	}
	return nil
}

func validateProduct(p *domain.Product) error {
	switch {
	case p.Name == "":
		return domain.InvalidInput("name is required")
	case len(p.Name) > domain.MaxProductNameLen:
		return domain.InvalidInput("name must be at most %d characters", domain.MaxProductNameLen)
	case len(p.Description) > domain.MaxProductDescriptionLen:
		return domain.InvalidInput("description must be at most %d characters", domain.MaxProductDescriptionLen)
	case p.Price.LessThan(domain.MinPrice):
		return domain.InvalidInput("price must be at least %s", domain.MinPrice.StringFixed(domain.PriceScale))
	case !p.Price.Equal(p.Price.Truncate(domain.PriceScale)):
		return domain.InvalidInput("price must have at most %d decimal places", domain.PriceScale)
	case p.Price.GreaterThanOrEqual(domain.MaxPrice):
		return domain.InvalidInput("price is too large")
	case p.Stock < 0:
		return domain.InvalidInput("stock cannot be negative")
	case p.Stock > domain.MaxQuantity:
		return domain.InvalidInput("stock must be at most %d", domain.MaxQuantity)
	case p.ImageURL != nil && len(*p.ImageURL) > domain.MaxImageURLLen:
		return domain.InvalidInput("imageUrl must be at most %d characters", domain.MaxImageURLLen)
	case p.CategoryID == 0:
		return domain.InvalidInput("categoryId is required")
	}
	return nil
}
