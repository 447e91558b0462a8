package repository

import (
	"context"
	"errors"
	"fmt"

	"petshop/internal/domain"

	"github.com/go-sql-driver/mysql" // MySQL error codes
	"github.com/jackc/pgx/v5/pgconn" // Postgres error codes
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const categoryWithCount = "categories.*, (SELECT COUNT(*) FROM products WHERE products.category_id = categories.id) AS product_count"

var _ Store = (*GormStore)(nil)

// GormStore implements Store on top of gorm (MySQL or Postgres)
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Transaction runs fn inside db.Transaction; nested calls become savepoints
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) CreateUser(ctx context.Context, u *domain.User) error {
	return translateError(s.db.WithContext(ctx).Create(u).Error)
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}

func (s *GormStore) UserTaken(ctx context.Context, email, username string) (bool, bool, error) {
	var byEmail, byName int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Count(&byEmail).Error; err != nil {
		return false, false, err
	}
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", username).Count(&byName).Error; err != nil {
		return false, false, err
	}
	return byEmail > 0, byName > 0, nil
}

func (s *GormStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	err := s.db.WithContext(ctx).Model(&domain.Category{}).
		Select(categoryWithCount).
		Order("categories.id").
		Find(&cats).Error
	return cats, err
}

func (s *GormStore) CategoryByID(ctx context.Context, id uint) (*domain.Category, error) {
	var c domain.Category
	err := s.db.WithContext(ctx).Model(&domain.Category{}).
		Select(categoryWithCount).
		Where("categories.id = ?", id).
		Take(&c).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

func (s *GormStore) CreateCategory(ctx context.Context, c *domain.Category) error {
	return translateError(s.db.WithContext(ctx).Create(c).Error)
}

func (s *GormStore) SaveCategory(ctx context.Context, c *domain.Category) error {
	res := s.db.WithContext(ctx).Model(c).Select("name", "description").Updates(c)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteCategory(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&domain.Category{}, id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CountProductsInCategory(ctx context.Context, categoryID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Product{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}

func (s *GormStore) ListProducts(ctx context.Context, categoryID *uint) ([]domain.Product, error) {
	q := s.db.WithContext(ctx).Preload("Category").Order("id")
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	var products []domain.Product
	return products, q.Find(&products).Error
}

func (s *GormStore) ProductByID(ctx context.Context, id uint) (*domain.Product, error) {
	var p domain.Product
	if err := s.db.WithContext(ctx).Preload("Category").First(&p, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

func (s *GormStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	return translateError(s.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error)
}

func (s *GormStore) SaveProduct(ctx context.Context, p *domain.Product) error {
	res := s.db.WithContext(ctx).Model(p).Omit(clause.Associations).
		Select("name", "description", "price", "stock", "image_url", "category_id").
		Updates(p)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteProduct(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&domain.Product{}, id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ProductReferenced(ctx context.Context, id uint) (bool, error) {
	var inCarts, inOrders int64
	if err := s.db.WithContext(ctx).Model(&domain.CartItem{}).Where("product_id = ?", id).Count(&inCarts).Error; err != nil {
		return false, err
	}
	if err := s.db.WithContext(ctx).Model(&domain.OrderItem{}).Where("product_id = ?", id).Count(&inOrders).Error; err != nil {
		return false, err
	}
	return inCarts+inOrders > 0, nil
}

// DecrementStock is a single conditional UPDATE, so concurrent checkouts cannot oversell
func (s *GormStore) DecrementStock(ctx context.Context, productID uint, qty int) (bool, error) {
	if qty < 1 {
		return false, fmt.Errorf("decrement stock by %d: quantity must be positive", qty)
	}
	res := s.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) CartItems(ctx context.Context, userID uint) ([]domain.CartItem, error) {
	var items []domain.CartItem
	err := s.db.WithContext(ctx).Preload("Product").
		Where("user_id = ?", userID).
		Order("id").
		Find(&items).Error
	return items, err
}

func (s *GormStore) CartItemByID(ctx context.Context, userID, itemID uint) (*domain.CartItem, error) {
	var it domain.CartItem
	err := s.db.WithContext(ctx).Preload("Product").
		Where("id = ? AND user_id = ?", itemID, userID).
		First(&it).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &it, nil
}

func (s *GormStore) CartItemByProduct(ctx context.Context, userID, productID uint) (*domain.CartItem, error) {
	var it domain.CartItem
	err := s.db.WithContext(ctx).Preload("Product").
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&it).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &it, nil
}

// SaveCartItem inserts new lines (ID == 0) and otherwise only rewrites the quantity
func (s *GormStore) SaveCartItem(ctx context.Context, item *domain.CartItem) error {
	db := s.db.WithContext(ctx)
	if item.ID == 0 {
		return translateError(db.Omit(clause.Associations).Create(item).Error)
	}
	return translateError(db.Model(item).Omit(clause.Associations).UpdateColumn("quantity", item.Quantity).Error)
}

func (s *GormStore) DeleteCartItem(ctx context.Context, userID, itemID uint) error {
	return s.db.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID).Delete(&domain.CartItem{}).Error
}

func (s *GormStore) ClearCart(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.CartItem{}).Error
}

// CreateOrder inserts the order row, then its items with the new order id
func (s *GormStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	db := s.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(o).Error; err != nil {
		return translateError(err)
	}
	if len(o.Items) == 0 {
		return nil
	}
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	return translateError(db.Omit(clause.Associations).Create(&o.Items).Error)
}

func (s *GormStore) OrderByID(ctx context.Context, id uint, userID *uint) (*domain.Order, error) {
	q := s.ordersWithItems(ctx).Where("id = ?", id)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	var o domain.Order
	if err := q.First(&o).Error; err != nil {
		return nil, translateError(err)
	}
	return &o, nil
}

func (s *GormStore) ListOrders(ctx context.Context, userID *uint) ([]domain.Order, error) {
	q := s.ordersWithItems(ctx).Order("created_at DESC").Order("id DESC")
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	var orders []domain.Order
	return orders, q.Find(&orders).Error
}

func (s *GormStore) ordersWithItems(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.Product")
}

// translateError maps driver-specific failures onto the package sentinels
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrReferenced
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062: // ER_DUP_ENTRY
			return fmt.Errorf("%w: %s", ErrDuplicate, myErr.Message)
		case 1451, 1452: // ER_ROW_IS_REFERENCED_2, ER_NO_REFERENCED_ROW_2
			return fmt.Errorf("%w: %s", ErrReferenced, myErr.Message)
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.Detail)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrReferenced, pgErr.Detail)
		}
	}
	return err
}
