package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"petshop/internal/domain"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore implements Store with maps behind one mutex. Transactions run on a
// private copy of the data that replaces the shared state only when fn succeeds,
// so a failed transaction leaves nothing behind.
type MemoryStore struct {
	mu   *sync.Mutex
	data *memData
	inTx bool
}

type memData struct {
	users      map[uint]domain.User
	categories map[uint]domain.Category
	products   map[uint]domain.Product
	cartItems  map[uint]domain.CartItem
	orders     map[uint]domain.Order

	nextUserID, nextCategoryID, nextProductID uint
	nextCartItemID, nextOrderID, nextItemID   uint
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		data: &memData{
			users:      make(map[uint]domain.User),
			categories: make(map[uint]domain.Category),
			products:   make(map[uint]domain.Product),
			cartItems:  make(map[uint]domain.CartItem),
			orders:     make(map[uint]domain.Order),
		},
	}
}

func (d *memData) clone() *memData {
	c := *d
	c.users = make(map[uint]domain.User, len(d.users))
	for k, v := range d.users {
		c.users[k] = v
	}
	c.categories = make(map[uint]domain.Category, len(d.categories))
	for k, v := range d.categories {
		c.categories[k] = v
	}
	c.products = make(map[uint]domain.Product, len(d.products))
	for k, v := range d.products {
		c.products[k] = v
	}
	c.cartItems = make(map[uint]domain.CartItem, len(d.cartItems))
	for k, v := range d.cartItems {
		c.cartItems[k] = v
	}
	c.orders = make(map[uint]domain.Order, len(d.orders))
	for k, v := range d.orders {
		v.Items = append([]domain.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	return &c
}

// lock is a no-op inside a transaction, which already holds the mutex
func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &MemoryStore{mu: s.mu, data: s.data.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u *domain.User) error {
	defer s.lock()()
	for _, existing := range s.data.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return ErrDuplicate
		}
	}
	s.data.nextUserID++
	u.ID = s.data.nextUserID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.data.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (*domain.User, error) {
	defer s.lock()()
	for _, u := range s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UserTaken(_ context.Context, email, username string) (bool, bool, error) {
	defer s.lock()()
	var emailTaken, usernameTaken bool
	for _, u := range s.data.users {
		emailTaken = emailTaken || u.Email == email
		usernameTaken = usernameTaken || u.Username == username
	}
	return emailTaken, usernameTaken, nil
}

func (s *MemoryStore) ListCategories(_ context.Context) ([]domain.Category, error) {
	defer s.lock()()
	out := make([]domain.Category, 0, len(s.data.categories))
	for _, c := range s.data.categories {
		out = append(out, s.data.withCount(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CategoryByID(_ context.Context, id uint) (*domain.Category, error) {
	defer s.lock()()
	c, ok := s.data.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	c = s.data.withCount(c)
	return &c, nil
}

func (s *MemoryStore) CreateCategory(_ context.Context, c *domain.Category) error {
	defer s.lock()()
	s.data.nextCategoryID++
	c.ID = s.data.nextCategoryID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.data.categories[c.ID] = *c
	return nil
}

func (s *MemoryStore) SaveCategory(_ context.Context, c *domain.Category) error {
	defer s.lock()()
	existing, ok := s.data.categories[c.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name, existing.Description = c.Name, c.Description
	s.data.categories[c.ID] = existing
	return nil
}

func (s *MemoryStore) DeleteCategory(_ context.Context, id uint) error {
	defer s.lock()()
	if _, ok := s.data.categories[id]; !ok {
		return ErrNotFound
	}
	if s.data.productCount(id) > 0 {
		return ErrReferenced
	}
	delete(s.data.categories, id)
	return nil
}

func (s *MemoryStore) CountProductsInCategory(_ context.Context, categoryID uint) (int64, error) {
	defer s.lock()()
	return s.data.productCount(categoryID), nil
}

func (s *MemoryStore) ListProducts(_ context.Context, categoryID *uint) ([]domain.Product, error) {
	defer s.lock()()
	out := make([]domain.Product, 0, len(s.data.products))
	for _, p := range s.data.products {
		if categoryID != nil && p.CategoryID != *categoryID {
			continue
		}
		out = append(out, s.data.withCategory(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ProductByID(_ context.Context, id uint) (*domain.Product, error) {
	defer s.lock()()
	p, ok := s.data.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = s.data.withCategory(p)
	return &p, nil
}

func (s *MemoryStore) CreateProduct(_ context.Context, p *domain.Product) error {
	defer s.lock()()
	if _, ok := s.data.categories[p.CategoryID]; !ok {
		return fmt.Errorf("category %d: %w", p.CategoryID, ErrReferenced)
	}
	s.data.nextProductID++
	p.ID = s.data.nextProductID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	stored := *p
	stored.Category = nil
	s.data.products[p.ID] = stored
	return nil
}

func (s *MemoryStore) SaveProduct(_ context.Context, p *domain.Product) error {
	defer s.lock()()
	if _, ok := s.data.products[p.ID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.data.categories[p.CategoryID]; !ok {
		return fmt.Errorf("category %d: %w", p.CategoryID, ErrReferenced)
	}
	stored := *p
	stored.Category = nil
	s.data.products[p.ID] = stored
	return nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id uint) error {
	defer s.lock()()
	if _, ok := s.data.products[id]; !ok {
		return ErrNotFound
	}
	if s.data.productReferenced(id) {
		return ErrReferenced
	}
	delete(s.data.products, id)
	return nil
}

func (s *MemoryStore) ProductReferenced(_ context.Context, id uint) (bool, error) {
	defer s.lock()()
	return s.data.productReferenced(id), nil
}

func (s *MemoryStore) DecrementStock(_ context.Context, productID uint, qty int) (bool, error) {
	if qty < 1 {
		return false, fmt.Errorf("decrement stock by %d: quantity must be positive", qty)
	}
	defer s.lock()()
	p, ok := s.data.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	s.data.products[productID] = p
	return true, nil
}

func (s *MemoryStore) CartItems(_ context.Context, userID uint) ([]domain.CartItem, error) {
	defer s.lock()()
	var out []domain.CartItem
	for _, it := range s.data.cartItems {
		if it.UserID == userID {
			out = append(out, s.data.withProduct(it))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CartItemByID(_ context.Context, userID, itemID uint) (*domain.CartItem, error) {
	defer s.lock()()
	it, ok := s.data.cartItems[itemID]
	if !ok || it.UserID != userID {
		return nil, ErrNotFound
	}
	it = s.data.withProduct(it)
	return &it, nil
}

func (s *MemoryStore) CartItemByProduct(_ context.Context, userID, productID uint) (*domain.CartItem, error) {
	defer s.lock()()
	for _, it := range s.data.cartItems {
		if it.UserID == userID && it.ProductID == productID {
			it = s.data.withProduct(it)
			return &it, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SaveCartItem(_ context.Context, item *domain.CartItem) error {
	defer s.lock()()
	if item.ID == 0 {
		for _, it := range s.data.cartItems {
			if it.UserID == item.UserID && it.ProductID == item.ProductID {
				return ErrDuplicate
			}
		}
		s.data.nextCartItemID++
		item.ID = s.data.nextCartItemID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = time.Now()
		}
	} else if _, ok := s.data.cartItems[item.ID]; !ok {
		return ErrNotFound
	}
	stored := *item
	stored.Product, stored.User = domain.Product{}, domain.User{}
	s.data.cartItems[item.ID] = stored
	return nil
}

func (s *MemoryStore) DeleteCartItem(_ context.Context, userID, itemID uint) error {
	defer s.lock()()
	if it, ok := s.data.cartItems[itemID]; ok && it.UserID == userID {
		delete(s.data.cartItems, itemID)
	}
	return nil
}

func (s *MemoryStore) ClearCart(_ context.Context, userID uint) error {
	defer s.lock()()
	for id, it := range s.data.cartItems {
		if it.UserID == userID {
			delete(s.data.cartItems, id)
		}
	}
	return nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, o *domain.Order) error {
	defer s.lock()()
	s.data.nextOrderID++
	o.ID = s.data.nextOrderID
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if o.Status == "" {
		o.Status = domain.OrderStatusPending
	}
	stored := *o
	stored.User = domain.User{}
	stored.Items = make([]domain.OrderItem, len(o.Items))
	for i := range o.Items {
		s.data.nextItemID++
		o.Items[i].ID = s.data.nextItemID
		o.Items[i].OrderID = o.ID
		stored.Items[i] = o.Items[i]
		stored.Items[i].Product = domain.Product{}
	}
	s.data.orders[o.ID] = stored
	return nil
}

func (s *MemoryStore) OrderByID(_ context.Context, id uint, userID *uint) (*domain.Order, error) {
	defer s.lock()()
	o, ok := s.data.orders[id]
	if !ok || (userID != nil && o.UserID != *userID) {
		return nil, ErrNotFound
	}
	o = s.data.withItemProducts(o)
	return &o, nil
}

func (s *MemoryStore) ListOrders(_ context.Context, userID *uint) ([]domain.Order, error) {
	defer s.lock()()
	var out []domain.Order
	for _, o := range s.data.orders {
		if userID != nil && o.UserID != *userID {
			continue
		}
		out = append(out, s.data.withItemProducts(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (d *memData) productCount(categoryID uint) int64 {
	var n int64
	for _, p := range d.products {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n
}

func (d *memData) productReferenced(productID uint) bool {
	for _, it := range d.cartItems {
		if it.ProductID == productID {
			return true
		}
	}
	for _, o := range d.orders {
		for _, it := range o.Items {
			if it.ProductID == productID {
				return true
			}
		}
	}
	return false
}

func (d *memData) withCount(c domain.Category) domain.Category {
	c.ProductCount = d.productCount(c.ID)
	return c
}

func (d *memData) withCategory(p domain.Product) domain.Product {
	if c, ok := d.categories[p.CategoryID]; ok {
		p.Category = &c
	}
	return p
}

func (d *memData) withProduct(it domain.CartItem) domain.CartItem {
	it.Product = d.withCategory(d.products[it.ProductID])
	return it
}

func (d *memData) withItemProducts(o domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(o.Items))
	for i, it := range o.Items {
		it.Product = d.products[it.ProductID]
		items[i] = it
	}
	o.Items = items
	return o
}
