package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"petshop/internal/domain"
	"petshop/internal/events"
	"petshop/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	manager  = domain.Principal{UserID: 100, Role: domain.RoleManager}
	customer = domain.Principal{UserID: 1, Role: domain.RoleUser}
)

// mapCache round-trips values through JSON the way RedisCache does
type mapCache struct {
	mu       sync.Mutex
	entries  map[string][]byte
	counters map[string]int64
	gets     int
	hits     int
	failing  bool
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte), counters: make(map[string]int64)}
}

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failing {
		return false, errors.New("cache down")
	}
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("cache down")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("cache down")
	}
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *mapCache) Counter(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return 0, errors.New("cache down")
	}
	return c.counters[key], nil
}

func (c *mapCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return 0, errors.New("cache down")
	}
	c.counters[key]++
	return c.counters[key], nil
}

// size counts cached values, not counters
func (c *mapCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []events.Envelope
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, env)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) envelopes() []events.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Envelope(nil), p.sent...)
}

type fixture struct {
	store     *repository.MemoryStore
	cache     *mapCache
	publisher *recordingPublisher
	catalog   *CatalogService
	cart      *CartService
	orders    *OrderService
}

func newFixture() *fixture {
	store := repository.NewMemoryStore()
	cache := newMapCache()
	pub := &recordingPublisher{}
	return &fixture{
		store:     store,
		cache:     cache,
		publisher: pub,
		catalog:   NewCatalogService(store, cache, time.Minute),
		cart:      NewCartService(store),
		orders:    NewOrderService(store, cache, pub),
	}
}

func (f *fixture) category(t *testing.T, name string) *domain.Category {
	t.Helper()
	c, err := f.catalog.CreateCategory(context.Background(), manager, CategoryInput{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) product(t *testing.T, categoryID uint, name string, price int64, stock int) *domain.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), manager, ProductInput{
		Name:       name,
		Price:      decimal.NewFromInt(price),
		Stock:      stock,
		CategoryID: categoryID,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stockOf(t *testing.T, productID uint) int {
	t.Helper()
	p, err := f.store.ProductByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, domain.KindOf(err), "error: %v", err)
}
