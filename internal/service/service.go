// Package service implements the shop's use cases on top of repository.Store.
// Protected operations take the caller's domain.Principal explicitly and check
// the role they need before touching the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"petshop/internal/domain"
	"petshop/internal/repository"
	"petshop/internal/utils"

	"github.com/sirupsen/logrus"
)

const (
	catalogCachePrefix   = "catalog:"
	// Kept outside catalogCachePrefix so invalidation never resets it
	catalogGenerationKey = "catalog-generation"
)

// notFound turns repository.ErrNotFound into a domain NotFound carrying msg and
// passes any other error through
func notFound(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound("%s", msg)
	}
	return err
}

// readCatalog serves key from the catalog cache, falling back to load and filling
// the cache. Entries are stored under the catalog generation read before load
// runs, so a load that overlapped a write is cached where no later read looks.
// Cache failures are logged and never fail the read.
func readCatalog[T any](ctx context.Context, cache utils.Cache, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	gen, err := cache.Counter(ctx, catalogGenerationKey)
	if err != nil {
		logrus.WithFields(logrus.Fields{"key": catalogGenerationKey, "error": err.Error()}).Warn("Cache read failed")
		return load()
	}
	key = fmt.Sprintf("%s%d:%s", catalogCachePrefix, gen, key)

	var v T
	found, err := cache.Get(ctx, key, &v)
	if err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Cache read failed")
	} else if found {
		return v, nil
	}
	v, err = load()
	if err != nil {
		return v, err
	}
	if err := cache.Set(ctx, key, v, ttl); err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Cache write failed")
	}
	return v, nil
}

// invalidateCatalog moves readers to a new generation and drops every cached catalog read
func invalidateCatalog(ctx context.Context, cache utils.Cache) {
	if _, err := cache.Incr(ctx, catalogGenerationKey); err != nil {
		logrus.WithField("error", err.Error()).Warn("Catalog generation bump failed")
	}
	if err := cache.DeletePrefix(ctx, catalogCachePrefix); err != nil {
		logrus.WithField("error", err.Error()).Warn("Catalog cache invalidation failed")
	}
}
