package db

import (
	"context"
	"fmt"

	"petshop/internal/domain"
	"petshop/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type seedProduct struct {
	name, description string
	price             int64
	stock             int
}

type seedCategory struct {
	name, description string
	products          []seedProduct
}

var demoCatalog = []seedCategory{
	{"Dog supplies", "Everything your dog needs", []seedProduct{
		{"Premium dog food", "High quality dry food for dogs", 1500, 50},
		{"Dog toy", "Durable toy for active play", 350, 100},
		{"Leash and collar", "Leash and collar set", 800, 30},
	}},
	{"Cat supplies", "Everything your cat needs", []seedProduct{
		{"Cat food", "Balanced food for cats", 1200, 60},
		{"Scratching post", "Sturdy scratching post", 900, 25},
		{"Litter box", "Covered litter box with filter", 1500, 20},
	}},
	{"Bird supplies", "Everything your bird needs", []seedProduct{
		{"Parrot food", "Vitamin enriched seed mix", 400, 80},
		{"Bird cage", "Roomy cage for small birds", 2500, 15},
	}},
}

// Seed loads the demo catalog into an empty store. It does nothing when any
// category already exists, so it is safe to run on every start.
func Seed(ctx context.Context, store repository.Store) error {
	existing, err := store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("check catalog: %w", err)
	}
	if len(existing) > 0 {
		logrus.WithField("categories", len(existing)).Info("Catalog already populated, skipping seed")
		return nil
	}

	products := 0
	err = store.Transaction(ctx, func(tx repository.Store) error {
		for _, sc := range demoCatalog {
			cat := &domain.Category{Name: sc.name, Description: sc.description}
			if err := tx.CreateCategory(ctx, cat); err != nil {
				return fmt.Errorf("seed category %q: %w", sc.name, err)
			}
			for _, sp := range sc.products {
				p := &domain.Product{
					Name:        sp.name,
					Description: sp.description,
					Price:       decimal.NewFromInt(sp.price),
					Stock:       sp.stock,
					CategoryID:  cat.ID,
				}
				if err := tx.CreateProduct(ctx, p); err != nil {
					return fmt.Errorf("seed product %q: %w", sp.name, err)
				}
				products++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"categories": len(demoCatalog), "products": products}).Info("Demo catalog seeded")
	return nil
}
