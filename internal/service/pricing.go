package service

import (
	"context"
	"menu-service/internal/models"
	"menu-service/internal/repository"

	"github.com/google/uuid"
)

// PricingProvider resolves the catalog rows an order snapshots its prices from.
type PricingProvider interface {
	Products(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

type catalogPricing struct {
	products repository.ProductRepo
}

func NewCatalogPricing(products repository.ProductRepo) PricingProvider {
	return catalogPricing{products: products}
}

func (p catalogPricing) Products(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	return p.products.GetByIDs(ctx, ids)
}

func findOption(p *models.Product, id uuid.UUID) *models.ProductOption {
	for i := range p.Options {
		if p.Options[i].ID == id {
			return &p.Options[i]
		}
	}
	return nil
}
