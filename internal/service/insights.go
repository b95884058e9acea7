package service

import (
	"context"
	"menu-service/internal/models"
	"sort"
	"time"

	"github.com/google/uuid"
)

type CustomerSummary struct {
	Phone           string    `json:"phone"`
	Name            string    `json:"name"`
	OrderCount      int       `json:"order_count"`
	TotalSpentCents int64     `json:"total_spent_cents"`
	LastOrderAt     time.Time `json:"last_order_at"`
}

type ProductRanking struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Quantity     int64     `json:"quantity"`
	RevenueCents int64     `json:"revenue_cents"`
}

// CustomerSummaries groups pickup orders by phone. The most recent name used
// with a phone wins.
func CustomerSummaries(orders []*models.Order) []CustomerSummary {
	byPhone := map[string]*CustomerSummary{}
	for _, o := range orders {
		if o.CustomerPhone == nil || *o.CustomerPhone == "" {
			continue
		}
		cs, ok := byPhone[*o.CustomerPhone]
		if !ok {
			cs = &CustomerSummary{Phone: *o.CustomerPhone}
			byPhone[*o.CustomerPhone] = cs
		}
		cs.OrderCount++
		cs.TotalSpentCents += o.TotalCents
		if !o.CreatedAt.Before(cs.LastOrderAt) {
			cs.LastOrderAt = o.CreatedAt
			if o.CustomerName != nil {
				cs.Name = *o.CustomerName
			}
		}
	}

	out := make([]CustomerSummary, 0, len(byPhone))
	for _, cs := range byPhone {
		out = append(out, *cs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSpentCents != out[j].TotalSpentCents {
			return out[i].TotalSpentCents > out[j].TotalSpentCents
		}
		if !out[i].LastOrderAt.Equal(out[j].LastOrderAt) {
			return out[i].LastOrderAt.After(out[j].LastOrderAt)
		}
		return out[i].Phone < out[j].Phone
	})
	return out
}

// TopProducts ranks item lines by quantity sold, then revenue. limit <= 0 keeps all.
func TopProducts(orders []*models.Order, limit int) []ProductRanking {
	byProduct := map[uuid.UUID]*ProductRanking{}
	for _, o := range orders {
		for _, it := range o.Items {
			pr, ok := byProduct[it.ProductID]
			if !ok {
				pr = &ProductRanking{ProductID: it.ProductID, ProductName: it.ProductName}
				byProduct[it.ProductID] = pr
			}
			pr.Quantity += int64(it.Quantity)
			pr.RevenueCents += it.TotalPriceCents
		}
	}

	out := make([]ProductRanking, 0, len(byProduct))
	for _, pr := range byProduct {
		out = append(out, *pr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		if out[i].RevenueCents != out[j].RevenueCents {
			return out[i].RevenueCents > out[j].RevenueCents
		}
		return out[i].ProductName < out[j].ProductName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type InsightsService interface {
	Customers(ctx context.Context, from, to time.Time) ([]CustomerSummary, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductRanking, error)
}

type insightsService struct {
	repos Repos
	guard storeGuard
}

func NewInsightsService(repos Repos, storeTimeout time.Duration) InsightsService {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &insightsService{repos: repos, guard: storeGuard{timeout: storeTimeout, observer: nopObserver{}}}
}

func (s *insightsService) Customers(ctx context.Context, from, to time.Time) ([]CustomerSummary, error) {
	orders, err := s.load(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return CustomerSummaries(orders), nil
}

func (s *insightsService) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductRanking, error) {
	orders, err := s.load(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return TopProducts(orders, limit), nil
}

func (s *insightsService) load(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	if _, err := requireStaff(ctx); err != nil {
		return nil, err
	}
	if !from.Before(to) {
		return nil, &ValidationError{Fields: []FieldError{{Field: "from", Message: "must be before to"}}}
	}
	return fetch(s.guard, ctx, "load orders for insights", func(ctx context.Context) ([]*models.Order, error) {
		return s.repos.Orders.ListCreatedBetween(ctx, from, to)
	})
}
