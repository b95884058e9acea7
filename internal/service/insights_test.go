package service_test

import (
	"context"
	"menu-service/internal/models"
	"menu-service/internal/service"
	"testing"
	"time"

	"github.com/google/uuid"
)

func strp(s string) *string { return &s }

func TestCustomerSummaries(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	orders := []*models.Order{
		{CustomerPhone: strp("111"), CustomerName: strp("Ana"), TotalCents: 1000, CreatedAt: t0},
		{CustomerPhone: strp("111"), CustomerName: strp("Ana Souza"), TotalCents: 500, CreatedAt: t0.Add(time.Hour)},
		{CustomerPhone: strp("222"), CustomerName: strp("Bea"), TotalCents: 1500, CreatedAt: t0},
		{CustomerPhone: strp("333"), CustomerName: strp("Caio"), TotalCents: 200, CreatedAt: t0},
		{OrderType: models.OrderTypeDineIn, TotalCents: 9999, CreatedAt: t0},
	}

	got := service.CustomerSummaries(orders)
	if len(got) != 3 {
		t.Fatalf("summaries = %d, want 3", len(got))
	}
	// 111 and 222 tie on spend, 111 ordered more recently
	if got[0].Phone != "111" || got[0].OrderCount != 2 || got[0].TotalSpentCents != 1500 || got[0].Name != "Ana Souza" {
		t.Fatalf("first: %+v", got[0])
	}
	if got[1].Phone != "222" || got[2].Phone != "333" {
		t.Fatalf("order: %s, %s", got[1].Phone, got[2].Phone)
	}
}

func TestTopProducts(t *testing.T) {
	burger, fries, soda := uuid.New(), uuid.New(), uuid.New()
	orders := []*models.Order{
		{Items: []models.OrderItem{
			{ProductID: burger, ProductName: "Burger", Quantity: 2, TotalPriceCents: 5180},
			{ProductID: fries, ProductName: "Fries", Quantity: 1, TotalPriceCents: 990},
		}},
		{Items: []models.OrderItem{
			{ProductID: fries, ProductName: "Fries", Quantity: 1, TotalPriceCents: 990},
			{ProductID: soda, ProductName: "Soda", Quantity: 2, TotalPriceCents: 800},
		}},
	}

	got := service.TopProducts(orders, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].ProductID != burger || got[0].Quantity != 2 || got[0].RevenueCents != 5180 {
		t.Fatalf("first: %+v", got[0])
	}
	if got[1].ProductID != fries || got[1].RevenueCents != 1980 {
		t.Fatalf("second: %+v", got[1])
	}
}

func TestInsightsService_RequiresStaffAndRange(t *testing.T) {
	m := newMocks()
	m.orders.ListCreatedBetweenFunc = func(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
		return []*models.Order{{CustomerPhone: strp("1"), TotalCents: 10}}, nil
	}
	svc := service.NewInsightsService(m.repos(), time.Second)
	now := time.Now()

	if _, err := svc.Customers(context.Background(), now.Add(-time.Hour), now); service.KindOf(err) != service.KindNotAuthenticated {
		t.Fatalf("expected NotAuthenticated, got %v", err)
	}
	if _, err := svc.Customers(staffCtx(), now, now.Add(-time.Hour)); service.KindOf(err) != service.KindValidation {
		t.Fatalf("expected Validation, got %v", err)
	}
	got, err := svc.Customers(staffCtx(), now.Add(-time.Hour), now)
	if err != nil || len(got) != 1 {
		t.Fatalf("Customers: %+v %v", got, err)
	}
}
