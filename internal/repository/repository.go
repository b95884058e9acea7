package repository

import (
	"context"

	"gorm.io/gorm"
)

type Repository struct {
	DB         *gorm.DB
	Orders     OrderRepo
	OrderItems OrderItemRepo
	Coupons    CouponRepo
	Products   ProductRepo
	StatusLogs StatusLogRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:         db,
		Orders:     NewOrderRepo(db),
		OrderItems: NewOrderItemRepo(db),
		Coupons:    NewCouponRepo(db),
		Products:   NewProductRepo(db),
		StatusLogs: NewStatusLogRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// WithTx runs fn against repositories bound to a single database transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
