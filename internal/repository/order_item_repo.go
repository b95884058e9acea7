package repository

import (
	"context"
	"menu-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderItemRepo interface {
	BulkCreate(ctx context.Context, items []models.OrderItem) error
	CreateOptions(ctx context.Context, opts []models.OrderItemOption) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
}

type orderItemRepo struct{ db *gorm.DB }

func NewOrderItemRepo(db *gorm.DB) OrderItemRepo { return &orderItemRepo{db: db} }

// BulkCreate writes item rows only, options go through CreateOptions.
func (r *orderItemRepo) BulkCreate(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Options").Create(&items).Error
}

func (r *orderItemRepo) CreateOptions(ctx context.Context, opts []models.OrderItemOption) error {
	if len(opts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&opts).Error
}

func (r *orderItemRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var rows []models.OrderItem
	err := r.db.WithContext(ctx).Preload("Options").
		Where("order_id = ?", orderID).
		Order("position ASC, created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
