package repository

import (
	"context"
	"menu-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatusLogRepo interface {
	Create(ctx context.Context, l *models.OrderStatusLog) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusLog, error)
}

type statusLogRepo struct{ db *gorm.DB }

func NewStatusLogRepo(db *gorm.DB) StatusLogRepo { return &statusLogRepo{db: db} }

func (r *statusLogRepo) Create(ctx context.Context, l *models.OrderStatusLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *statusLogRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusLog, error) {
	var list []models.OrderStatusLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("changed_at ASC").
		Find(&list).Error
	return list, err
}
