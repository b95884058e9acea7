package repository

import (
	"context"
	"errors"
	"menu-service/internal/models"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultListLimit = 50

type OrderListFilter struct {
	Status    *models.OrderStatus
	OrderType *models.OrderType
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type OrderRepo interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatusGuard(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, at time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, f OrderListFilter) ([]*models.Order, int64, error)
	FindByPhone(ctx context.Context, phone string, readySince time.Time) ([]*models.Order, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error)
	FindOrphans(ctx context.Context, createdBefore time.Time) ([]uuid.UUID, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) OrderRepo { return &orderRepo{db: db} }

// Create inserts only the order row; items and options are written separately.
func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Create(o).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var ord models.Order
	err := r.withItems(r.db.WithContext(ctx)).First(&ord, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ord, nil
}

// UpdateStatusGuard moves the order from one status to another in a single
// statement. It reports false when the row was not in the expected status.
func (r *orderRepo) UpdateStatusGuard(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, at time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(map[string]any{
			"status":     to,
			"updated_at": at,
		})
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	tx := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Order{})
	return tx.RowsAffected, tx.Error
}

func (r *orderRepo) List(ctx context.Context, f OrderListFilter) ([]*models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})

	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.OrderType != nil {
		q = q.Where("order_type = ?", *f.OrderType)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []*models.Order
	err := r.withItems(q).Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error
	return list, total, err
}

// FindByPhone returns the customer's active orders plus ready ones updated
// after readySince.
func (r *orderRepo) FindByPhone(ctx context.Context, phone string, readySince time.Time) ([]*models.Order, error) {
	var list []*models.Order
	err := r.withItems(r.db.WithContext(ctx)).
		Where("customer_phone = ?", phone).
		Where("(status IN ? OR (status = ? AND updated_at >= ?))",
			models.ActiveStatuses(), models.OrderStatusReady, readySince).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *orderRepo) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	var list []*models.Order
	err := r.withItems(r.db.WithContext(ctx)).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// FindOrphans lists orders that never received any item line.
func (r *orderRepo) FindOrphans(ctx context.Context, createdBefore time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("created_at < ?", createdBefore).
		Where("NOT EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id)").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *orderRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&cnt).Error
	return cnt > 0, err
}

func (r *orderRepo) withItems(q *gorm.DB) *gorm.DB {
	return q.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC, created_at ASC, id ASC")
	}).Preload("Items.Options")
}
