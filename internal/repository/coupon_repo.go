package repository

import (
	"context"
	"errors"
	"menu-service/internal/models"

	"gorm.io/gorm"
)

type CouponRepo interface {
	Create(ctx context.Context, c *models.Coupon) error
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context, status *models.CouponStatus) ([]models.Coupon, error)
	UpdateDiscount(ctx context.Context, code string, typ models.DiscountType, value int64) (bool, error)
	SetStatus(ctx context.Context, code string, status models.CouponStatus) (bool, error)
}

type couponRepo struct{ db *gorm.DB }

func NewCouponRepo(db *gorm.DB) CouponRepo { return &couponRepo{db: db} }

func (r *couponRepo) Create(ctx context.Context, c *models.Coupon) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *couponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := r.db.WithContext(ctx).First(&c, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *couponRepo) List(ctx context.Context, status *models.CouponStatus) ([]models.Coupon, error) {
	q := r.db.WithContext(ctx).Model(&models.Coupon{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var list []models.Coupon
	err := q.Order("code ASC").Find(&list).Error
	return list, err
}

func (r *couponRepo) UpdateDiscount(ctx context.Context, code string, typ models.DiscountType, value int64) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("code = ?", code).
		Updates(map[string]any{"discount_type": typ, "discount_value": value})
	return tx.RowsAffected > 0, tx.Error
}

func (r *couponRepo) SetStatus(ctx context.Context, code string, status models.CouponStatus) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("code = ?", code).
		Update("status", status)
	return tx.RowsAffected > 0, tx.Error
}
