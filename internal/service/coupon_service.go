package service

import (
	"context"
	"fmt"
	"menu-service/internal/cart"
	"menu-service/internal/models"
	"menu-service/internal/pricing"
	"regexp"
	"time"

	"go.uber.org/zap"
)

var couponCodeRe = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

type CouponInput struct {
	Code          string
	DiscountType  models.DiscountType
	DiscountValue int64
}

type CouponQuote struct {
	Coupon *models.Coupon `json:"coupon"`
	pricing.Quote
}

// CartQuote is a restored cart after its coupon was re-checked.
type CartQuote struct {
	Cart   *cart.Cart    `json:"cart"`
	Quote  pricing.Quote `json:"quote"`
	Notice *cart.Notice  `json:"notice,omitempty"`
}

type CouponService interface {
	Validate(ctx context.Context, code string, subtotalCents int64) (*CouponQuote, error)
	QuoteCart(ctx context.Context, c *cart.Cart) (*CartQuote, error)
	List(ctx context.Context, status *models.CouponStatus) ([]models.Coupon, error)
	Create(ctx context.Context, in CouponInput) (*models.Coupon, error)
	Update(ctx context.Context, code string, in CouponInput) (*models.Coupon, error)
	Deactivate(ctx context.Context, code string) (*models.Coupon, error)
	Activate(ctx context.Context, code string) (*models.Coupon, error)
}

type couponService struct {
	repos Repos
	log   *zap.Logger
	guard storeGuard
}

func NewCouponService(repos Repos, log *zap.Logger, storeTimeout time.Duration) CouponService {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &couponService{
		repos: repos,
		log:   log,
		guard: storeGuard{timeout: storeTimeout, observer: nopObserver{}},
	}
}

// Validate previews the discount a code would give on subtotalCents.
func (s *couponService) Validate(ctx context.Context, code string, subtotalCents int64) (*CouponQuote, error) {
	code = models.NormalizeCouponCode(code)
	if code == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "code", Message: "is required"}}}
	}
	if subtotalCents < 0 {
		return nil, &ValidationError{Fields: []FieldError{{Field: "subtotal_cents", Message: "must not be negative"}}}
	}
	c, err := s.get(ctx, code)
	if err != nil {
		return nil, err
	}
	if !c.IsActive() {
		return nil, fmt.Errorf("%w: %s", ErrCouponInactive, code)
	}
	return &CouponQuote{Coupon: c, Quote: pricing.Compute([]int64{subtotalCents}, c)}, nil
}

// QuoteCart prices a cart the client restored from local storage. A coupon
// that was deactivated or removed since it was applied is dropped and the
// returned notice says so. Unit prices are the client's own; CreateOrder
// reprices from the catalog.
func (s *couponService) QuoteCart(ctx context.Context, c *cart.Cart) (*CartQuote, error) {
	if c == nil || len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}
	notice, err := c.Revalidate(ctx, couponLookup{s})
	if err != nil {
		return nil, err
	}
	if notice != nil {
		s.log.Info("coupon dropped from restored cart", zap.String("notice", notice.Message))
	}
	return &CartQuote{Cart: c, Quote: c.Quote(), Notice: notice}, nil
}

// couponLookup runs cart revalidation through the store deadline.
type couponLookup struct{ s *couponService }

func (l couponLookup) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return fetch(l.s.guard, ctx, "load coupon", func(ctx context.Context) (*models.Coupon, error) {
		return l.s.repos.Coupons.GetByCode(ctx, code)
	})
}

func (s *couponService) List(ctx context.Context, status *models.CouponStatus) ([]models.Coupon, error) {
	if _, err := requireStaff(ctx); err != nil {
		return nil, err
	}
	return fetch(s.guard, ctx, "list coupons", func(ctx context.Context) ([]models.Coupon, error) {
		return s.repos.Coupons.List(ctx, status)
	})
}

func (s *couponService) Create(ctx context.Context, in CouponInput) (*models.Coupon, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	in.Code = models.NormalizeCouponCode(in.Code)
	if err := validateCoupon(in, true); err != nil {
		return nil, err
	}

	existing, err := fetch(s.guard, ctx, "load coupon", func(ctx context.Context) (*models.Coupon, error) {
		return s.repos.Coupons.GetByCode(ctx, in.Code)
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrCouponExists, in.Code)
	}

	c := &models.Coupon{
		Code:          in.Code,
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		Status:        models.CouponActive,
	}
	if err := s.guard.run(ctx, "create coupon", func(ctx context.Context) error {
		return s.repos.Coupons.Create(ctx, c)
	}); err != nil {
		return nil, err
	}
	s.log.Info("coupon created", zap.String("code", c.Code), zap.String("type", string(c.DiscountType)), zap.Int64("value", c.DiscountValue))
	return c, nil
}

func (s *couponService) Update(ctx context.Context, code string, in CouponInput) (*models.Coupon, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	code = models.NormalizeCouponCode(code)
	if err := validateCoupon(in, false); err != nil {
		return nil, err
	}
	ok, err := fetch(s.guard, ctx, "update coupon", func(ctx context.Context) (bool, error) {
		return s.repos.Coupons.UpdateDiscount(ctx, code, in.DiscountType, in.DiscountValue)
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCouponNotFound, code)
	}
	s.log.Info("coupon updated", zap.String("code", code))
	return s.get(ctx, code)
}

// Deactivate is the only way to retire a coupon; orders keep referencing the code.
func (s *couponService) Deactivate(ctx context.Context, code string) (*models.Coupon, error) {
	return s.setStatus(ctx, code, models.CouponInactive)
}

func (s *couponService) Activate(ctx context.Context, code string) (*models.Coupon, error) {
	return s.setStatus(ctx, code, models.CouponActive)
}

func (s *couponService) setStatus(ctx context.Context, code string, st models.CouponStatus) (*models.Coupon, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	code = models.NormalizeCouponCode(code)
	ok, err := fetch(s.guard, ctx, "set coupon status", func(ctx context.Context) (bool, error) {
		return s.repos.Coupons.SetStatus(ctx, code, st)
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCouponNotFound, code)
	}
	s.log.Info("coupon status changed", zap.String("code", code), zap.String("status", string(st)))
	return s.get(ctx, code)
}

func (s *couponService) get(ctx context.Context, code string) (*models.Coupon, error) {
	c, err := fetch(s.guard, ctx, "load coupon", func(ctx context.Context) (*models.Coupon, error) {
		return s.repos.Coupons.GetByCode(ctx, code)
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrCouponNotFound, code)
	}
	return c, nil
}

func validateCoupon(in CouponInput, withCode bool) error {
	verr := &ValidationError{}
	if withCode && !couponCodeRe.MatchString(in.Code) {
		verr.Add("code", "must be 3-32 characters of A-Z, 0-9, '_' or '-'")
	}
	switch in.DiscountType {
	case models.DiscountPercentage:
		if in.DiscountValue < 1 || in.DiscountValue > 100 {
			verr.Add("discount_value", "percentage must be between 1 and 100")
		}
	case models.DiscountFixed:
		if in.DiscountValue <= 0 {
			verr.Add("discount_value", "fixed discount must be greater than zero")
		}
	default:
		verr.Add("discount_type", "must be percentage or fixed")
	}
	return verr.orNil()
}
