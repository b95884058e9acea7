// Package seed loads the menu catalog and coupons from a YAML file.
package seed

import (
	"context"
	"fmt"
	"io"
	"menu-service/internal/models"
	"menu-service/internal/repository"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Option struct {
	Group                string `yaml:"group"`
	Name                 string `yaml:"name"`
	AdditionalPriceCents int64  `yaml:"additional_price_cents"`
}

type Product struct {
	Name       string   `yaml:"name"`
	PriceCents int64    `yaml:"price_cents"`
	Options    []Option `yaml:"options"`
}

type Coupon struct {
	Code          string `yaml:"code"`
	DiscountType  string `yaml:"discount_type"`
	DiscountValue int64  `yaml:"discount_value"`
	Status        string `yaml:"status"`
}

type File struct {
	Products []Product `yaml:"products"`
	Coupons  []Coupon  `yaml:"coupons"`
}

func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (*File, error) {
	var out File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *File) validate() error {
	for i, p := range f.Products {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("products[%d]: name is required", i)
		}
		if p.PriceCents < 0 {
			return fmt.Errorf("products[%d]: price_cents must be >= 0", i)
		}
		for j, o := range p.Options {
			if o.Group == "" || o.Name == "" {
				return fmt.Errorf("products[%d].options[%d]: group and name are required", i, j)
			}
		}
	}
	for i, c := range f.Coupons {
		cp := c.model()
		switch cp.DiscountType {
		case models.DiscountPercentage:
			if cp.DiscountValue < 1 || cp.DiscountValue > 100 {
				return fmt.Errorf("coupons[%d]: percentage must be 1..100", i)
			}
		case models.DiscountFixed:
			if cp.DiscountValue <= 0 {
				return fmt.Errorf("coupons[%d]: fixed discount must be > 0", i)
			}
		default:
			return fmt.Errorf("coupons[%d]: unknown discount_type %q", i, c.DiscountType)
		}
		if cp.Code == "" {
			return fmt.Errorf("coupons[%d]: code is required", i)
		}
	}
	return nil
}

func (c Coupon) model() models.Coupon {
	st := models.CouponStatus(strings.ToLower(c.Status))
	if st == "" {
		st = models.CouponActive
	}
	return models.Coupon{
		Code:          models.NormalizeCouponCode(c.Code),
		DiscountType:  models.DiscountType(strings.ToLower(c.DiscountType)),
		DiscountValue: c.DiscountValue,
		Status:        st,
	}
}

type Result struct {
	ProductsCreated int
	ProductsUpdated int
	CouponsCreated  int
	CouponsUpdated  int
}

// Apply upserts products by name and coupons by code inside one transaction,
// so running it twice changes nothing.
func Apply(ctx context.Context, repo *repository.Repository, f *File, log *zap.Logger) (Result, error) {
	var res Result
	err := repo.WithTx(ctx, func(tx *repository.Repository) error {
		res = Result{}
		for _, p := range f.Products {
			existing, err := tx.Products.GetByName(ctx, p.Name)
			if err != nil {
				return fmt.Errorf("lookup product %q: %w", p.Name, err)
			}
			if existing != nil {
				if existing.PriceCents != p.PriceCents {
					if err := tx.Products.UpdatePrice(ctx, existing.ID, p.PriceCents); err != nil {
						return fmt.Errorf("update product %q: %w", p.Name, err)
					}
					res.ProductsUpdated++
				}
				continue
			}
			m := &models.Product{Name: p.Name, PriceCents: p.PriceCents, IsActive: true}
			for _, o := range p.Options {
				m.Options = append(m.Options, models.ProductOption{
					GroupName:            o.Group,
					Name:                 o.Name,
					AdditionalPriceCents: o.AdditionalPriceCents,
				})
			}
			if err := tx.Products.Create(ctx, m); err != nil {
				return fmt.Errorf("create product %q: %w", p.Name, err)
			}
			res.ProductsCreated++
		}

		for _, c := range f.Coupons {
			want := c.model()
			existing, err := tx.Coupons.GetByCode(ctx, want.Code)
			if err != nil {
				return fmt.Errorf("lookup coupon %q: %w", want.Code, err)
			}
			if existing == nil {
				if err := tx.Coupons.Create(ctx, &want); err != nil {
					return fmt.Errorf("create coupon %q: %w", want.Code, err)
				}
				res.CouponsCreated++
				continue
			}
			if existing.DiscountType == want.DiscountType && existing.DiscountValue == want.DiscountValue && existing.Status == want.Status {
				continue
			}
			if _, err := tx.Coupons.UpdateDiscount(ctx, want.Code, want.DiscountType, want.DiscountValue); err != nil {
				return fmt.Errorf("update coupon %q: %w", want.Code, err)
			}
			if _, err := tx.Coupons.SetStatus(ctx, want.Code, want.Status); err != nil {
				return fmt.Errorf("update coupon %q: %w", want.Code, err)
			}
			res.CouponsUpdated++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	log.Info("seed applied",
		zap.Int("products_created", res.ProductsCreated),
		zap.Int("products_updated", res.ProductsUpdated),
		zap.Int("coupons_created", res.CouponsCreated),
		zap.Int("coupons_updated", res.CouponsUpdated),
	)
	return res, nil
}
