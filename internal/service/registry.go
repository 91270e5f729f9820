package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kastov/vpnshop/internal/clock"
	"github.com/kastov/vpnshop/internal/domain"
)

// Registry owns promo code definitions: create, lookup, listing and the
// active toggle. Codes are never deleted; operators retire them via
// SetActive.
type Registry struct {
	promos PromoStore
	clock  clock.Clock
}

func NewRegistry(promos PromoStore, clk clock.Clock) *Registry {
	return &Registry{promos: promos, clock: clk}
}

type CreatePromoParams struct {
	Code              string
	Discount          domain.Discount
	UsageLimitTotal   *int
	UsageLimitPerUser *int
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	CreatedBy         int64
	Description       string
}

func (r *Registry) Create(ctx context.Context, p CreatePromoParams) (*domain.PromoCode, error) {
	code := domain.NormalizeCode(p.Code)
	if err := domain.ValidateCode(code); err != nil {
		return nil, err
	}
	if p.Discount.Kind == "" {
		return nil, domain.ErrInvalidDiscountValue
	}
	if p.UsageLimitTotal != nil && *p.UsageLimitTotal <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if p.UsageLimitPerUser != nil && *p.UsageLimitPerUser <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if p.ValidFrom != nil && p.ValidUntil != nil && !p.ValidUntil.After(*p.ValidFrom) {
		return nil, domain.ErrInvalidValidityWindow
	}

	promo := &domain.PromoCode{
		Code:              code,
		Discount:          p.Discount,
		UsageLimitTotal:   p.UsageLimitTotal,
		UsageLimitPerUser: p.UsageLimitPerUser,
		ValidFrom:         p.ValidFrom,
		ValidUntil:        p.ValidUntil,
		IsActive:          true,
		CreatedBy:         p.CreatedBy,
		Description:       p.Description,
		CreatedAt:         r.clock.Now(),
	}

	if err := r.promos.Create(ctx, promo); err != nil {
		return nil, fmt.Errorf("create promo: %w", err)
	}
	return promo, nil
}

func (r *Registry) Get(ctx context.Context, code string) (*domain.PromoCode, error) {
	return r.promos.GetByCode(ctx, domain.NormalizeCode(code))
}

// List returns promo codes in insertion order.
func (r *Registry) List(ctx context.Context, includeInactive bool) ([]domain.PromoCode, error) {
	return r.promos.List(ctx, includeInactive)
}

// SetActive toggles a code. Idempotent: returns whether the state changed.
func (r *Registry) SetActive(ctx context.Context, code string, active bool) (bool, error) {
	return r.promos.SetActive(ctx, domain.NormalizeCode(code), active)
}
