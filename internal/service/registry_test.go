package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kastov/vpnshop/internal/clock"
	"github.com/kastov/vpnshop/internal/domain"
	"github.com/kastov/vpnshop/internal/repository/memory"
)

func newTestRegistry(t *testing.T) (*Registry, *memory.PromoStore, *clock.MockClock) {
	t.Helper()
	store := memory.NewPromoStore()
	clk := clock.NewMockClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewRegistry(store, clk), store, clk
}

func percentDiscount(t *testing.T, value string) domain.Discount {
	t.Helper()
	d, err := domain.NewPercentDiscount(decimal.RequireFromString(value))
	require.NoError(t, err)
	return d
}

func amountDiscount(t *testing.T, value string) domain.Discount {
	t.Helper()
	d, err := domain.NewAmountDiscount(decimal.RequireFromString(value))
	require.NoError(t, err)
	return d
}

func TestRegistryCreate(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	promo, err := reg.Create(ctx, CreatePromoParams{
		Code:     "sale10",
		Discount: percentDiscount(t, "10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "SALE10", promo.Code, "codes are stored canonical upper-case")
	assert.True(t, promo.IsActive)
	assert.Zero(t, promo.UsedTotal)
}

func TestRegistryCreateDuplicate(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Create(ctx, CreatePromoParams{Code: "SALE10", Discount: percentDiscount(t, "10")})
	require.NoError(t, err)

	// Case-insensitive duplicate
	_, err = reg.Create(ctx, CreatePromoParams{Code: "sale10", Discount: amountDiscount(t, "50")})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestRegistryCreateValidation(t *testing.T) {
	reg, _, clk := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Create(ctx, CreatePromoParams{Code: "A", Discount: percentDiscount(t, "10")})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = reg.Create(ctx, CreatePromoParams{Code: "SALE10"})
	assert.ErrorIs(t, err, domain.ErrInvalidDiscountValue, "missing discount")

	from := clk.Now()
	until := from.Add(-time.Hour)
	_, err = reg.Create(ctx, CreatePromoParams{
		Code:       "SALE10",
		Discount:   percentDiscount(t, "10"),
		ValidFrom:  &from,
		ValidUntil: &until,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidValidityWindow)

	zero := 0
	_, err = reg.Create(ctx, CreatePromoParams{
		Code:            "SALE10",
		Discount:        percentDiscount(t, "10"),
		UsageLimitTotal: &zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestRegistryListInsertionOrder(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, code := range []string{"FIRST", "SECOND", "THIRD"} {
		_, err := reg.Create(ctx, CreatePromoParams{Code: code, Discount: percentDiscount(t, "5")})
		require.NoError(t, err)
	}
	_, err := reg.SetActive(ctx, "SECOND", false)
	require.NoError(t, err)

	active, err := reg.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "FIRST", active[0].Code)
	assert.Equal(t, "THIRD", active[1].Code)

	all, err := reg.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "SECOND", all[1].Code)
}

func TestRegistrySetActiveIdempotent(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Create(ctx, CreatePromoParams{Code: "SALE10", Discount: percentDiscount(t, "10")})
	require.NoError(t, err)

	changed, err := reg.SetActive(ctx, "sale10", false)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = reg.SetActive(ctx, "SALE10", false)
	require.NoError(t, err)
	assert.False(t, changed, "second disable is a no-op")

	_, err = reg.SetActive(ctx, "MISSING", true)
	assert.ErrorIs(t, err, domain.ErrCodeNotFound)
}
