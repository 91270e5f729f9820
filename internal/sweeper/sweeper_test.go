package sweeper

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
	"github.com/kastov/vpnshop/internal/service"
)

func TestSweepReleasesOnlyStaleReservations(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(start)

	store := memory.NewPromoStore()
	limit := 10
	require.NoError(t, store.Create(ctx, &domain.PromoCode{
		Code:            "SWEEP",
		Discount:        domain.Discount{Kind: domain.DiscountPercent, Value: decimal.NewFromInt(10)},
		UsageLimitTotal: &limit,
		IsActive:        true,
		CreatedAt:       start,
	}))

	ledger := service.NewLedger(store)
	sw := New(ledger, clk, 30*time.Minute, time.Minute)

	stale, err := ledger.TryReserve(ctx, "SWEEP", 1, start)
	require.NoError(t, err)

	clk.Add(45 * time.Minute)
	fresh, err := ledger.TryReserve(ctx, "SWEEP", 2, clk.Now())
	require.NoError(t, err)

	sw.Sweep(ctx)

	// The stale token is gone; committing it now reports the release.
	err = ledger.Commit(ctx, stale.Token)
	assert.ErrorIs(t, err, domain.ErrReservationReleased)

	// The fresh one is untouched.
	require.NoError(t, ledger.Commit(ctx, fresh.Token))

	promo, err := store.GetByCode(ctx, "SWEEP")
	require.NoError(t, err)
	assert.Equal(t, 1, promo.UsedTotal)
}

func TestSweepNothingToRelease(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(start)

	store := memory.NewPromoStore()
	ledger := service.NewLedger(store)
	sw := New(ledger, clk, 30*time.Minute, time.Minute)

	// No reservations at all; the pass is a no-op.
	sw.Sweep(ctx)

	promos, err := store.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, promos)
}
