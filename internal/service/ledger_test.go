package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kastov/vpnshop/internal/config"
	"github.com/kastov/vpnshop/internal/domain"
	"github.com/kastov/vpnshop/internal/repository/memory"
)

var testTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type promoSpec struct {
	code       string
	limitTotal int
	limitUser  int
	validFrom  *time.Time
	validUntil *time.Time
	inactive   bool
}

func seedPromo(t *testing.T, store *memory.PromoStore, spec promoSpec) *domain.PromoCode {
	t.Helper()
	promo := &domain.PromoCode{
		Code:       spec.code,
		Discount:   domain.Discount{Kind: domain.DiscountPercent, Value: decimal.NewFromInt(10)},
		ValidFrom:  spec.validFrom,
		ValidUntil: spec.validUntil,
		IsActive:   !spec.inactive,
		CreatedAt:  testTime,
	}
	if spec.limitTotal > 0 {
		promo.UsageLimitTotal = &spec.limitTotal
	}
	if spec.limitUser > 0 {
		promo.UsageLimitPerUser = &spec.limitUser
	}
	require.NoError(t, store.Create(context.Background(), promo))
	return promo
}

func TestLedgerTryReserveValidation(t *testing.T) {
	store := memory.NewPromoStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	past := testTime.Add(-time.Hour)
	future := testTime.Add(time.Hour)
	farFuture := testTime.Add(2 * time.Hour)

	seedPromo(t, store, promoSpec{code: "OFF", inactive: true})
	seedPromo(t, store, promoSpec{code: "LATER", validFrom: &future, validUntil: &farFuture})
	seedPromo(t, store, promoSpec{code: "GONE", validUntil: &past})

	_, err := ledger.TryReserve(ctx, "MISSING", 1, testTime)
	assert.ErrorIs(t, err, domain.ErrCodeNotFound)

	_, err = ledger.TryReserve(ctx, "OFF", 1, testTime)
	assert.ErrorIs(t, err, domain.ErrCodeInactive)

	_, err = ledger.TryReserve(ctx, "LATER", 1, testTime)
	assert.ErrorIs(t, err, domain.ErrCodeNotYetValid)

	_, err = ledger.TryReserve(ctx, "GONE", 1, testTime)
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestLedgerExpiredBeatsQuota(t *testing.T) {
	store := memory.NewPromoStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	past := testTime.Add(-time.Minute)
	seedPromo(t, store, promoSpec{code: "GONE", limitTotal: 100, validUntil: &past})

	// Plenty of quota left, but the window has closed.
	_, err := ledger.TryReserve(ctx, "GONE", 1, testTime)
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestLedgerQuotaScenario(t *testing.T) {
	store := memory.NewPromoStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	seedPromo(t, store, promoSpec{code: "SALE10", limitTotal: 2, limitUser: 1})

	const userA, userB, userC = 1, 2, 3

	resA, err := ledger.TryReserve(ctx, "SALE10", userA, testTime)
	require.NoError(t, err)
	assertUsedTotal(t, store, "SALE10", 1)

	_, err = ledger.TryReserve(ctx, "SALE10", userA, testTime)
	assert.ErrorIs(t, err, domain.ErrPerUserLimitExceeded)

	resB, err := ledger.TryReserve(ctx, "SALE10", userB, testTime)
	require.NoError(t, err)
	assertUsedTotal(t, store, "SALE10", 2)

	_, err = ledger.TryReserve(ctx, "SALE10", userC, testTime)
	assert.ErrorIs(t, err, domain.ErrGlobalLimitExceeded)

	require.NoError(t, ledger.Commit(ctx, resA.Token))
	require.NoError(t, ledger.Commit(ctx, resB.Token))
}

func TestLedgerReleaseRestoresQuota(t *testing.T) {
	store := memory.NewPromoStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	seedPromo(t, store, promoSpec{code: "SINGLE", limitTotal: 1})

	res, err := ledger.TryReserve(ctx, "SINGLE", 1, testTime)
	require.NoError(t, err)

	_, err = ledger.TryReserve(ctx, "SINGLE", 2, testTime)
	require.ErrorIs(t, err, domain.ErrGlobalLimitExceeded)

	require.NoError(t, ledger.Release(ctx, res.Token))
	assertUsedTotal(t, store, "SINGLE", 0)

	_, err = ledger.TryReserve(ctx, "SINGLE", 2, testTime)
	assert.NoError(t, err, "released quota is available again")
}

func TestLedgerCommitIdempotent(t *testing.T) {
	store := memory.NewPromoStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	promo := seedPromo(t, store, promoSpec{code: "SALE10"})

	res, err := ledger.TryReserve(ctx, "SALE10", 1, testTime)
	require.NoError(t, err)

	require.NoError(t, ledger.Commit(ctx, res.Token))
	require.NoError(t, ledger.Commit(ctx, res.Token), "second commit is a no-op")

	count, err := store.RedemptionCount(ctx, promo.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "one redemption record despite the retry")
}

func TestLedgerCommitAfterRelease(t *testing.T) {
	store := memory.NewPromoStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	seedPromo(t, store, promoSpec{code: "SALE10"})

	res, err := ledger.TryReserve(ctx, "SALE10", 1, testTime)
	require.NoError(t, err)
	require.NoError(t, ledger.Release(ctx, res.Token))

	assert.ErrorIs(t, ledger.Commit(ctx, res.Token), domain.ErrReservationReleased)
}

func TestLedgerReleaseAfterCommit(t *testing.T) {
	store := memory.NewPromoStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	seedPromo(t, store, promoSpec{code: "SALE10", limitTotal: 5})

	res, err := ledger.TryReserve(ctx, "SALE10", 1, testTime)
	require.NoError(t, err)
	require.NoError(t, ledger.Commit(ctx, res.Token))

	// A blanket release after the commit must not hand quota back.
	require.NoError(t, ledger.Release(ctx, res.Token))
	assertUsedTotal(t, store, "SALE10", 1)
}

func TestLedgerReleaseUnknownToken(t *testing.T) {
	store := memory.NewPromoStore()
	ledger := NewLedger(store)

	err := ledger.Release(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)
}

func TestLedgerConcurrentReserveSingleWinner(t *testing.T) {
	store := memory.NewPromoStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	seedPromo(t, store, promoSpec{code: "RACE", limitTotal: 1})

	const attempts = 50

	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ledger.TryReserve(ctx, "RACE", int64(100+i), testTime)
			results[i] = err
		}(i)
	}
	wg.Wait()

	successes, limited := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrGlobalLimitExceeded):
			limited++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, limited)
	assertUsedTotal(t, store, "RACE", 1)
}

func TestLedgerConcurrentPerUserCap(t *testing.T) {
	store := memory.NewPromoStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	seedPromo(t, store, promoSpec{code: "SOLO", limitUser: 1})

	const attempts = 20
	const userID = 7

	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ledger.TryReserve(ctx, "SOLO", userID, testTime)
			results[i] = err
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, domain.ErrPerUserLimitExceeded)
		}
	}
	assert.Equal(t, 1, successes, "parallel checkouts cannot exceed the per-user cap")
}

func TestLedgerReleaseStale(t *testing.T) {
	store := memory.NewPromoStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	seedPromo(t, store, promoSpec{code: "SALE10", limitTotal: 10})

	old, err := ledger.TryReserve(ctx, "SALE10", 1, testTime.Add(-time.Hour))
	require.NoError(t, err)
	fresh, err := ledger.TryReserve(ctx, "SALE10", 2, testTime)
	require.NoError(t, err)
	committed, err := ledger.TryReserve(ctx, "SALE10", 3, testTime.Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, ledger.Commit(ctx, committed.Token))

	released, err := ledger.ReleaseStale(ctx, testTime.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, released, "only the stale open reservation is swept")

	// Old token is gone, fresh and committed ones stay.
	assert.ErrorIs(t, ledger.Commit(ctx, old.Token), domain.ErrReservationReleased)
	assert.NoError(t, ledger.Commit(ctx, fresh.Token))
	assertUsedTotal(t, store, "SALE10", 2)
}

// flakyPromoStore fails Reserve with a configured error a set number of
// times before delegating to the real store.
type flakyPromoStore struct {
	*memory.PromoStore
	failWith  error
	failTimes int
	attempts  int
}

func (s *flakyPromoStore) Reserve(ctx context.Context, promoID, userID int64, at time.Time) (*domain.Reservation, error) {
	s.attempts++
	if s.attempts <= s.failTimes {
		return nil, s.failWith
	}
	return s.PromoStore.Reserve(ctx, promoID, userID, at)
}

func TestLedgerRetriesTransientConflicts(t *testing.T) {
	store := &flakyPromoStore{
		PromoStore: memory.NewPromoStore(),
		failWith:   domain.ErrConcurrentUpdate,
		failTimes:  2,
	}
	seedPromo(t, store.PromoStore, promoSpec{code: "SALE10", limitTotal: 5})
	ledger := NewLedger(store)

	res, err := ledger.TryReserve(context.Background(), "SALE10", 1, testTime)
	require.NoError(t, err, "transient conflicts within the retry budget succeed")
	assert.Equal(t, "SALE10", res.Code)
	assert.Equal(t, 3, store.attempts)
}

func TestLedgerGivesUpAfterRetryBudget(t *testing.T) {
	store := &flakyPromoStore{
		PromoStore: memory.NewPromoStore(),
		failWith:   domain.ErrConcurrentUpdate,
		failTimes:  10,
	}
	seedPromo(t, store.PromoStore, promoSpec{code: "SALE10", limitTotal: 5})
	ledger := NewLedger(store)

	_, err := ledger.TryReserve(context.Background(), "SALE10", 1, testTime)
	assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
	assert.Equal(t, 1+config.ConflictRetries, store.attempts)
}

func TestLedgerNeverRetriesStorageOutage(t *testing.T) {
	store := &flakyPromoStore{
		PromoStore: memory.NewPromoStore(),
		failWith:   domain.ErrStorageUnavailable,
		failTimes:  10,
	}
	seedPromo(t, store.PromoStore, promoSpec{code: "SALE10", limitTotal: 5})
	ledger := NewLedger(store)

	_, err := ledger.TryReserve(context.Background(), "SALE10", 1, testTime)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, 1, store.attempts, "a storage outage is surfaced immediately")
}

func assertUsedTotal(t *testing.T, store *memory.PromoStore, code string, want int) {
	t.Helper()
	promo, err := store.GetByCode(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, want, promo.UsedTotal)
}
