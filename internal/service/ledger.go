package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kastov/vpnshop/internal/config"
	"github.com/kastov/vpnshop/internal/domain"
)

// Ledger is the only component that consumes promo quota. A reservation
// holds quota for the duration of a payment attempt: Commit turns it
// into a redemption record, Release hands the quota back.
type Ledger struct {
	promos PromoStore
}

func NewLedger(promos PromoStore) *Ledger {
	return &Ledger{promos: promos}
}

// TryReserve validates the code against its state and validity window,
// then consumes one unit of quota. The quota checks and the increment
// run as one atomic store operation, so concurrent attempts against the
// same code get a definite accept/reject each. Transient conflicts are
// retried a bounded number of times.
func (l *Ledger) TryReserve(ctx context.Context, code string, userID int64, at time.Time) (*domain.Reservation, error) {
	code = domain.NormalizeCode(code)

	for attempt := 0; ; attempt++ {
		promo, err := l.promos.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if !promo.IsActive {
			return nil, domain.ErrCodeInactive
		}
		if promo.ValidFrom != nil && at.Before(*promo.ValidFrom) {
			return nil, domain.ErrCodeNotYetValid
		}
		if promo.ValidUntil != nil && at.After(*promo.ValidUntil) {
			return nil, domain.ErrCodeExpired
		}

		res, err := l.promos.Reserve(ctx, promo.ID, userID, at)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, domain.ErrConcurrentUpdate) && attempt < config.ConflictRetries {
			continue
		}
		return nil, err
	}
}

// Commit persists the redemption backing the reservation. Idempotent per
// token; committing a released reservation is a caller bug and fails.
func (l *Ledger) Commit(ctx context.Context, token uuid.UUID) error {
	return l.promos.CommitReservation(ctx, token)
}

// Release hands the reserved quota back after a failed payment. Safe to
// call repeatedly and on committed reservations, which stay untouched,
// so a reconciliation sweep can release stale tokens blindly.
func (l *Ledger) Release(ctx context.Context, token uuid.UUID) error {
	return l.promos.ReleaseReservation(ctx, token)
}

// ReleaseStale releases every open reservation older than olderThan and
// reports how many it touched.
func (l *Ledger) ReleaseStale(ctx context.Context, olderThan time.Time) (int, error) {
	tokens, err := l.promos.StaleReservations(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, token := range tokens {
		if err := l.promos.ReleaseReservation(ctx, token); err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}
