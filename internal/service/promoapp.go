package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kastov/vpnshop/internal/domain"
)

// PromoApplication orchestrates promo usage around a payment attempt:
// reserve quota and quote the discounted price before payment, commit
// the redemption and trigger the referral reward after confirmation,
// release the quota on failure. A redemption is never committed without
// a payment confirmation from the caller.
type PromoApplication struct {
	ledger  *Ledger
	promos  PromoStore
	rewards *RewardEngine
}

func NewPromoApplication(ledger *Ledger, promos PromoStore, rewards *RewardEngine) *PromoApplication {
	return &PromoApplication{ledger: ledger, promos: promos, rewards: rewards}
}

// ValidateAndReserve reserves quota on the code and returns the token
// together with the discounted price, clamped at zero.
func (s *PromoApplication) ValidateAndReserve(ctx context.Context, code string, userID int64, price decimal.Decimal, at time.Time) (*domain.Reservation, decimal.Decimal, error) {
	res, err := s.ledger.TryReserve(ctx, code, userID, at)
	if err != nil {
		return nil, decimal.Zero, err
	}

	promo, err := s.promos.GetByCode(ctx, res.Code)
	if err != nil {
		// Quota is held but the quote failed; hand the quota back.
		_ = s.ledger.Release(ctx, res.Token)
		return nil, decimal.Zero, fmt.Errorf("load promo for quote: %w", err)
	}

	return res, promo.Discount.Apply(price), nil
}

// OnPaymentSuccess commits the reservation and credits the referral
// reward for the purchase. Both steps are idempotent, so upstream
// payment callbacks may retry safely.
func (s *PromoApplication) OnPaymentSuccess(ctx context.Context, token uuid.UUID, purchaseID string, buyerID int64, purchaseAmount decimal.Decimal, policy *domain.RewardPolicy) (*domain.RewardOutcome, error) {
	if token != uuid.Nil {
		if err := s.ledger.Commit(ctx, token); err != nil {
			return nil, fmt.Errorf("commit reservation: %w", err)
		}
	}
	return s.rewards.ComputeAndCredit(ctx, purchaseID, buyerID, purchaseAmount, policy)
}

// OnPaymentFailure releases the reservation so the quota becomes
// available again.
func (s *PromoApplication) OnPaymentFailure(ctx context.Context, token uuid.UUID) error {
	return s.ledger.Release(ctx, token)
}

// NewUserDiscount applies the policy's new-user discount to a referred
// user's first purchase price.
func (s *PromoApplication) NewUserDiscount(price decimal.Decimal, policy *domain.RewardPolicy) decimal.Decimal {
	if policy.NewUserDiscountPercent.LessThanOrEqual(decimal.Zero) {
		return price
	}
	d := domain.Discount{Kind: domain.DiscountPercent, Value: policy.NewUserDiscountPercent}
	return d.Apply(price)
}
