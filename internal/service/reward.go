package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/kastov/vpnshop/internal/domain"
)

// RewardEngine computes and credits referral bonuses for finalized
// purchases. Each purchase id is credited at most once, whatever the
// number of upstream retries.
type RewardEngine struct {
	referrals ReferralStore
	balances  BalanceStore
	notifier  Notifier
}

func NewRewardEngine(referrals ReferralStore, balances BalanceStore, notifier Notifier) *RewardEngine {
	return &RewardEngine{referrals: referrals, balances: balances, notifier: notifier}
}

// ComputeAndCredit resolves the buyer's referrer, picks the reward per
// the policy and credits the referrer's referral balance. The purchase
// id is claimed before money moves, so a retry after a partial failure
// can never double a credit.
func (e *RewardEngine) ComputeAndCredit(ctx context.Context, purchaseID string, referredUserID int64, purchaseAmount decimal.Decimal, policy *domain.RewardPolicy) (*domain.RewardOutcome, error) {
	rel, err := e.referrals.Referrer(ctx, referredUserID)
	if err != nil {
		return nil, fmt.Errorf("lookup referrer: %w", err)
	}
	if rel == nil {
		return &domain.RewardOutcome{Status: domain.RewardNoReferrer}, nil
	}

	amount := rewardAmount(purchaseAmount, policy)
	if amount.LessThanOrEqual(decimal.Zero) {
		return &domain.RewardOutcome{Status: domain.RewardNotEligible, ReferrerID: rel.ReferrerID}, nil
	}

	claimed, err := e.referrals.ClaimPurchaseReward(ctx, purchaseID, rel.ReferrerID, referredUserID, amount)
	if err != nil {
		return nil, fmt.Errorf("claim purchase reward: %w", err)
	}
	if !claimed {
		return &domain.RewardOutcome{Status: domain.RewardAlreadyRewarded, ReferrerID: rel.ReferrerID}, nil
	}

	if policy.RewardType == domain.RewardFixedStartReferrer {
		// One-time bonus: only the referred user's first qualifying
		// purchase pays out.
		first, err := e.referrals.ClaimStartBonus(ctx, rel.ReferrerID, referredUserID)
		if err != nil {
			return nil, fmt.Errorf("claim start bonus: %w", err)
		}
		if !first {
			return &domain.RewardOutcome{Status: domain.RewardNotEligible, ReferrerID: rel.ReferrerID}, nil
		}
	}

	description := fmt.Sprintf("Referral reward for purchase %s", purchaseID)
	if err := e.balances.Credit(ctx, rel.ReferrerID, domain.BalanceReferral, amount, description); err != nil {
		return nil, fmt.Errorf("credit referrer: %w", err)
	}

	slog.Info("referral reward credited",
		"purchase_id", purchaseID,
		"referrer_id", rel.ReferrerID,
		"referred_id", referredUserID,
		"amount", amount.String(),
	)

	if e.notifier != nil {
		e.notifier.RewardCredited(rel.ReferrerID, referredUserID, amount)
	}

	return &domain.RewardOutcome{
		Status:     domain.RewardCredited,
		ReferrerID: rel.ReferrerID,
		Amount:     amount,
	}, nil
}

func rewardAmount(purchaseAmount decimal.Decimal, policy *domain.RewardPolicy) decimal.Decimal {
	switch policy.RewardType {
	case domain.RewardPercentPurchase:
		return purchaseAmount.Mul(policy.Percentage).Div(decimal.NewFromInt(100)).Round(2)
	case domain.RewardFixedPurchase:
		return policy.FixedAmount
	case domain.RewardFixedStartReferrer:
		return policy.StartBonus
	default:
		return decimal.Zero
	}
}
