package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kastov/vpnshop/internal/domain"
)

// BalanceService fronts the balance store. Every mutation is per-user
// atomic and leaves an audit row; no balance ever goes negative.
type BalanceService struct {
	balances BalanceStore
}

func NewBalanceService(balances BalanceStore) *BalanceService {
	return &BalanceService{balances: balances}
}

func (s *BalanceService) Credit(ctx context.Context, userID int64, kind domain.BalanceKind, amount decimal.Decimal, description string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.ErrInvalidAmount
	}
	if err := s.balances.Credit(ctx, userID, kind, amount, description); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}

func (s *BalanceService) Debit(ctx context.Context, userID int64, kind domain.BalanceKind, amount decimal.Decimal, description string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.ErrInvalidAmount
	}
	return s.balances.Debit(ctx, userID, kind, amount, description)
}

func (s *BalanceService) Account(ctx context.Context, userID int64) (*domain.BalanceAccount, error) {
	return s.balances.Account(ctx, userID)
}

// Withdraw moves referral earnings to the spendable balance. The policy
// sets a floor below which payouts are refused.
func (s *BalanceService) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, policy *domain.RewardPolicy) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.ErrInvalidAmount
	}
	if amount.LessThan(policy.MinWithdrawal) {
		return domain.ErrBelowMinWithdrawal
	}
	return s.balances.TransferReferralToMain(ctx, userID, amount)
}
