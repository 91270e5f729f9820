package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kastov/vpnshop/internal/domain"
)

type BalanceStore struct {
	mu       sync.Mutex
	accounts map[int64]*domain.BalanceAccount
	txs      []domain.Transaction
}

func NewBalanceStore() *BalanceStore {
	return &BalanceStore{accounts: make(map[int64]*domain.BalanceAccount)}
}

func (s *BalanceStore) Account(ctx context.Context, userID int64) (*domain.BalanceAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := *s.account(userID)
	return &snapshot, nil
}

func (s *BalanceStore) Credit(ctx context.Context, userID int64, kind domain.BalanceKind, amount decimal.Decimal, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.account(userID)
	if kind == domain.BalanceReferral {
		acc.ReferralBalance = acc.ReferralBalance.Add(amount)
	} else {
		acc.MainBalance = acc.MainBalance.Add(amount)
	}
	s.record(userID, amount, domain.TxTypeCredit, kind, description)
	return nil
}

func (s *BalanceStore) Debit(ctx context.Context, userID int64, kind domain.BalanceKind, amount decimal.Decimal, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.account(userID)
	if kind == domain.BalanceReferral {
		if acc.ReferralBalance.LessThan(amount) {
			return domain.ErrInsufficientBalance
		}
		acc.ReferralBalance = acc.ReferralBalance.Sub(amount)
	} else {
		if acc.MainBalance.LessThan(amount) {
			return domain.ErrInsufficientBalance
		}
		acc.MainBalance = acc.MainBalance.Sub(amount)
	}
	s.record(userID, amount, domain.TxTypeDebit, kind, description)
	return nil
}

func (s *BalanceStore) TransferReferralToMain(ctx context.Context, userID int64, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.account(userID)
	if acc.ReferralBalance.LessThan(amount) {
		return domain.ErrInsufficientBalance
	}
	acc.ReferralBalance = acc.ReferralBalance.Sub(amount)
	acc.MainBalance = acc.MainBalance.Add(amount)
	s.record(userID, amount, domain.TxTypeDebit, domain.BalanceReferral, "Withdrawal to main balance")
	s.record(userID, amount, domain.TxTypeCredit, domain.BalanceMain, "Withdrawal from referral balance")
	return nil
}

// Transactions returns the audit trail for assertions in tests.
func (s *BalanceStore) Transactions(userID int64) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Transaction
	for _, tx := range s.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out
}

func (s *BalanceStore) account(userID int64) *domain.BalanceAccount {
	acc, ok := s.accounts[userID]
	if !ok {
		acc = &domain.BalanceAccount{
			UserID:          userID,
			MainBalance:     decimal.Zero,
			ReferralBalance: decimal.Zero,
		}
		s.accounts[userID] = acc
	}
	return acc
}

func (s *BalanceStore) record(userID int64, amount decimal.Decimal, txType domain.TxType, kind domain.BalanceKind, description string) {
	s.txs = append(s.txs, domain.Transaction{
		ID:          int64(len(s.txs) + 1),
		UserID:      userID,
		Amount:      amount,
		TxType:      txType,
		BalanceKind: kind,
		Description: description,
	})
}
