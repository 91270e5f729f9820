package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kastov/vpnshop/internal/domain"
	"github.com/kastov/vpnshop/internal/repository/memory"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBalanceCreditAndDebit(t *testing.T) {
	store := memory.NewBalanceStore()
	svc := NewBalanceService(store)
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, 1, domain.BalanceMain, dec("100.00"), "top-up"))
	require.NoError(t, svc.Debit(ctx, 1, domain.BalanceMain, dec("40.00"), "purchase"))

	acc, err := svc.Account(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acc.MainBalance.Equal(dec("60.00")))
	assert.True(t, acc.ReferralBalance.IsZero())

	txs := store.Transactions(1)
	require.Len(t, txs, 2, "every mutation leaves an audit row")
	assert.Equal(t, domain.TxTypeCredit, txs[0].TxType)
	assert.Equal(t, domain.TxTypeDebit, txs[1].TxType)
}

func TestBalanceCreditRejectsNonPositive(t *testing.T) {
	svc := NewBalanceService(memory.NewBalanceStore())
	ctx := context.Background()

	assert.ErrorIs(t, svc.Credit(ctx, 1, domain.BalanceMain, dec("0"), ""), domain.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Credit(ctx, 1, domain.BalanceMain, dec("-5"), ""), domain.ErrInvalidAmount)
}

func TestBalanceDebitInsufficient(t *testing.T) {
	svc := NewBalanceService(memory.NewBalanceStore())
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, 1, domain.BalanceMain, dec("30.00"), "top-up"))

	err := svc.Debit(ctx, 1, domain.BalanceMain, dec("50.00"), "purchase")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	acc, err := svc.Account(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acc.MainBalance.Equal(dec("30.00")), "failed debit leaves the balance unchanged")
}

func TestBalanceKindsAreIndependent(t *testing.T) {
	svc := NewBalanceService(memory.NewBalanceStore())
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, 1, domain.BalanceReferral, dec("25.00"), "reward"))

	err := svc.Debit(ctx, 1, domain.BalanceMain, dec("10.00"), "purchase")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance, "referral funds are not spendable directly")
}

func TestBalanceWithdraw(t *testing.T) {
	svc := NewBalanceService(memory.NewBalanceStore())
	ctx := context.Background()
	policy := &domain.RewardPolicy{MinWithdrawal: dec("100.00")}

	require.NoError(t, svc.Credit(ctx, 1, domain.BalanceReferral, dec("150.00"), "reward"))

	assert.ErrorIs(t, svc.Withdraw(ctx, 1, dec("50.00"), policy), domain.ErrBelowMinWithdrawal)
	assert.ErrorIs(t, svc.Withdraw(ctx, 1, dec("200.00"), policy), domain.ErrInsufficientBalance)

	require.NoError(t, svc.Withdraw(ctx, 1, dec("120.00"), policy))

	acc, err := svc.Account(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acc.MainBalance.Equal(dec("120.00")))
	assert.True(t, acc.ReferralBalance.Equal(dec("30.00")))
}

func TestBalanceConcurrentMutations(t *testing.T) {
	svc := NewBalanceService(memory.NewBalanceStore())
	ctx := context.Background()

	require.NoError(t, svc.Credit(ctx, 1, domain.BalanceMain, dec("1000.00"), "seed"))

	const workers = 50

	var wg sync.WaitGroup
	debited := make([]bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = svc.Credit(ctx, 1, domain.BalanceMain, dec("10.00"), "credit")
				return
			}
			if err := svc.Debit(ctx, 1, domain.BalanceMain, dec("10.00"), "debit"); err == nil {
				debited[i] = true
			}
		}(i)
	}
	wg.Wait()

	debits := 0
	for _, ok := range debited {
		if ok {
			debits++
		}
	}

	acc, err := svc.Account(ctx, 1)
	require.NoError(t, err)
	expected := dec("1000.00").
		Add(dec("10.00").Mul(decimal.NewFromInt(workers / 2))).
		Sub(dec("10.00").Mul(decimal.NewFromInt(int64(debits))))
	assert.True(t, acc.MainBalance.Equal(expected),
		"balance %s reflects every interleaved mutation exactly once", acc.MainBalance)
	assert.False(t, acc.MainBalance.IsNegative())
}
