package domain

import "github.com/shopspring/decimal"

type BalanceKind string

const (
	BalanceMain     BalanceKind = "main"
	BalanceReferral BalanceKind = "referral"
)

// BalanceAccount holds a user's spendable and referral-earned balances.
// Both are non-negative at all times; mutations go through BalanceStore only.
type BalanceAccount struct {
	UserID          int64
	MainBalance     decimal.Decimal
	ReferralBalance decimal.Decimal
}

func (a *BalanceAccount) Get(kind BalanceKind) decimal.Decimal {
	if kind == BalanceReferral {
		return a.ReferralBalance
	}
	return a.MainBalance
}
