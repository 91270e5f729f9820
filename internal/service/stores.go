package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kastov/vpnshop/internal/domain"
)

// PromoStore persists promo codes, reservations and redemption records.
// Reserve is the single atomic quota operation: the limit checks and the
// used_total increment execute as one indivisible unit per code.
type PromoStore interface {
	Create(ctx context.Context, promo *domain.PromoCode) error
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)
	List(ctx context.Context, includeInactive bool) ([]domain.PromoCode, error)
	SetActive(ctx context.Context, code string, active bool) (bool, error)

	Reserve(ctx context.Context, promoID, userID int64, at time.Time) (*domain.Reservation, error)
	CommitReservation(ctx context.Context, token uuid.UUID) error
	ReleaseReservation(ctx context.Context, token uuid.UUID) error
	StaleReservations(ctx context.Context, olderThan time.Time) ([]uuid.UUID, error)
	RedemptionCount(ctx context.Context, promoID, userID int64) (int, error)
}

// BalanceStore mutates user balances. Debit and TransferReferralToMain
// are conditional single-statement updates: the non-negativity check and
// the subtraction never run as separate read-then-write calls.
type BalanceStore interface {
	Account(ctx context.Context, userID int64) (*domain.BalanceAccount, error)
	Credit(ctx context.Context, userID int64, kind domain.BalanceKind, amount decimal.Decimal, description string) error
	Debit(ctx context.Context, userID int64, kind domain.BalanceKind, amount decimal.Decimal, description string) error
	TransferReferralToMain(ctx context.Context, userID int64, amount decimal.Decimal) error
}

// ReferralStore holds referral relationships and the insert-if-absent
// claims that make reward crediting idempotent.
type ReferralStore interface {
	Referrer(ctx context.Context, referredID int64) (*domain.ReferralRelationship, error)
	Bind(ctx context.Context, referrerID, referredID int64) (bool, error)
	ClaimPurchaseReward(ctx context.Context, purchaseID string, referrerID, referredID int64, amount decimal.Decimal) (bool, error)
	ClaimStartBonus(ctx context.Context, referrerID, referredID int64) (bool, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

type SettingsStore interface {
	All(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

// Notifier delivers fire-and-forget messages after reward credits.
// Delivery failure never affects the credit.
type Notifier interface {
	RewardCredited(referrerID, referredID int64, amount decimal.Decimal)
}
