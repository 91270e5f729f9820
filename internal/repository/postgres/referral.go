package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kastov/vpnshop/internal/domain"
)

type ReferralStore struct {
	db *pgxpool.Pool
}

func NewReferralStore(db *pgxpool.Pool) *ReferralStore {
	return &ReferralStore{db: db}
}

func (s *ReferralStore) Referrer(ctx context.Context, referredID int64) (*domain.ReferralRelationship, error) {
	rel := &domain.ReferralRelationship{ReferredID: referredID}
	err := s.db.QueryRow(ctx,
		`SELECT referrer_id, created_at FROM referrals WHERE referred_id = $1`,
		referredID).Scan(&rel.ReferrerID, &rel.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate("get referrer", err)
	}
	return rel, nil
}

// Bind establishes the relationship once; a referred user already bound
// to someone keeps that binding.
func (s *ReferralStore) Bind(ctx context.Context, referrerID, referredID int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO referrals (referrer_id, referred_id)
		VALUES ($1, $2)
		ON CONFLICT (referred_id) DO NOTHING`,
		referrerID, referredID)
	if err != nil {
		return false, translate("bind referrer", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ClaimPurchaseReward reserves the right to credit a purchase exactly
// once. The insert-if-absent makes retries of the same purchase no-ops.
func (s *ReferralStore) ClaimPurchaseReward(ctx context.Context, purchaseID string, referrerID, referredID int64, amount decimal.Decimal) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO referral_rewards (purchase_id, referrer_id, referred_id, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (purchase_id) DO NOTHING`,
		purchaseID, referrerID, referredID, amount)
	if err != nil {
		return false, translate("claim purchase reward", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *ReferralStore) ClaimStartBonus(ctx context.Context, referrerID, referredID int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO referral_start_bonuses (referrer_id, referred_id)
		VALUES ($1, $2)
		ON CONFLICT (referrer_id, referred_id) DO NOTHING`,
		referrerID, referredID)
	if err != nil {
		return false, translate("claim start bonus", err)
	}
	return tag.RowsAffected() == 1, nil
}
