package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralRelationship links a referred user to the user who invited
// them. At most one referrer per referred user, bound at registration.
type ReferralRelationship struct {
	ReferrerID int64
	ReferredID int64
	CreatedAt  time.Time
}

type RewardType string

const (
	RewardPercentPurchase    RewardType = "percent_purchase"
	RewardFixedPurchase      RewardType = "fixed_purchase"
	RewardFixedStartReferrer RewardType = "fixed_start_referrer"
)

// RewardPolicy is the externally configured referral reward scheme. The
// core reads it; only operators write the underlying settings.
type RewardPolicy struct {
	RewardType             RewardType
	Percentage             decimal.Decimal
	FixedAmount            decimal.Decimal
	StartBonus             decimal.Decimal
	EnableFixedStartBonus  bool
	MinWithdrawal          decimal.Decimal
	NewUserDiscountPercent decimal.Decimal
}

type RewardStatus string

const (
	RewardCredited        RewardStatus = "credited"
	RewardNoReferrer      RewardStatus = "no_referrer"
	RewardAlreadyRewarded RewardStatus = "already_rewarded"
	RewardNotEligible     RewardStatus = "not_eligible"
)

type RewardOutcome struct {
	Status     RewardStatus
	ReferrerID int64
	Amount     decimal.Decimal
}
