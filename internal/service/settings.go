package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/kastov/vpnshop/internal/domain"
)

// SettingsService loads the referral reward policy from the key-value
// settings table. The policy is handed to callers as a plain value; the
// core never mutates it.
type SettingsService struct {
	settings SettingsStore
}

func NewSettingsService(settings SettingsStore) *SettingsService {
	return &SettingsService{settings: settings}
}

func (s *SettingsService) RewardPolicy(ctx context.Context) (*domain.RewardPolicy, error) {
	values, err := s.settings.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	policy := &domain.RewardPolicy{
		RewardType:             domain.RewardPercentPurchase,
		Percentage:             decimalSetting(values, "referral_percentage", decimal.NewFromInt(10)),
		FixedAmount:            decimalSetting(values, "referral_fixed_amount", decimal.Zero),
		StartBonus:             decimalSetting(values, "referral_start_bonus", decimal.Zero),
		MinWithdrawal:          decimalSetting(values, "min_withdrawal", decimal.Zero),
		NewUserDiscountPercent: decimalSetting(values, "new_user_discount_percent", decimal.Zero),
	}

	switch domain.RewardType(values["reward_type"]) {
	case domain.RewardFixedPurchase:
		policy.RewardType = domain.RewardFixedPurchase
	case domain.RewardFixedStartReferrer:
		policy.RewardType = domain.RewardFixedStartReferrer
	}

	if v, err := strconv.ParseBool(values["enable_fixed_referral_bonus"]); err == nil {
		policy.EnableFixedStartBonus = v
	}

	return policy, nil
}

// UpdateSetting validates and stores a single policy key.
func (s *SettingsService) UpdateSetting(ctx context.Context, key, value string) error {
	switch key {
	case "reward_type":
		switch domain.RewardType(value) {
		case domain.RewardPercentPurchase, domain.RewardFixedPurchase, domain.RewardFixedStartReferrer:
		default:
			return fmt.Errorf("unknown reward type %q", value)
		}
	case "referral_percentage", "referral_fixed_amount", "referral_start_bonus",
		"min_withdrawal", "new_user_discount_percent":
		d, err := decimal.NewFromString(value)
		if err != nil || d.IsNegative() {
			return domain.ErrInvalidAmount
		}
		// The original bot mirrors a positive start bonus into the
		// enable flag; kept for operator visibility, never read by
		// the engine.
		if key == "referral_start_bonus" {
			flag := "false"
			if d.IsPositive() {
				flag = "true"
			}
			if err := s.settings.Set(ctx, "enable_fixed_referral_bonus", flag); err != nil {
				return fmt.Errorf("update setting: %w", err)
			}
		}
	case "enable_fixed_referral_bonus":
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}

	if err := s.settings.Set(ctx, key, value); err != nil {
		return fmt.Errorf("update setting: %w", err)
	}
	return nil
}

func decimalSetting(values map[string]string, key string, fallback decimal.Decimal) decimal.Decimal {
	raw, ok := values[key]
	if !ok {
		return fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fallback
	}
	return d
}
