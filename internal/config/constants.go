package config

import "time"

const (
	// Bounded retry for transient storage conflicts
	ConflictRetries = 3

	// Referral code generation
	ReferralCodeLength   = 6
	ReferralCodeAttempts = 10

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Promo listing pagination
	PromosPerPage = 5

	// Notifier send timeout
	NotifyTimeout = 10 * time.Second

	// Telegram Stars conversion rate (stars per RUB)
	RUBToXTRRate = 0.55
)

// PlanMonths lists the subscription durations offered in /buy.
var PlanMonths = []int{1, 3, 6}

// PlanPricesRUB maps subscription duration to its price.
var PlanPricesRUB = map[int]int64{
	1: 150,
	3: 400,
	6: 700,
}
