package domain

import "time"

type User struct {
	ID           int64
	TelegramID   int64
	FirstName    string
	Username     string
	IsAdmin      bool
	ReferralCode string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
