package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Admin
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	// Bot behavior
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Telegram logging
	LogTelegramChatID int64 `env:"LOG_TELEGRAM_CHAT_ID"`

	// Stale reservation sweep
	ReservationTTLMinutes int `env:"RESERVATION_TTL_MINUTES" envDefault:"30"`
	SweepIntervalMinutes  int `env:"SWEEP_INTERVAL_MINUTES" envDefault:"5"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
