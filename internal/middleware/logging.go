package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Logging returns middleware that logs update processing time.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()

			updateType := "unknown"
			var userID int64

			switch {
			case update.Message != nil:
				updateType = "message"
				if update.Message.From != nil {
					userID = update.Message.From.ID
				}
			case update.CallbackQuery != nil:
				updateType = "callback_query"
				userID = update.CallbackQuery.From.ID
			case update.PreCheckoutQuery != nil:
				updateType = "pre_checkout_query"
				userID = update.PreCheckoutQuery.From.ID
			}

			next(ctx, b, update)

			slog.Debug("update processed",
				"type", updateType,
				"user_id", userID,
				"duration", time.Since(start),
			)
		}
	}
}
