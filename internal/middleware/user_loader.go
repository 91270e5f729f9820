package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kastov/vpnshop/internal/domain"
	"github.com/kastov/vpnshop/internal/service"
)

type ctxKey string

const userKey ctxKey = "user"

// GetUser extracts the loaded user from context.
func GetUser(ctx context.Context) *domain.User {
	u, ok := ctx.Value(userKey).(*domain.User)
	if !ok {
		return nil
	}
	return u
}

// UserLoader registers the sender on first contact and puts the user
// into the handler context.
func UserLoader(users *service.UserService, cfg interface{ IsAdmin(int64) bool }) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			var from *models.User
			switch {
			case update.Message != nil:
				from = update.Message.From
			case update.CallbackQuery != nil:
				from = &update.CallbackQuery.From
			case update.PreCheckoutQuery != nil:
				from = update.PreCheckoutQuery.From
			}

			if from == nil {
				next(ctx, b, update)
				return
			}

			user, err := users.GetOrCreate(ctx, from.ID, from.FirstName, from.Username)
			if err != nil {
				slog.Error("load user", "telegram_id", from.ID, "error", err)
				next(ctx, b, update)
				return
			}
			user.IsAdmin = user.IsAdmin || cfg.IsAdmin(from.ID)

			next(context.WithValue(ctx, userKey, user), b, update)
		}
	}
}
