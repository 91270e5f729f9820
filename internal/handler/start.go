package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kastov/vpnshop/internal/middleware"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	chatID := update.Message.Chat.ID

	// Deep link: /start r_<referral code>
	parts := strings.Fields(update.Message.Text)
	if len(parts) == 2 && strings.HasPrefix(parts[1], "r_") {
		code := strings.TrimPrefix(parts[1], "r_")
		bound, err := h.users.BindReferrer(ctx, user.ID, code)
		if err != nil {
			slog.Error("bind referrer", "user_id", user.ID, "error", err)
		} else if bound {
			h.reply(ctx, chatID, "🤝 Вы пришли по приглашению — добро пожаловать!")
		}
	}

	h.reply(ctx, chatID, fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Здесь можно купить доступ к VPN.\n\n"+
			"/buy — купить подписку\n"+
			"/balance — баланс\n"+
			"/referral — реферальная программа",
		user.FirstName,
	))
}
