package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kastov/vpnshop/internal/middleware"
)

func (h *Handler) handleReferral(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	acc, err := h.balances.Account(ctx, user.ID)
	if err != nil {
		slog.Error("get balance", "user_id", user.ID, "error", err)
		h.reply(ctx, chatID, "❌ Ошибка, попробуйте позже.")
		return
	}

	refLink := fmt.Sprintf("https://t.me/%s?start=r_%s", h.botUsername, user.ReferralCode)

	h.reply(ctx, chatID, fmt.Sprintf(
		"👥 *Реферальная программа*\n\n"+
			"Ваша ссылка:\n`%s`\n\n"+
			"💰 Реферальный баланс: *%s RUB*\n\n"+
			"Приглашайте друзей и получайте бонус с их покупок!",
		refLink,
		acc.ReferralBalance.StringFixed(2),
	))
}
