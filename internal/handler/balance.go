package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"

	"github.com/kastov/vpnshop/internal/domain"
	"github.com/kastov/vpnshop/internal/middleware"
)

func (h *Handler) handleBalance(ctx context.Context, b *bot.Bot, update *models.Update) {
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
		h.reply(ctx, chatID, "❌ Не удалось загрузить баланс.")
		return
	}

	h.reply(ctx, chatID, fmt.Sprintf(
		"💰 *Баланс*\n\n"+
			"Основной: *%s RUB*\n"+
			"Реферальный: *%s RUB*\n\n"+
			"/withdraw <сумма> — перевести реферальный баланс в основной",
		acc.MainBalance.StringFixed(2),
		acc.ReferralBalance.StringFixed(2),
	))
}

func (h *Handler) handleWithdraw(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		h.reply(ctx, chatID, "Используйте: /withdraw <сумма>")
		return
	}

	amount, err := decimal.NewFromString(parts[1])
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		h.reply(ctx, chatID, "❌ Некорректная сумма.")
		return
	}

	policy, err := h.settings.RewardPolicy(ctx)
	if err != nil {
		slog.Error("load reward policy", "error", err)
		h.reply(ctx, chatID, "❌ Ошибка, попробуйте позже.")
		return
	}

	if err := h.balances.Withdraw(ctx, user.ID, amount, policy); err != nil {
		switch {
		case errors.Is(err, domain.ErrBelowMinWithdrawal):
			h.reply(ctx, chatID, fmt.Sprintf("❌ Минимальная сумма вывода: %s RUB.", policy.MinWithdrawal.StringFixed(2)))
		case errors.Is(err, domain.ErrInsufficientBalance):
			h.reply(ctx, chatID, "❌ Недостаточно средств на реферальном балансе.")
		default:
			slog.Error("withdraw", "user_id", user.ID, "error", err)
			h.reply(ctx, chatID, "❌ Ошибка, попробуйте позже.")
		}
		return
	}

	h.reply(ctx, chatID, fmt.Sprintf("✅ Переведено *%s RUB* на основной баланс.", amount.StringFixed(2)))
}
