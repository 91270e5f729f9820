package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kastov/vpnshop/internal/config"
	"github.com/kastov/vpnshop/internal/domain"
	"github.com/kastov/vpnshop/internal/middleware"
	tg "github.com/kastov/vpnshop/internal/telegram"
)

func (h *Handler) handleBuy(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	// Optional promo code: /buy SALE10
	promoCode := "-"
	parts := strings.Fields(update.Message.Text)
	if len(parts) > 1 {
		promoCode = domain.NormalizeCode(parts[1])
	}

	var rows [][]models.InlineKeyboardButton
	for _, months := range config.PlanMonths {
		label := fmt.Sprintf("%d мес. — %d RUB", months, config.PlanPricesRUB[months])
		data := fmt.Sprintf("buy_plan_%d_%s", months, promoCode)
		rows = append(rows, tg.ButtonRow(tg.InlineButton(label, data)))
	}

	text := "📦 *Выберите тариф:*"
	if promoCode != "-" {
		text += fmt.Sprintf("\n\n🏷 Промокод: `%s`", promoCode)
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdown,
		ReplyMarkup: tg.InlineKeyboard(rows...),
	})
}

func (h *Handler) handleBuyPlan(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})

	user := middleware.GetUser(ctx)
	if user == nil || update.CallbackQuery.Message.Message == nil {
		return
	}
	chatID := update.CallbackQuery.Message.Message.Chat.ID

	rest := strings.TrimPrefix(update.CallbackQuery.Data, "buy_plan_")
	monthsStr, promoCode, ok := strings.Cut(rest, "_")
	if !ok {
		return
	}
	months, err := strconv.Atoi(monthsStr)
	if err != nil {
		return
	}
	priceRUB, ok := config.PlanPricesRUB[months]
	if !ok {
		return
	}
	price := decimal.NewFromInt(priceRUB)

	token := uuid.Nil
	finalPrice := price
	if promoCode != "-" {
		res, discounted, err := h.promoApp.ValidateAndReserve(ctx, promoCode, user.ID, price, h.clock.Now())
		if err != nil {
			h.reply(ctx, chatID, promoErrorText(err))
			return
		}
		token = res.Token
		finalPrice = discounted
	}

	// A fully discounted purchase has nothing to pay; invoicing it would
	// still charge the 1-star minimum.
	if !finalPrice.IsPositive() {
		h.finalizeFreePurchase(ctx, chatID, user.ID, months, token)
		return
	}

	payload := fmt.Sprintf("sub:%d:%s", months, token)

	_, err = b.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:      chatID,
		Title:       fmt.Sprintf("VPN на %d мес.", months),
		Description: fmt.Sprintf("Подписка на %d мес. — %s RUB", months, finalPrice.StringFixed(2)),
		Payload:     payload,
		Currency:    "XTR",
		Prices: []models.LabeledPrice{
			{Label: fmt.Sprintf("VPN %d мес.", months), Amount: starsAmount(finalPrice)},
		},
	})
	if err != nil {
		slog.Error("send invoice", "user_id", user.ID, "error", err)
		// Invoice never reached the user; hand the quota back.
		if token != uuid.Nil {
			if relErr := h.promoApp.OnPaymentFailure(ctx, token); relErr != nil {
				slog.Error("release reservation", "token", token, "error", relErr)
			}
		}
		h.reply(ctx, chatID, "❌ Не удалось выставить счёт, попробуйте позже.")
	}
}

// finalizeFreePurchase completes a purchase whose discounted price is
// zero without going through the payment provider.
func (h *Handler) finalizeFreePurchase(ctx context.Context, chatID, userID int64, months int, token uuid.UUID) {
	policy, err := h.settings.RewardPolicy(ctx)
	if err != nil {
		slog.Error("load reward policy", "error", err)
		policy = &domain.RewardPolicy{RewardType: domain.RewardPercentPurchase}
	}

	purchaseID := fmt.Sprintf("free_%s", uuid.New())
	if _, err := h.promoApp.OnPaymentSuccess(ctx, token, purchaseID, userID, decimal.Zero, policy); err != nil {
		slog.Error("finalize free purchase", "user_id", userID, "error", err)
		h.reply(ctx, chatID, "❌ Ошибка, попробуйте позже.")
		return
	}

	slog.Info("free purchase finalized", "user_id", userID, "months", months, "purchase_id", purchaseID)
	h.reply(ctx, chatID, fmt.Sprintf(
		"🎉 *Промокод покрыл всю стоимость!*\n\nПодписка на %d мес. будет выдана в течение минуты.", months))
}

// starsAmount converts a price in rubles to Telegram Stars, at least one.
func starsAmount(price decimal.Decimal) int {
	stars := int(price.InexactFloat64() * config.RUBToXTRRate)
	if stars < 1 {
		stars = 1
	}
	return stars
}

// HandlePreCheckout confirms pre-checkout queries for subscription
// invoices.
func (h *Handler) HandlePreCheckout(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.PreCheckoutQuery == nil {
		return
	}
	b.AnswerPreCheckoutQuery(ctx, &bot.AnswerPreCheckoutQueryParams{
		PreCheckoutQueryID: update.PreCheckoutQuery.ID,
		OK:                 true,
	})
}

// HandleSuccessfulPayment finalizes a paid invoice: commits the promo
// reservation, if any, and triggers the referral reward. Telegram may
// redeliver the update; both steps are idempotent.
func (h *Handler) HandleSuccessfulPayment(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.SuccessfulPayment == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID
	payment := update.Message.SuccessfulPayment

	parts := strings.Split(payment.InvoicePayload, ":")
	if len(parts) != 3 || parts[0] != "sub" {
		return
	}
	months, err := strconv.Atoi(parts[1])
	if err != nil {
		return
	}
	token, err := uuid.Parse(parts[2])
	if err != nil {
		token = uuid.Nil
	}

	paidRUB := decimal.NewFromInt(int64(payment.TotalAmount)).Div(decimal.NewFromFloat(config.RUBToXTRRate)).Round(2)

	policy, err := h.settings.RewardPolicy(ctx)
	if err != nil {
		slog.Error("load reward policy", "error", err)
		policy = &domain.RewardPolicy{RewardType: domain.RewardPercentPurchase}
	}

	outcome, err := h.promoApp.OnPaymentSuccess(ctx, token, payment.TelegramPaymentChargeID, user.ID, paidRUB, policy)
	if err != nil {
		slog.Error("finalize purchase",
			"user_id", user.ID,
			"charge_id", payment.TelegramPaymentChargeID,
			"error", err,
		)
	} else {
		slog.Info("purchase finalized",
			"user_id", user.ID,
			"months", months,
			"charge_id", payment.TelegramPaymentChargeID,
			"reward_status", outcome.Status,
		)
	}

	h.reply(ctx, chatID, fmt.Sprintf(
		"🎉 *Оплата получена!*\n\nПодписка на %d мес. будет выдана в течение минуты.", months))
}
