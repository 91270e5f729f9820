package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"

	"github.com/kastov/vpnshop/internal/config"
	"github.com/kastov/vpnshop/internal/domain"
	"github.com/kastov/vpnshop/internal/middleware"
	"github.com/kastov/vpnshop/internal/service"
	tg "github.com/kastov/vpnshop/internal/telegram"
)

const addPromoUsage = "Используйте: /addpromo <код> <percent|amount> <значение> [лимит] [лимит-на-юзера] [дней-действия]"

func (h *Handler) handleAddPromo(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, chatID := h.adminGate(ctx, update)
	if user == nil {
		return
	}

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 4 {
		h.reply(ctx, chatID, addPromoUsage)
		return
	}

	value, err := decimal.NewFromString(parts[3])
	if err != nil {
		h.reply(ctx, chatID, addPromoUsage)
		return
	}

	var discount domain.Discount
	switch parts[2] {
	case "percent":
		discount, err = domain.NewPercentDiscount(value)
	case "amount":
		discount, err = domain.NewAmountDiscount(value)
	default:
		h.reply(ctx, chatID, addPromoUsage)
		return
	}
	if err != nil {
		h.reply(ctx, chatID, "❌ Некорректное значение скидки.")
		return
	}

	params := service.CreatePromoParams{
		Code:      parts[1],
		Discount:  discount,
		CreatedBy: user.ID,
	}
	if len(parts) > 4 {
		if n, err := strconv.Atoi(parts[4]); err == nil && n > 0 {
			params.UsageLimitTotal = &n
		}
	}
	if len(parts) > 5 {
		if n, err := strconv.Atoi(parts[5]); err == nil && n > 0 {
			params.UsageLimitPerUser = &n
		}
	}
	if len(parts) > 6 {
		if days, err := strconv.Atoi(parts[6]); err == nil && days > 0 {
			from := h.clock.Now()
			until := from.Add(time.Duration(days) * 24 * time.Hour)
			params.ValidFrom = &from
			params.ValidUntil = &until
		}
	}

	promo, err := h.registry.Create(ctx, params)
	if err != nil {
		h.reply(ctx, chatID, promoErrorText(err))
		return
	}

	h.notifier.LogPromoCreated(user.ID, promo.Code)
	h.reply(ctx, chatID, fmt.Sprintf("✅ Промокод `%s` создан.", promo.Code))
}

func (h *Handler) handlePromoList(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, chatID := h.adminGate(ctx, update)
	if user == nil {
		return
	}
	h.sendPromoPage(ctx, chatID, 0)
}

func (h *Handler) handlePromoListPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})

	user := middleware.GetUser(ctx)
	if user == nil || !user.IsAdmin {
		return
	}
	if update.CallbackQuery.Message.Message == nil {
		return
	}

	page, err := strconv.Atoi(strings.TrimPrefix(update.CallbackQuery.Data, "promos_"))
	if err != nil {
		return
	}
	h.sendPromoPage(ctx, update.CallbackQuery.Message.Message.Chat.ID, page)
}

func (h *Handler) sendPromoPage(ctx context.Context, chatID int64, page int) {
	promos, err := h.registry.List(ctx, true)
	if err != nil {
		slog.Error("list promos", "error", err)
		h.reply(ctx, chatID, "❌ Не удалось загрузить промокоды.")
		return
	}
	if len(promos) == 0 {
		h.reply(ctx, chatID, "Промокодов пока нет.")
		return
	}

	totalPages := (len(promos) + config.PromosPerPage - 1) / config.PromosPerPage
	if page < 0 || page >= totalPages {
		page = 0
	}
	start := page * config.PromosPerPage
	end := start + config.PromosPerPage
	if end > len(promos) {
		end = len(promos)
	}

	var sb strings.Builder
	sb.WriteString("🏷 *Промокоды*\n\n")
	for _, p := range promos[start:end] {
		sb.WriteString(promoSummary(&p))
		sb.WriteString("\n")
	}

	var markup *models.InlineKeyboardMarkup
	if totalPages > 1 {
		markup = tg.InlineKeyboard(tg.PaginationRow(page, totalPages, "promos"))
	}

	h.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        sb.String(),
		ParseMode:   models.ParseModeMarkdown,
		ReplyMarkup: markup,
	})
}

func (h *Handler) handlePromoInfo(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, chatID := h.adminGate(ctx, update)
	if user == nil {
		return
	}

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		h.reply(ctx, chatID, "Используйте: /promoinfo <код>")
		return
	}

	promo, err := h.registry.Get(ctx, parts[1])
	if err != nil {
		h.reply(ctx, chatID, promoErrorText(err))
		return
	}
	h.reply(ctx, chatID, promoSummary(promo))
}

func (h *Handler) handleTogglePromo(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, chatID := h.adminGate(ctx, update)
	if user == nil {
		return
	}

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 3 || (parts[2] != "on" && parts[2] != "off") {
		h.reply(ctx, chatID, "Используйте: /togglepromo <код> <on|off>")
		return
	}

	changed, err := h.registry.SetActive(ctx, parts[1], parts[2] == "on")
	if err != nil {
		h.reply(ctx, chatID, promoErrorText(err))
		return
	}
	if !changed {
		h.reply(ctx, chatID, "ℹ️ Промокод уже в этом состоянии.")
		return
	}
	h.reply(ctx, chatID, "✅ Готово.")
}

func (h *Handler) handleSetReward(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, chatID := h.adminGate(ctx, update)
	if user == nil {
		return
	}

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 3 {
		h.reply(ctx, chatID, "Используйте: /setreward <ключ> <значение>")
		return
	}

	if err := h.settings.UpdateSetting(ctx, parts[1], parts[2]); err != nil {
		h.reply(ctx, chatID, fmt.Sprintf("❌ %s", err.Error()))
		return
	}
	h.reply(ctx, chatID, "✅ Настройка обновлена.")
}

func (h *Handler) adminGate(ctx context.Context, update *models.Update) (*domain.User, int64) {
	if update.Message == nil {
		return nil, 0
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return nil, 0
	}
	chatID := update.Message.Chat.ID
	if !user.IsAdmin {
		h.reply(ctx, chatID, "⛔ Команда доступна только администраторам.")
		return nil, 0
	}
	return user, chatID
}

func promoSummary(p *domain.PromoCode) string {
	status := "🟢"
	if !p.IsActive {
		status = "🔴"
	}

	var discount string
	if p.Discount.Kind == domain.DiscountPercent {
		discount = fmt.Sprintf("-%s%%", p.Discount.Value.String())
	} else {
		discount = fmt.Sprintf("-%s RUB", p.Discount.Value.StringFixed(2))
	}

	limit := "∞"
	if p.UsageLimitTotal != nil {
		limit = strconv.Itoa(*p.UsageLimitTotal)
	}

	window := ""
	if p.ValidUntil != nil {
		window = fmt.Sprintf(", до %s", p.ValidUntil.Format("02.01.2006"))
	}

	return fmt.Sprintf("%s `%s` %s — %d/%s%s", status, p.Code, discount, p.UsedTotal, limit, window)
}

func promoErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrCodeNotFound):
		return "❌ Промокод не найден."
	case errors.Is(err, domain.ErrDuplicateCode):
		return "❌ Такой промокод уже существует."
	case errors.Is(err, domain.ErrInvalidCode):
		return "❌ Код: 3–32 символа, латиница, цифры, `_` и `-`."
	case errors.Is(err, domain.ErrInvalidDiscountValue):
		return "❌ Некорректное значение скидки."
	case errors.Is(err, domain.ErrInvalidValidityWindow):
		return "❌ Окно действия задано неверно."
	case errors.Is(err, domain.ErrCodeInactive):
		return "❌ Промокод отключён."
	case errors.Is(err, domain.ErrCodeNotYetValid):
		return "❌ Промокод ещё не действует."
	case errors.Is(err, domain.ErrCodeExpired):
		return "❌ Срок действия промокода истёк."
	case errors.Is(err, domain.ErrGlobalLimitExceeded):
		return "❌ Лимит активаций промокода исчерпан."
	case errors.Is(err, domain.ErrPerUserLimitExceeded):
		return "❌ Вы уже использовали этот промокод."
	default:
		slog.Error("promo operation", "error", err)
		return "❌ Ошибка, попробуйте позже."
	}
}
