package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"

	"github.com/kastov/vpnshop/internal/config"
	"github.com/kastov/vpnshop/internal/domain"
)

type userResolver interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Notifier delivers reward notifications to referrers and mirrors
// operational events to the log chat. Every send is fire-and-forget:
// a delivery failure is logged and swallowed.
type Notifier struct {
	bot   *bot.Bot
	cfg   *config.Config
	users userResolver
}

func NewNotifier(b *bot.Bot, cfg *config.Config, users userResolver) *Notifier {
	return &Notifier{bot: b, cfg: cfg, users: users}
}

func (n *Notifier) RewardCredited(referrerID, referredID int64, amount decimal.Decimal) {
	ctx, cancel := context.WithTimeout(context.Background(), config.NotifyTimeout)
	defer cancel()

	referrer, err := n.users.GetByID(ctx, referrerID)
	if err != nil {
		slog.Error("resolve referrer for notification", "referrer_id", referrerID, "error", err)
		return
	}

	text := fmt.Sprintf(
		"🎁 *Реферальный бонус!*\n\nВам начислено *%s RUB* за покупку приглашённого пользователя.",
		amount.StringFixed(2),
	)
	_, err = n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    referrer.TelegramID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		slog.Warn("failed to notify referrer", "referrer_id", referrerID, "error", err)
	}

	n.logEvent(ctx, fmt.Sprintf("🎁 *Referral reward*\n\n*Referrer:* `%d`\n*Referred:* `%d`\n*Amount:* %s RUB",
		referrerID, referredID, amount.StringFixed(2)))
}

// LogPromoCreated mirrors a promo creation to the log chat.
func (n *Notifier) LogPromoCreated(createdBy int64, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), config.NotifyTimeout)
	defer cancel()

	n.logEvent(ctx, fmt.Sprintf("🏷 *Promo created*\n\n*Code:* `%s`\n*By:* `%d`", code, createdBy))
}

func (n *Notifier) logEvent(ctx context.Context, message string) {
	if n.cfg.LogTelegramChatID == 0 {
		return
	}
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.cfg.LogTelegramChatID,
		Text:      Truncate(message),
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "error", err)
	}
}

// Truncate cuts a message down to the Telegram length limit.
func Truncate(message string) string {
	if len([]rune(message)) > config.MaxTelegramMessageLen {
		message = string([]rune(message)[:config.MaxTelegramMessageLen-20]) + "\n\n... (truncated)"
	}
	return message
}
