package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kastov/vpnshop/internal/clock"
	"github.com/kastov/vpnshop/internal/config"
	"github.com/kastov/vpnshop/internal/service"
	"github.com/kastov/vpnshop/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot         *bot.Bot
	cfg         *config.Config
	users       *service.UserService
	registry    *service.Registry
	promoApp    *service.PromoApplication
	balances    *service.BalanceService
	settings    *service.SettingsService
	notifier    *telegram.Notifier
	clock       clock.Clock
	botUsername string
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot         *bot.Bot
	Cfg         *config.Config
	Users       *service.UserService
	Registry    *service.Registry
	PromoApp    *service.PromoApplication
	Balances    *service.BalanceService
	Settings    *service.SettingsService
	Notifier    *telegram.Notifier
	Clock       clock.Clock
	BotUsername string
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:         deps.Bot,
		cfg:         deps.Cfg,
		users:       deps.Users,
		registry:    deps.Registry,
		promoApp:    deps.PromoApp,
		balances:    deps.Balances,
		settings:    deps.Settings,
		notifier:    deps.Notifier,
		clock:       deps.Clock,
		botUsername: deps.BotUsername,
	}
}

// Register wires all command and callback handlers into the bot.
func (h *Handler) Register() {
	b := h.bot

	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/buy", bot.MatchTypePrefix, h.handleBuy)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/balance", bot.MatchTypeExact, h.handleBalance)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/referral", bot.MatchTypeExact, h.handleReferral)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/withdraw", bot.MatchTypePrefix, h.handleWithdraw)

	// Operator commands
	b.RegisterHandler(bot.HandlerTypeMessageText, "/addpromo", bot.MatchTypePrefix, h.handleAddPromo)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/promos", bot.MatchTypeExact, h.handlePromoList)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/promoinfo", bot.MatchTypePrefix, h.handlePromoInfo)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/togglepromo", bot.MatchTypePrefix, h.handleTogglePromo)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/setreward", bot.MatchTypePrefix, h.handleSetReward)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "promos_", bot.MatchTypePrefix, h.handlePromoListPage)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "buy_plan_", bot.MatchTypePrefix, h.handleBuyPlan)
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	h.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	})
}
