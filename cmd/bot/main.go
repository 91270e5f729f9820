package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"

	vpnshop "github.com/kastov/vpnshop"
	"github.com/kastov/vpnshop/internal/clock"
	"github.com/kastov/vpnshop/internal/config"
	"github.com/kastov/vpnshop/internal/handler"
	"github.com/kastov/vpnshop/internal/middleware"
	"github.com/kastov/vpnshop/internal/repository"
	"github.com/kastov/vpnshop/internal/repository/postgres"
	"github.com/kastov/vpnshop/internal/service"
	"github.com/kastov/vpnshop/internal/sweeper"
	"github.com/kastov/vpnshop/internal/telegram"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	migrationsFS, err := fs.Sub(vpnshop.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	clk := clock.NewRealClock()

	promoStore := postgres.NewPromoStore(pool)
	balanceStore := postgres.NewBalanceStore(pool)
	referralStore := postgres.NewReferralStore(pool)
	userStore := postgres.NewUserStore(pool)
	settingsStore := postgres.NewSettingsStore(pool)

	userService := service.NewUserService(userStore, referralStore, clk)
	registry := service.NewRegistry(promoStore, clk)
	ledger := service.NewLedger(promoStore)
	balanceService := service.NewBalanceService(balanceStore)
	settingsService := service.NewSettingsService(settingsStore)

	var h *handler.Handler

	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			middleware.UserLoader(userService, cfg),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			if update.PreCheckoutQuery != nil {
				h.HandlePreCheckout(ctx, b, update)
				return
			}
			if update.Message != nil && update.Message.SuccessfulPayment != nil {
				h.HandleSuccessfulPayment(ctx, b, update)
			}
		}),
	}
	if cfg.DropPendingUpdates {
		opts = append(opts, bot.WithInitialOffset(-1))
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	notifier := telegram.NewNotifier(b, cfg, userStore)
	rewardEngine := service.NewRewardEngine(referralStore, balanceStore, notifier)
	promoApp := service.NewPromoApplication(ledger, promoStore, rewardEngine)

	h = handler.New(handler.Deps{
		Bot:         b,
		Cfg:         cfg,
		Users:       userService,
		Registry:    registry,
		PromoApp:    promoApp,
		Balances:    balanceService,
		Settings:    settingsService,
		Notifier:    notifier,
		Clock:       clk,
		BotUsername: me.Username,
	})
	h.Register()

	sweep := sweeper.New(ledger, clk,
		time.Duration(cfg.ReservationTTLMinutes)*time.Minute,
		time.Duration(cfg.SweepIntervalMinutes)*time.Minute,
	)
	if err := sweep.Start(ctx); err != nil {
		slog.Error("failed to start reservation sweeper", "error", err)
		os.Exit(1)
	}
	defer sweep.Stop()

	slog.Info("starting bot", "username", me.Username, "id", me.ID)
	b.Start(ctx)

	slog.Info("bot stopped gracefully")
}
