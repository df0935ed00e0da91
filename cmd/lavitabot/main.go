// Package main запускает Telegram-бота доставки воды и его HTTP-сервер.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/lavita-bot/internal/config"
	"github.com/mmeshcher/lavita-bot/internal/conversation"
	"github.com/mmeshcher/lavita-bot/internal/geocode"
	"github.com/mmeshcher/lavita-bot/internal/handler"
	"github.com/mmeshcher/lavita-bot/internal/i18n"
	"github.com/mmeshcher/lavita-bot/internal/middleware"
	"github.com/mmeshcher/lavita-bot/internal/repository"
	"github.com/mmeshcher/lavita-bot/internal/service"
	"github.com/mmeshcher/lavita-bot/internal/session"
	"github.com/mmeshcher/lavita-bot/internal/telegram"
)

func openRepository(cfg *config.Config) (service.Repository, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		dsn := cfg.DatabaseURI
		if dsn == "" {
			dsn = "file:lavita.db?_busy_timeout=5000"
		}
		return repository.NewSQLiteRepository(dsn)
	default:
		return repository.NewPostgresRepository(cfg.DatabaseURI)
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		sugar.Warnw("cannot load .env", "error", err.Error())
	}

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := openRepository(cfg)
	if err != nil {
		sugar.Fatalw("database initialization error", "driver", cfg.DatabaseDriver, "error", err.Error())
	}

	catalog, err := i18n.New()
	if err != nil {
		sugar.Fatalw("locale catalog error", "error", err.Error())
	}

	resolver := geocode.NewClient(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocoderRPS)
	machine := conversation.NewMachine(cfg.UnitPrice, cfg.BalanceGating)

	svc := service.NewService(repo, resolver, session.NewStore(), machine, cfg.ResolveTimeout, logger)
	defer svc.Close()

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		sugar.Fatalw("telegram bot initialization error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot := telegram.NewBot(ctx, api, svc, catalog, cfg.WelcomePhotoURL, logger)

	var webhook http.Handler
	if cfg.WebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.WebhookURL)
		if err != nil {
			sugar.Fatalw("webhook config error", "error", err.Error())
		}
		if _, err := api.Request(wh); err != nil {
			sugar.Fatalw("set webhook error", "error", err.Error())
		}
		webhook = bot
	} else if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		sugar.Warnw("delete webhook error", "error", err.Error())
	}

	h := handler.NewHandler(svc, logger, middleware.NewOperatorAuth(cfg.OperatorSecret), webhook)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	if err := svc.StartJanitor(ctx, cfg.SessionTTL); err != nil {
		sugar.Fatalw("session janitor error", "error", err.Error())
	}

	// Приём обновлений через long polling, если вебхук не настроен
	if webhook == nil {
		g.Go(func() error {
			u := tgbotapi.NewUpdate(0)
			u.Timeout = 60
			updates := api.GetUpdatesChan(u)

			go func() {
				<-ctx.Done()
				api.StopReceivingUpdates()
			}()

			sugar.Infow("polling telegram updates", "bot", api.Self.UserName)
			bot.Run(ctx, updates)
			return nil
		})
	}

	g.Go(func() error {
		sugar.Infow("starting lavita bot server", "addr", cfg.RunAddress, "webhook", webhook != nil)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		bot.Wait()
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
