package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/luchgpt/server/internal/app"
	"codeberg.org/luchgpt/server/internal/bot"
	"codeberg.org/luchgpt/server/internal/config"
	"codeberg.org/luchgpt/server/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// long polling timeout in seconds
const pollTimeout = 60

func main() {
	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	logger.SetDefault(logger.New(cfg.Environment, "luchgpt-bot"))

	if cfg.TelegramBotToken == "" {
		logger.Fatal("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize application", "error", err)
	}
	defer a.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.FatalErr(err, "failed to connect to telegram")
	}

	logger.Info("telegram bot authorized", "username", api.Self.UserName)

	go a.CheckModels(ctx)

	update := tgbotapi.NewUpdate(0)
	update.Timeout = pollTimeout

	updates := api.GetUpdatesChan(update)

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	bot.New(api, a.Coordinator, a.Users).Run(ctx, updates)

	logger.Info("bot stopped")
}
