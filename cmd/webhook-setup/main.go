// Регистрирует webhook-адрес бота в Telegram Bot API. Запускается один раз
// при развёртывании.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/config"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/telegram"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	url := fmt.Sprintf("%s/webhook/%s",
		strings.TrimSuffix(cfg.Telegram.WebhookURL, "/"), cfg.Telegram.WebhookSecret)

	client := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.APITimeout)
	if err := client.SetWebhook(url, cfg.Telegram.WebhookSecret); err != nil {
		logger.Error("failed to set webhook", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("webhook registered", slog.String("url", url))
}
