// Package sender собирает воркер доставки: потребителя очереди исходящих
// отправок в Telegram.
package sender

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/config"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/delivery"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/telegram"
)

// App агрегирует зависимости воркера доставки.
type App struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	worker *delivery.Worker
	logger *slog.Logger
}

// New подключается к брокеру и собирает воркера.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitConnection, 5, 3*time.Second)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, []rabbitmq.QueueConfig{
		{QueueName: delivery.QueueDeliveries, RoutingKey: delivery.RoutingKeyDelivery},
	})
	if err != nil {
		conn.Close()
		return nil, err
	}

	tgClient := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.APITimeout)
	worker := delivery.NewWorker(tgClient, cfg.Telegram.SendRate, cfg.Telegram.SendBurst, logger)

	return &App{
		conn:   conn,
		ch:     ch,
		worker: worker,
		logger: logger,
	}, nil
}

// Run запускает потребителя и ждёт отмены контекста.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumeMessages(ctx, a.ch, delivery.QueueDeliveries, a.worker.Handle)
	if err != nil {
		a.logger.Error("failed to start deliveries consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("delivery sender shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	return nil
}
