// Package bot собирает webhook-сервис бота: хранилище, кэш, очередь
// доставки, HTTP-сервер и админ-панель.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/cache"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/config"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/delivery"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/giftsession"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/jwt"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/migrations"
	adminservice "github.com/magabrotheeeer/sleepy-podcast-bot/internal/services/admin"
	botservice "github.com/magabrotheeeer/sleepy-podcast-bot/internal/services/bot"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/storage"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/telegram"
)

// App агрегирует зависимости webhook-сервиса.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New инициализирует все зависимости и собирает HTTP-сервер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

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

	queue := delivery.NewQueue(ch)
	tgClient := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.APITimeout)
	gifts := giftsession.NewRegistry(cacheRedis.Db)

	bot := botservice.NewBotService(db, db, cacheRedis, db, gifts, queue, tgClient,
		cfg.Telegram.PremiumPriceStars, logger)

	jwtMaker := jwt.NewJWTMaker(cfg.Admin.JWTSecretKey, cfg.Admin.TokenTTL)
	admin := adminservice.New(db, db, cacheRedis, db, bot, queue, jwtMaker,
		cfg.Admin.Username, cfg.Admin.PasswordHash, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db, bot, admin, jwtMaker, cfg.Telegram.WebhookSecret)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if cerr := a.ch.Close(); cerr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", cerr))
		}
		if cerr := a.conn.Close(); cerr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", cerr))
		}
		a.db.DB.Close()
		return err
	}
}
