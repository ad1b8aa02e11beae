// Package bot предоставляет маршруты webhook-сервиса.
package bot

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/handlers/admin/broadcast"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/handlers/admin/grant"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/handlers/admin/login"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/handlers/admin/podcastcreate"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/handlers/admin/podcastlist"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/handlers/admin/podcastremove"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/handlers/admin/podcastupdate"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/handlers/admin/stats"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/handlers/health"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/handlers/telegramwebhook"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/middlewarectx"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/jwt"
	adminservice "github.com/magabrotheeeer/sleepy-podcast-bot/internal/services/admin"
	botservice "github.com/magabrotheeeer/sleepy-podcast-bot/internal/services/bot"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/storage"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *storage.Storage,
	bot *botservice.BotService, admin *adminservice.Service,
	jwtMaker jwt.Maker, webhookSecret string) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	// Webhook endpoint (секрет в пути вместо аутентификации)
	r.Post("/webhook/{secret}", telegramwebhook.New(logger, bot, webhookSecret).ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/admin/login", login.New(logger, admin).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/admin/podcasts", podcastcreate.New(logger, admin).ServeHTTP)
			r.Get("/admin/podcasts", podcastlist.New(logger, admin).ServeHTTP)
			r.Put("/admin/podcasts/{id}", podcastupdate.New(logger, admin).ServeHTTP)
			r.Delete("/admin/podcasts/{id}", podcastremove.New(logger, admin).ServeHTTP)
			r.Get("/admin/stats", stats.New(logger, admin).ServeHTTP)
			r.Post("/admin/grant", grant.New(logger, admin).ServeHTTP)
			r.Post("/admin/broadcast", broadcast.New(logger, admin).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
}
