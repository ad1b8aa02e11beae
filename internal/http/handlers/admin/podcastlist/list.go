// Package podcastlist реализует HTTP-обработчик получения каталога подкастов.
package podcastlist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/response"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/sl"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/models"
)

// Handler обрабатывает запросы на получение каталога.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения каталога.
type Service interface {
	ListPodcasts(ctx context.Context) ([]*models.Podcast, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP обрабатывает HTTP-запрос на получение всего каталога.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.podcastlist"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	podcasts, err := h.service.ListPodcasts(r.Context())
	if err != nil {
		log.Error("failed to list podcasts", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list podcasts"))
		return
	}

	log.Info("success to list podcasts", slog.Int("count", len(podcasts)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"podcasts": podcasts,
	}))
}
