// Package podcastcreate реализует HTTP-обработчик добавления подкаста в каталог.
package podcastcreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/response"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/sl"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/models"
)

// Request — структура входных данных для создания подкаста.
type Request struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"required"`
	AudioURL    string `json:"audio_url" validate:"required,url"`
	IsPremium   bool   `json:"is_premium"`
	Duration    string `json:"duration" validate:"required"`
}

// Handler обрабатывает запросы на создание подкаста.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики создания подкаста.
type Service interface {
	CreatePodcast(ctx context.Context, podcast models.Podcast) (int64, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP обрабатывает HTTP-запрос на создание подкаста.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.podcastcreate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	id, err := h.service.CreatePodcast(r.Context(), models.Podcast{
		Title:       req.Title,
		Description: req.Description,
		AudioURL:    req.AudioURL,
		IsPremium:   req.IsPremium,
		Duration:    req.Duration,
	})
	if err != nil {
		log.Error("failed to create podcast", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create podcast"))
		return
	}

	log.Info("podcast created", slog.Int64("id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id": id,
	}))
}
