// Package broadcast реализует HTTP-обработчик рассылки объявления всем
// пользователям бота.
package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/middlewarectx"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/response"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/sl"
)

// Request — структура входных данных для рассылки.
type Request struct {
	Text string `json:"text" validate:"required,min=1"`
}

// Handler обрабатывает запросы на рассылку.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики рассылки.
type Service interface {
	Broadcast(ctx context.Context, text string) (int, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP обрабатывает HTTP-запрос на рассылку объявления.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.broadcast"

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

	enqueued, err := h.service.Broadcast(r.Context(), req.Text)
	if err != nil {
		log.Error("failed to enqueue broadcast", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not enqueue broadcast"))
		return
	}

	admin, _ := r.Context().Value(middlewarectx.User).(string)
	log.Info("broadcast enqueued",
		slog.String("admin", admin),
		slog.Int("recipients", enqueued))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"recipients": enqueued,
	}))
}
