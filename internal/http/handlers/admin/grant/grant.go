// Package grant реализует HTTP-обработчик ручной выдачи полного доступа
// пользователю бота.
package grant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/middlewarectx"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/response"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/sl"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/storage"
)

// Request — структура входных данных для выдачи доступа.
type Request struct {
	UserID int64 `json:"user_id" validate:"required"`
}

// Handler обрабатывает запросы ручной выдачи доступа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики выдачи доступа.
type Service interface {
	GrantPremium(ctx context.Context, userID int64) error
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP обрабатывает HTTP-запрос на выдачу полного доступа пользователю.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.grant"

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

	err := h.service.GrantPremium(r.Context(), req.UserID)
	if errors.Is(err, storage.ErrUserNotFound) {
		log.Error("user not found", slog.Int64("user_id", req.UserID))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("user not found"))
		return
	}
	if err != nil {
		log.Error("failed to grant premium", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not grant premium"))
		return
	}

	admin, _ := r.Context().Value(middlewarectx.User).(string)
	log.Info("premium granted manually",
		slog.String("admin", admin),
		slog.Int64("user_id", req.UserID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user_id": req.UserID,
	}))
}
