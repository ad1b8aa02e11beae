// Package telegramwebhook реализует HTTP-обработчик входящих обновлений
// Telegram Bot API.
//
// Handler сверяет секрет webhook, декодирует обновление и передаёт его
// диспетчеру бота. Повторные доставки одного обновления безопасны: вся
// логика проведения платежей идемпотентна.
package telegramwebhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/http/response"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/sl"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/telegram"
)

// Handler обрабатывает входящие обновления Telegram.
type Handler struct {
	log     *slog.Logger
	service Service
	secret  string
}

// Service описывает интерфейс диспетчера обновлений.
type Service interface {
	HandleUpdate(ctx context.Context, update telegram.Update) error
}

// New создает новый Handler с переданным логгером, диспетчером и секретом webhook.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:     log,
		service: service,
		secret:  secret,
	}
}

// ServeHTTP обрабатывает HTTP-запрос с обновлением от Telegram.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.telegramwebhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	secret := chi.URLParam(r, "secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
		log.Error("webhook secret mismatch")
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("not found"))
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Error("failed to decode update", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid update body"))
		return
	}

	if err := h.service.HandleUpdate(r.Context(), update); err != nil {
		log.Error("failed to handle update", sl.Err(err),
			slog.Int("update_id", update.UpdateID))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not handle update"))
		return
	}

	render.JSON(w, r, response.Response{Status: response.StatusOK})
}
