package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/sl"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/telegram"
)

// BotAPI методы Telegram Bot API, которые использует воркер.
type BotAPI interface {
	SendMessage(req telegram.SendMessageRequest) error
	SendAudio(req telegram.SendAudioRequest) error
	SendInvoice(req telegram.SendInvoiceRequest) error
}

// Worker потребляет очередь исходящих отправок и выполняет их через
// Bot API с ограничением темпа.
type Worker struct {
	bot     BotAPI
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewWorker создаёт воркера с заданным темпом отправки.
func NewWorker(bot BotAPI, sendRate float64, burst int, log *slog.Logger) *Worker {
	return &Worker{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(sendRate), burst),
		log:     log,
	}
}

// Handle обрабатывает одно сообщение очереди. Возвращённая ошибка приводит
// к возврату сообщения в очередь.
func (w *Worker) Handle(body []byte) error {
	const op = "delivery.Handle"
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		// Сообщение не разобрать — возвращать его в очередь бессмысленно.
		w.log.Error("failed to unmarshal delivery", sl.Err(err))
		return nil
	}

	if err := w.limiter.Wait(context.Background()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var err error
	switch msg.Kind {
	case KindText:
		req := telegram.SendMessageRequest{ChatID: msg.ChatID, Text: msg.Text}
		if msg.Keyboard != nil {
			req.ReplyMarkup = msg.Keyboard
		}
		err = w.bot.SendMessage(req)
	case KindAudio:
		err = w.bot.SendAudio(telegram.SendAudioRequest{
			ChatID:         msg.ChatID,
			Audio:          msg.AudioURL,
			Caption:        msg.Caption,
			ProtectContent: msg.Protect,
		})
	case KindInvoice:
		if msg.Invoice == nil {
			w.log.Error("invoice delivery without invoice payload", slog.Int64("chat_id", msg.ChatID))
			return nil
		}
		err = w.bot.SendInvoice(telegram.SendInvoiceRequest{
			ChatID:      msg.ChatID,
			Title:       msg.Invoice.Title,
			Description: msg.Invoice.Description,
			Payload:     msg.Invoice.Payload,
			Currency:    "XTR",
			Prices: []telegram.LabeledPrice{
				{Label: msg.Invoice.Title, Amount: msg.Invoice.PriceStars},
			},
		})
	default:
		w.log.Error("unknown delivery kind", slog.String("kind", msg.Kind))
		return nil
	}

	if err != nil {
		// Доставка fire-and-forget: ошибку фиксируем, но сообщение не
		// возвращаем в очередь, чтобы не зациклить отправку в мёртвый чат.
		w.log.Error("failed to deliver message",
			slog.String("kind", msg.Kind),
			slog.Int64("chat_id", msg.ChatID),
			sl.Err(err))
	}
	return nil
}
