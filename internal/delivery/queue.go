// Package delivery реализует очередь исходящих отправок в Telegram.
//
// Обработчики бота не ходят в Bot API напрямую: текст, аудио и счета
// публикуются в RabbitMQ, а отдельный воркер отправляет их с ограничением
// темпа. Ответы на pre-checkout и нажатия кнопок в очередь не попадают —
// у них жёсткий лимит времени ответа.
package delivery

import (
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/telegram"
)

// Имена очереди и ключа маршрутизации исходящих отправок.
const (
	QueueDeliveries    = "telegram_deliveries"
	RoutingKeyDelivery = "telegram.delivery"
)

// Виды исходящих отправок.
const (
	KindText    = "text"
	KindAudio   = "audio"
	KindInvoice = "invoice"
)

// Invoice параметры счёта для отправки.
type Invoice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Payload     string `json:"payload"`
	PriceStars  int    `json:"price_stars"`
}

// Message одна исходящая отправка. Kind определяет, какие поля заполнены.
type Message struct {
	Kind     string                         `json:"kind"`
	ChatID   int64                          `json:"chat_id"`
	Text     string                         `json:"text,omitempty"`
	Keyboard *telegram.InlineKeyboardMarkup `json:"keyboard,omitempty"`
	AudioURL string                         `json:"audio_url,omitempty"`
	Caption  string                         `json:"caption,omitempty"`
	Protect  bool                           `json:"protect,omitempty"`
	Invoice  *Invoice                       `json:"invoice,omitempty"`
}

// Queue публикует исходящие отправки в RabbitMQ.
type Queue struct {
	ch *amqp.Channel
}

// NewQueue создаёт издателя поверх открытого канала RabbitMQ.
func NewQueue(ch *amqp.Channel) *Queue {
	return &Queue{ch: ch}
}

// SendText ставит в очередь текстовое сообщение с необязательной клавиатурой.
func (q *Queue) SendText(chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error {
	return q.publish(Message{
		Kind:     KindText,
		ChatID:   chatID,
		Text:     text,
		Keyboard: keyboard,
	})
}

// SendAudio ставит в очередь отправку аудио.
func (q *Queue) SendAudio(chatID int64, audioURL, caption string, protect bool) error {
	return q.publish(Message{
		Kind:     KindAudio,
		ChatID:   chatID,
		AudioURL: audioURL,
		Caption:  caption,
		Protect:  protect,
	})
}

// SendInvoice ставит в очередь выставление счёта.
func (q *Queue) SendInvoice(chatID int64, invoice Invoice) error {
	return q.publish(Message{
		Kind:    KindInvoice,
		ChatID:  chatID,
		Invoice: &invoice,
	})
}

func (q *Queue) publish(msg Message) error {
	const op = "delivery.publish"
	if err := rabbitmq.PublishJSON(q.ch, RoutingKeyDelivery, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
