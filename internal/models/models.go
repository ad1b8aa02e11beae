// Package models содержит доменные структуры бота: пользователей, подкасты,
// платежи, сессии подарков и назначение платежа, закодированное в payload
// счёта.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// User представляет пользователя бота. Создаётся при первом обращении,
// никогда не удаляется. Поле IsPremium монотонно: после установки в true
// обратно не сбрасывается.
type User struct {
	ID               int64      // Идентификатор Telegram
	Username         string     // Username в Telegram, может отсутствовать
	FirstName        string     // Имя
	LastName         string     // Фамилия
	IsPremium        bool       // Куплен ли полный доступ
	PremiumGrantedAt *time.Time // Когда выдан полный доступ
	JoinedAt         time.Time  // Первое обращение к боту
	LastActive       time.Time  // Последняя активность
}

// Podcast представляет запись каталога подкастов.
type Podcast struct {
	ID          int64     `json:"id"`          // Идентификатор записи
	Title       string    `json:"title"`       // Название подкаста
	Description string    `json:"description"` // Описание
	AudioURL    string    `json:"audio_url"`   // Ссылка на аудиофайл
	IsPremium   bool      `json:"is_premium"`  // Требуется ли полный доступ
	Duration    string    `json:"duration"`    // Длительность в формате для показа, например "15 мин"
	CreatedAt   time.Time `json:"created_at"`  // Дата добавления
}

// Payment представляет запись о завершённом платеже. Журнал платежей
// append-only: записи не обновляются и не удаляются, ключ уникальности —
// TelegramChargeID.
type Payment struct {
	TelegramChargeID string    // Идентификатор платежа от Telegram
	PayerID          int64     // Кто оплатил
	Amount           int       // Сумма в XTR
	Currency         string    // Валюта, всегда XTR
	Status           string    // Всегда "completed"
	Payload          string    // Закодированный PaymentPurpose счёта
	SettledAt        time.Time // Когда платёж был проведён
}

// Статусы сессии подарка.
const (
	GiftStatusAwaitingHandle  = "awaiting_handle"
	GiftStatusAwaitingPayment = "awaiting_payment"
	GiftStatusCompleted       = "completed"
	GiftStatusFailed          = "failed"
)

// GiftSession представляет незавершённую покупку подарка: от нажатия кнопки
// до оплаты счёта. Хранится с TTL, на одного отправителя существует не более
// одной активной сессии.
type GiftSession struct {
	ID                string     `json:"id"`                  // Токен сессии, он же корреляция со счётом
	SenderID          int64      `json:"sender_id"`           // Кто дарит
	RecipientUsername string     `json:"recipient_username"`  // Username получателя, как его ввёл отправитель
	RecipientID       int64      `json:"recipient_id"`        // Идентификатор получателя после успешного поиска
	Status            string     `json:"status"`              // Текущее состояние сессии
	CreatedAt         time.Time  `json:"created_at"`          // Когда началась сессия
	CompletedAt       *time.Time `json:"completed_at,omitempty"` // Когда оплата прошла
}

// Виды назначения платежа.
const (
	PurposeSelfPurchase = "self"
	PurposeGift         = "gift"
)

// PaymentPurpose — явное назначение счёта, формируется при выставлении счёта
// и без изменений проходит через Telegram до обработки оплаты в payload
// счёта. Kind определяет, какое из остальных полей заполнено.
type PaymentPurpose struct {
	Kind      string `json:"kind"`
	BuyerID   int64  `json:"buyer_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// SelfPurchase создаёт назначение платежа для покупки себе.
func SelfPurchase(buyerID int64) PaymentPurpose {
	return PaymentPurpose{Kind: PurposeSelfPurchase, BuyerID: buyerID}
}

// GiftPurchase создаёт назначение платежа для подарка по токену сессии.
func GiftPurchase(sessionID string) PaymentPurpose {
	return PaymentPurpose{Kind: PurposeGift, SessionID: sessionID}
}

// Encode сериализует назначение платежа в строку payload счёта.
func (p PaymentPurpose) Encode() string {
	data, _ := json.Marshal(p)
	return string(data)
}

// ParsePaymentPurpose разбирает payload счёта обратно в PaymentPurpose.
func ParsePaymentPurpose(payload string) (PaymentPurpose, error) {
	const op = "models.ParsePaymentPurpose"
	var p PaymentPurpose
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return PaymentPurpose{}, fmt.Errorf("%s: %w", op, err)
	}
	switch p.Kind {
	case PurposeSelfPurchase, PurposeGift:
		return p, nil
	default:
		return PaymentPurpose{}, fmt.Errorf("%s: unknown purpose kind %q", op, p.Kind)
	}
}

// Stats агрегированные показатели для админ-панели.
type Stats struct {
	TotalUsers      int     `json:"total_users"`
	PremiumUsers    int     `json:"premium_users"`
	TotalPodcasts   int     `json:"total_podcasts"`
	FreePodcasts    int     `json:"free_podcasts"`
	PremiumPodcasts int     `json:"premium_podcasts"`
	TotalRevenue    int     `json:"total_revenue"`
	ConversionRate  float64 `json:"conversion_rate"`
}
