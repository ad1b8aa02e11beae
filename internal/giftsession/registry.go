// Package giftsession реализует реестр сессий подарков в Redis.
//
// Сессия живёт от нажатия кнопки "подарить" до оплаты счёта. Оба состояния
// ожидания хранятся с TTL: брошенные сессии вытесняются сами, без сборщика.
// На одного отправителя существует не более одной сессии в ожидании
// username — повторное нажатие кнопки перезаписывает прежнюю.
package giftsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/models"
)

// ErrSessionNotFound возвращается, когда сессия не найдена или уже
// вытеснена по TTL.
var ErrSessionNotFound = errors.New("gift session not found")

// SessionTTL время жизни сессии в состояниях ожидания.
const SessionTTL = 30 * time.Minute

// Registry реестр сессий подарков.
type Registry struct {
	db *redis.Client
}

// NewRegistry создаёт реестр поверх клиента Redis.
func NewRegistry(db *redis.Client) *Registry {
	return &Registry{db: db}
}

func waitingKey(senderID int64) string {
	return fmt.Sprintf("gift:waiting:%d", senderID)
}

func sessionKey(id string) string {
	return fmt.Sprintf("gift:session:%s", id)
}

// Begin создаёт для отправителя сессию в состоянии ожидания username.
// Прежняя незавершённая сессия отправителя перезаписывается.
func (r *Registry) Begin(ctx context.Context, senderID int64) (*models.GiftSession, error) {
	const op = "giftsession.Begin"
	session := &models.GiftSession{
		SenderID:  senderID,
		Status:    models.GiftStatusAwaitingHandle,
		CreatedAt: time.Now(),
	}
	if err := r.set(ctx, waitingKey(senderID), session); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

// GetWaiting возвращает сессию отправителя в состоянии ожидания username.
func (r *Registry) GetWaiting(ctx context.Context, senderID int64) (*models.GiftSession, error) {
	const op = "giftsession.GetWaiting"
	return r.get(ctx, op, waitingKey(senderID))
}

// ClearWaiting удаляет сессию отправителя в состоянии ожидания username.
// Используется при терминальном отказе: получатель не найден.
func (r *Registry) ClearWaiting(ctx context.Context, senderID int64) error {
	const op = "giftsession.ClearWaiting"
	if err := r.db.Del(ctx, waitingKey(senderID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Resolve переводит сессию отправителя в состояние ожидания оплаты:
// генерирует токен сессии, запоминает найденного получателя и удаляет
// ключ ожидания username. Токен сессии используется как payload счёта.
func (r *Registry) Resolve(ctx context.Context, senderID int64, typedUsername string, recipientID int64) (*models.GiftSession, error) {
	const op = "giftsession.Resolve"
	session := &models.GiftSession{
		ID:                uuid.NewString(),
		SenderID:          senderID,
		RecipientUsername: typedUsername,
		RecipientID:       recipientID,
		Status:            models.GiftStatusAwaitingPayment,
		CreatedAt:         time.Now(),
	}
	if err := r.set(ctx, sessionKey(session.ID), session); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.db.Del(ctx, waitingKey(senderID)).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

// Get возвращает сессию по её токену.
func (r *Registry) Get(ctx context.Context, id string) (*models.GiftSession, error) {
	const op = "giftsession.Get"
	return r.get(ctx, op, sessionKey(id))
}

// Complete помечает сессию завершённой и удаляет её из реестра.
// Отсутствующая сессия — ошибка: оплата по вытесненному счёту не должна
// незаметно превращаться в покупку себе.
func (r *Registry) Complete(ctx context.Context, id string) (*models.GiftSession, error) {
	const op = "giftsession.Complete"
	session, err := r.get(ctx, op, sessionKey(id))
	if err != nil {
		return nil, err
	}
	now := time.Now()
	session.Status = models.GiftStatusCompleted
	session.CompletedAt = &now
	if err := r.db.Del(ctx, sessionKey(id)).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

func (r *Registry) set(ctx context.Context, key string, session *models.GiftSession) error {
	jsonData, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.db.Set(ctx, key, jsonData, SessionTTL).Err()
}

func (r *Registry) get(ctx context.Context, op, key string) (*models.GiftSession, error) {
	val, err := r.db.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var session models.GiftSession
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &session, nil
}
