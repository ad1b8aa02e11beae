// Package services содержит бизнес-логику бота: диспетчеризацию входящих
// обновлений, витрину каталога, протокол подарков и проведение платежей.
package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/delivery"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/models"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/telegram"
)

// Токены действий inline-кнопок.
const (
	actionBuyPremium    = "buy_premium"
	actionGiftPremium   = "gift_premium"
	actionTryFree       = "try_free"
	actionPodcastPrefix = "podcast_"
)

// UserRepository определяет методы для работы с пользователями в хранилище.
type UserRepository interface {
	// EnsureUser создаёт пользователя при первом обращении или обновляет профиль.
	EnsureUser(ctx context.Context, user models.User) (*models.User, error)
	// GetUserByUsername ищет пользователя по username без учёта регистра.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// GrantPremium идемпотентно выдаёт полный доступ.
	GrantPremium(ctx context.Context, id int64) error
}

// CatalogRepository определяет методы чтения каталога подкастов.
type CatalogRepository interface {
	ReadPodcast(ctx context.Context, id int64) (*models.Podcast, error)
	ListPodcasts(ctx context.Context) ([]*models.Podcast, error)
	ListPremiumPodcasts(ctx context.Context) ([]*models.Podcast, error)
	FirstFreePodcast(ctx context.Context) (*models.Podcast, error)
}

// CatalogCache кеширует ответы каталога между обращениями к хранилищу.
type CatalogCache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// PaymentLedger определяет журнал завершённых платежей.
type PaymentLedger interface {
	// AppendPayment добавляет запись; повтор по тому же charge id
	// возвращает storage.ErrDuplicatePayment.
	AppendPayment(ctx context.Context, payment models.Payment) error
}

// GiftRegistry определяет реестр сессий подарков.
type GiftRegistry interface {
	Begin(ctx context.Context, senderID int64) (*models.GiftSession, error)
	GetWaiting(ctx context.Context, senderID int64) (*models.GiftSession, error)
	ClearWaiting(ctx context.Context, senderID int64) error
	Resolve(ctx context.Context, senderID int64, typedUsername string, recipientID int64) (*models.GiftSession, error)
	Complete(ctx context.Context, id string) (*models.GiftSession, error)
}

// Sender ставит исходящие отправки в очередь доставки.
type Sender interface {
	SendText(chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	SendAudio(chatID int64, audioURL, caption string, protect bool) error
	SendInvoice(chatID int64, invoice delivery.Invoice) error
}

// Answerer отвечает на запросы Telegram с жёстким лимитом времени,
// минуя очередь доставки.
type Answerer interface {
	AnswerPreCheckoutQuery(queryID string, ok bool, errorMessage string) error
	AnswerCallbackQuery(callbackQueryID string) error
}

// BotService реализует диспетчер обновлений и обработчики монетизации.
type BotService struct {
	users   UserRepository
	catalog CatalogRepository
	cache   CatalogCache
	ledger  PaymentLedger
	gifts   GiftRegistry
	sender  Sender
	api     Answerer
	price   int
	log     *slog.Logger

	// locks сериализует обработку обновлений одного пользователя:
	// параллельные и повторные доставки webhook не должны наблюдать
	// частично применённые переходы состояния.
	locks lockTable
}

// NewBotService создает новый экземпляр BotService.
func NewBotService(users UserRepository, catalog CatalogRepository, cache CatalogCache,
	ledger PaymentLedger, gifts GiftRegistry, sender Sender, api Answerer,
	priceStars int, log *slog.Logger) *BotService {
	return &BotService{
		users:   users,
		catalog: catalog,
		cache:   cache,
		ledger:  ledger,
		gifts:   gifts,
		sender:  sender,
		api:     api,
		price:   priceStars,
		log:     log,
	}
}

// lockShards — размер набора шардов lockTable. У одного пользователя
// всегда один и тот же шард, соседи по остатку деления его разделяют.
const lockShards = 256

// lockTable выдаёт мьютекс по ключу пользователя из фиксированного
// набора шардов: память не растёт вместе с аудиторией.
type lockTable struct {
	shards [lockShards]sync.Mutex
}

func (t *lockTable) forUser(id int64) *sync.Mutex {
	return &t.shards[uint64(id)%lockShards]
}

func offerKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "✨ Полный доступ (599 ⭐)", CallbackData: actionBuyPremium}},
			{{Text: "🎁 Подарить доступ", CallbackData: actionGiftPremium}},
			{{Text: "🆓 Попробовать бесплатно", CallbackData: actionTryFree}},
		},
	}
}
