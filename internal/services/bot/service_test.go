package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/delivery"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/giftsession"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/models"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/storage"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/telegram"
)

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) EnsureUser(ctx context.Context, user models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUsers) GrantPremium(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ReadPodcast(ctx context.Context, id int64) (*models.Podcast, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Podcast), args.Error(1)
}

func (m *MockCatalog) ListPodcasts(ctx context.Context) ([]*models.Podcast, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Podcast), args.Error(1)
}

func (m *MockCatalog) ListPremiumPodcasts(ctx context.Context) ([]*models.Podcast, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Podcast), args.Error(1)
}

func (m *MockCatalog) FirstFreePodcast(ctx context.Context) (*models.Podcast, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Podcast), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) AppendPayment(ctx context.Context, payment models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

type MockGifts struct {
	mock.Mock
}

func (m *MockGifts) Begin(ctx context.Context, senderID int64) (*models.GiftSession, error) {
	args := m.Called(ctx, senderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GiftSession), args.Error(1)
}

func (m *MockGifts) GetWaiting(ctx context.Context, senderID int64) (*models.GiftSession, error) {
	args := m.Called(ctx, senderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GiftSession), args.Error(1)
}

func (m *MockGifts) ClearWaiting(ctx context.Context, senderID int64) error {
	args := m.Called(ctx, senderID)
	return args.Error(0)
}

func (m *MockGifts) Resolve(ctx context.Context, senderID int64, typedUsername string, recipientID int64) (*models.GiftSession, error) {
	args := m.Called(ctx, senderID, typedUsername, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GiftSession), args.Error(1)
}

func (m *MockGifts) Complete(ctx context.Context, id string) (*models.GiftSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GiftSession), args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendText(chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error {
	args := m.Called(chatID, text, keyboard)
	return args.Error(0)
}

func (m *MockSender) SendAudio(chatID int64, audioURL, caption string, protect bool) error {
	args := m.Called(chatID, audioURL, caption, protect)
	return args.Error(0)
}

func (m *MockSender) SendInvoice(chatID int64, invoice delivery.Invoice) error {
	args := m.Called(chatID, invoice)
	return args.Error(0)
}

type MockAnswerer struct {
	mock.Mock
}

func (m *MockAnswerer) AnswerPreCheckoutQuery(queryID string, ok bool, errorMessage string) error {
	args := m.Called(queryID, ok, errorMessage)
	return args.Error(0)
}

func (m *MockAnswerer) AnswerCallbackQuery(callbackQueryID string) error {
	args := m.Called(callbackQueryID)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type botMocks struct {
	users   *MockUsers
	catalog *MockCatalog
	cache   *MockCache
	ledger  *MockLedger
	gifts   *MockGifts
	sender  *MockSender
	api     *MockAnswerer
}

func newTestService() (*BotService, *botMocks) {
	m := &botMocks{
		users:   new(MockUsers),
		catalog: new(MockCatalog),
		cache:   new(MockCache),
		ledger:  new(MockLedger),
		gifts:   new(MockGifts),
		sender:  new(MockSender),
		api:     new(MockAnswerer),
	}
	svc := NewBotService(m.users, m.catalog, m.cache, m.ledger, m.gifts, m.sender, m.api, 599, newNoopLogger())
	return svc, m
}

func (m *botMocks) assertExpectations(t *testing.T) {
	m.users.AssertExpectations(t)
	m.catalog.AssertExpectations(t)
	m.cache.AssertExpectations(t)
	m.ledger.AssertExpectations(t)
	m.gifts.AssertExpectations(t)
	m.sender.AssertExpectations(t)
	m.api.AssertExpectations(t)
}

func tgUser(id int64, username string) *telegram.User {
	return &telegram.User{ID: id, Username: username, FirstName: "Test"}
}

func messageUpdate(from *telegram.User, text string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		From: from,
		Chat: &telegram.Chat{ID: from.ID, Type: "private"},
		Text: text,
	}}
}

func callbackUpdate(from *telegram.User, data string) telegram.Update {
	return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:   "cb-1",
		From: from,
		Data: data,
		Message: &telegram.Message{
			Chat: &telegram.Chat{ID: from.ID, Type: "private"},
		},
	}}
}

func expectCacheMiss(m *botMocks, key string) {
	m.cache.On("Get", key, mock.Anything).Return(false, nil).Once()
	m.cache.On("Set", key, mock.Anything, mock.Anything).Return(nil).Maybe()
}

func expectEnsure(m *botMocks, id int64, premium bool) {
	m.users.On("EnsureUser", mock.Anything, mock.Anything).
		Return(&models.User{ID: id, IsPremium: premium}, nil).Once()
}

func TestHandleUpdate_PreCheckoutApprovedImmediately(t *testing.T) {
	svc, m := newTestService()
	m.api.On("AnswerPreCheckoutQuery", "q-1", true, "").Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), telegram.Update{
		PreCheckoutQuery: &telegram.PreCheckoutQuery{ID: "q-1", From: tgUser(10, "payer")},
	})

	require.NoError(t, err)
	// Никаких обращений к хранилищу до ответа быть не должно.
	m.users.AssertNotCalled(t, "EnsureUser", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestHandleUpdate_StartSendsWelcomeAudioAndOffer(t *testing.T) {
	svc, m := newTestService()
	expectEnsure(m, 10, false)
	m.catalog.On("FirstFreePodcast", mock.Anything).
		Return(&models.Podcast{ID: 1, Title: "Дождь", AudioURL: "https://cdn/rain.mp3"}, nil).Once()
	m.sender.On("SendText", int64(10), msgWelcome, (*telegram.InlineKeyboardMarkup)(nil)).Return(nil).Once()
	m.sender.On("SendAudio", int64(10), "https://cdn/rain.mp3", msgFreePodcastCaption, false).Return(nil).Once()
	m.sender.On("SendText", int64(10), msgOfferCollection, mock.AnythingOfType("*telegram.InlineKeyboardMarkup")).Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), messageUpdate(tgUser(10, "alice"), "/start"))

	require.NoError(t, err)
	m.assertExpectations(t)
}

func TestHandleUpdate_StartWithoutFreePodcastStillGreets(t *testing.T) {
	svc, m := newTestService()
	expectEnsure(m, 10, false)
	m.catalog.On("FirstFreePodcast", mock.Anything).Return(nil, storage.ErrPodcastNotFound).Once()
	m.sender.On("SendText", int64(10), msgWelcome, (*telegram.InlineKeyboardMarkup)(nil)).Return(nil).Once()
	m.sender.On("SendText", int64(10), msgOfferCollection, mock.AnythingOfType("*telegram.InlineKeyboardMarkup")).Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), messageUpdate(tgUser(10, "alice"), "/start"))

	require.NoError(t, err)
	m.sender.AssertNotCalled(t, "SendAudio", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestHandleUpdate_PodcastsListAccessLabels(t *testing.T) {
	catalog := []*models.Podcast{
		{ID: 1, Title: "Дождь", Duration: "15 мин", IsPremium: false},
		{ID: 2, Title: "Океан", Duration: "20 мин", IsPremium: true},
	}

	tests := []struct {
		name       string
		premium    bool
		wantLabel  string
		wantUpsell bool
	}{
		{
			name:       "premium viewer sees unlocked label and no upsell",
			premium:    true,
			wantLabel:  "✨ Океан",
			wantUpsell: false,
		},
		{
			name:       "regular viewer sees locked label and upsell",
			premium:    false,
			wantLabel:  "🔒 Океан",
			wantUpsell: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestService()
			expectEnsure(m, 10, tt.premium)
			expectCacheMiss(m, "podcasts:list")
			m.catalog.On("ListPodcasts", mock.Anything).Return(catalog, nil).Once()

			var gotText string
			var gotKeyboard *telegram.InlineKeyboardMarkup
			m.sender.On("SendText", int64(10), mock.AnythingOfType("string"), mock.AnythingOfType("*telegram.InlineKeyboardMarkup")).
				Run(func(args mock.Arguments) {
					gotText = args.String(1)
					gotKeyboard = args.Get(2).(*telegram.InlineKeyboardMarkup)
				}).Return(nil).Once()

			err := svc.HandleUpdate(context.Background(), messageUpdate(tgUser(10, "alice"), "/podcasts"))

			require.NoError(t, err)
			require.Contains(t, gotText, "🎁 Дождь")
			require.Contains(t, gotText, tt.wantLabel)
			if tt.wantUpsell {
				require.Contains(t, gotText, msgUpsell)
				// Две кнопки покупки добавляются после кнопок подкастов.
				require.Len(t, gotKeyboard.InlineKeyboard, len(catalog)+2)
			} else {
				require.NotContains(t, gotText, msgUpsell)
				require.Len(t, gotKeyboard.InlineKeyboard, len(catalog))
			}
			m.assertExpectations(t)
		})
	}
}

func TestHandleUpdate_UnknownTextWithoutGiftSession(t *testing.T) {
	svc, m := newTestService()
	expectEnsure(m, 10, false)
	m.gifts.On("GetWaiting", mock.Anything, int64(10)).Return(nil, giftsession.ErrSessionNotFound).Once()
	m.sender.On("SendText", int64(10), msgUnknownCommand, (*telegram.InlineKeyboardMarkup)(nil)).Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), messageUpdate(tgUser(10, "alice"), "привет"))

	require.NoError(t, err)
	m.assertExpectations(t)
}

func TestHandleUpdate_GiftSessionLookupErrorIsNotSwallowed(t *testing.T) {
	svc, m := newTestService()
	expectEnsure(m, 10, false)
	lookupErr := errors.New("redis: connection refused")
	m.gifts.On("GetWaiting", mock.Anything, int64(10)).Return(nil, lookupErr).Once()

	err := svc.HandleUpdate(context.Background(), messageUpdate(tgUser(10, "alice"), "@friend"))

	// Сбой реестра сессий не должен выглядеть как непонятая команда.
	require.ErrorIs(t, err, lookupErr)
	m.sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestHandleUpdate_PremiumPodcastWithoutAccess(t *testing.T) {
	svc, m := newTestService()
	expectEnsure(m, 10, false)
	expectCacheMiss(m, "podcast:7")
	m.api.On("AnswerCallbackQuery", "cb-1").Return(nil).Once()
	m.catalog.On("ReadPodcast", mock.Anything, int64(7)).
		Return(&models.Podcast{ID: 7, Title: "Океан", AudioURL: "https://cdn/ocean.mp3", IsPremium: true}, nil).Once()
	m.sender.On("SendText", int64(10), msgPremiumRequired, mock.AnythingOfType("*telegram.InlineKeyboardMarkup")).Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), callbackUpdate(tgUser(10, "alice"), "podcast_7"))

	require.NoError(t, err)
	// Ссылка на аудио не должна уходить пользователю без доступа.
	m.sender.AssertNotCalled(t, "SendAudio", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestHandleUpdate_PremiumPodcastWithAccessIsProtected(t *testing.T) {
	svc, m := newTestService()
	expectEnsure(m, 10, true)
	expectCacheMiss(m, "podcast:7")
	m.api.On("AnswerCallbackQuery", "cb-1").Return(nil).Once()
	m.catalog.On("ReadPodcast", mock.Anything, int64(7)).
		Return(&models.Podcast{ID: 7, Title: "Океан", Description: "Шум волн", AudioURL: "https://cdn/ocean.mp3", IsPremium: true}, nil).Once()
	m.sender.On("SendAudio", int64(10), "https://cdn/ocean.mp3", mock.AnythingOfType("string"), true).Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), callbackUpdate(tgUser(10, "alice"), "podcast_7"))

	require.NoError(t, err)
	m.assertExpectations(t)
}

func TestHandleUpdate_PodcastServedFromCache(t *testing.T) {
	svc, m := newTestService()
	expectEnsure(m, 10, true)
	m.api.On("AnswerCallbackQuery", "cb-1").Return(nil).Once()
	m.cache.On("Get", "podcast:7", mock.Anything).
		Run(func(args mock.Arguments) {
			out := args.Get(1).(**models.Podcast)
			*out = &models.Podcast{ID: 7, Title: "Океан", AudioURL: "https://cdn/ocean.mp3", IsPremium: true}
		}).Return(true, nil).Once()
	m.sender.On("SendAudio", int64(10), "https://cdn/ocean.mp3", mock.AnythingOfType("string"), true).Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), callbackUpdate(tgUser(10, "alice"), "podcast_7"))

	require.NoError(t, err)
	m.catalog.AssertNotCalled(t, "ReadPodcast", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestHandleUpdate_CallbackAnsweredEvenOnHandlerError(t *testing.T) {
	svc, m := newTestService()
	expectEnsure(m, 10, false)
	expectCacheMiss(m, "podcast:7")
	m.api.On("AnswerCallbackQuery", "cb-1").Return(nil).Once()
	m.catalog.On("ReadPodcast", mock.Anything, int64(7)).Return(nil, errors.New("db down")).Once()

	err := svc.HandleUpdate(context.Background(), callbackUpdate(tgUser(10, "alice"), "podcast_7"))

	require.Error(t, err)
	m.assertExpectations(t)
}

func TestHandleUpdate_CallbackWithoutMessageStillAnswered(t *testing.T) {
	svc, m := newTestService()
	m.api.On("AnswerCallbackQuery", "cb-1").Return(nil).Once()

	// Telegram опускает исходное сообщение, если оно недоступно или
	// старше 48 часов.
	err := svc.HandleUpdate(context.Background(), telegram.Update{
		CallbackQuery: &telegram.CallbackQuery{ID: "cb-1", From: tgUser(10, "alice"), Data: actionBuyPremium},
	})

	require.NoError(t, err)
	m.users.AssertNotCalled(t, "EnsureUser", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestLockTable_StripesAreStableAndBounded(t *testing.T) {
	var locks lockTable
	require.Same(t, locks.forUser(7), locks.forUser(7))
	require.Same(t, locks.forUser(7), locks.forUser(7+lockShards))
	require.NotNil(t, locks.forUser(-1))
}

func TestHandleUpdate_BuyPremiumSendsSelfInvoice(t *testing.T) {
	svc, m := newTestService()
	expectEnsure(m, 10, false)
	m.api.On("AnswerCallbackQuery", "cb-1").Return(nil).Once()
	m.sender.On("SendInvoice", int64(10), mock.MatchedBy(func(inv delivery.Invoice) bool {
		purpose, err := models.ParsePaymentPurpose(inv.Payload)
		return err == nil && purpose.Kind == models.PurposeSelfPurchase &&
			purpose.BuyerID == 10 && inv.PriceStars == 599
	})).Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), callbackUpdate(tgUser(10, "alice"), "buy_premium"))

	require.NoError(t, err)
	m.assertExpectations(t)
}

func TestGiftFlow_UsernameResolvedAndInvoiceSent(t *testing.T) {
	svc, m := newTestService()
	waiting := &models.GiftSession{ID: "s-1", SenderID: 10, Status: models.GiftStatusAwaitingHandle}
	resolved := &models.GiftSession{ID: "s-1", SenderID: 10, RecipientUsername: "bob", RecipientID: 20, Status: models.GiftStatusAwaitingPayment}

	expectEnsure(m, 10, false)
	m.gifts.On("GetWaiting", mock.Anything, int64(10)).Return(waiting, nil).Once()
	m.users.On("GetUserByUsername", mock.Anything, "bob").Return(&models.User{ID: 20, Username: "bob"}, nil).Once()
	m.gifts.On("Resolve", mock.Anything, int64(10), "bob", int64(20)).Return(resolved, nil).Once()
	m.sender.On("SendText", int64(10), mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "@bob") && !strings.Contains(text, "{username}")
	}), (*telegram.InlineKeyboardMarkup)(nil)).Return(nil).Once()
	m.sender.On("SendInvoice", int64(10), mock.MatchedBy(func(inv delivery.Invoice) bool {
		purpose, err := models.ParsePaymentPurpose(inv.Payload)
		return err == nil && purpose.Kind == models.PurposeGift && purpose.SessionID == "s-1"
	})).Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), messageUpdate(tgUser(10, "alice"), "@bob"))

	require.NoError(t, err)
	m.assertExpectations(t)
}

func TestGiftFlow_EmptyUsernameKeepsWaiting(t *testing.T) {
	svc, m := newTestService()
	waiting := &models.GiftSession{ID: "s-1", SenderID: 10, Status: models.GiftStatusAwaitingHandle}

	expectEnsure(m, 10, false)
	m.gifts.On("GetWaiting", mock.Anything, int64(10)).Return(waiting, nil).Once()
	m.sender.On("SendText", int64(10), msgGiftUsernameEmpty, (*telegram.InlineKeyboardMarkup)(nil)).Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), messageUpdate(tgUser(10, "alice"), "   @   "))

	require.NoError(t, err)
	m.gifts.AssertNotCalled(t, "ClearWaiting", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestGiftFlow_UnknownRecipientEndsSession(t *testing.T) {
	svc, m := newTestService()
	waiting := &models.GiftSession{ID: "s-1", SenderID: 10, Status: models.GiftStatusAwaitingHandle}

	expectEnsure(m, 10, false)
	m.gifts.On("GetWaiting", mock.Anything, int64(10)).Return(waiting, nil).Once()
	m.users.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, storage.ErrUserNotFound).Once()
	m.gifts.On("ClearWaiting", mock.Anything, int64(10)).Return(nil).Once()
	m.sender.On("SendText", int64(10), msgGiftUsernameNotFound, (*telegram.InlineKeyboardMarkup)(nil)).Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), messageUpdate(tgUser(10, "alice"), "ghost"))

	require.NoError(t, err)
	m.sender.AssertNotCalled(t, "SendInvoice", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func paymentUpdate(from *telegram.User, chargeID, payload string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		From: from,
		Chat: &telegram.Chat{ID: from.ID, Type: "private"},
		SuccessfulPayment: &telegram.SuccessfulPayment{
			Currency:                "XTR",
			TotalAmount:             599,
			InvoicePayload:          payload,
			TelegramPaymentChargeID: chargeID,
		},
	}}
}

func TestSettlement_SelfPurchaseGrantsAndDelivers(t *testing.T) {
	svc, m := newTestService()
	payload := models.SelfPurchase(10).Encode()

	expectEnsure(m, 10, false)
	m.ledger.On("AppendPayment", mock.Anything, mock.MatchedBy(func(p models.Payment) bool {
		return p.TelegramChargeID == "ch-1" && p.PayerID == 10 && p.Amount == 599 && p.Currency == "XTR"
	})).Return(nil).Once()
	m.users.On("GrantPremium", mock.Anything, int64(10)).Return(nil).Once()
	m.sender.On("SendText", int64(10), msgPaymentSuccess, (*telegram.InlineKeyboardMarkup)(nil)).Return(nil).Once()
	m.catalog.On("ListPremiumPodcasts", mock.Anything).Return([]*models.Podcast{
		{ID: 2, Title: "Лес", AudioURL: "https://cdn/forest.mp3", IsPremium: true},
		{ID: 3, Title: "Море", AudioURL: "https://cdn/sea.mp3", IsPremium: true},
	}, nil).Once()
	m.sender.On("SendAudio", int64(10), "https://cdn/forest.mp3", mock.AnythingOfType("string"), true).Return(nil).Once()
	m.sender.On("SendAudio", int64(10), "https://cdn/sea.mp3", mock.AnythingOfType("string"), true).Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), paymentUpdate(tgUser(10, "alice"), "ch-1", payload))

	require.NoError(t, err)
	m.assertExpectations(t)
}

func TestSettlement_DuplicateChargeAbsorbedSilently(t *testing.T) {
	svc, m := newTestService()
	payload := models.SelfPurchase(10).Encode()

	expectEnsure(m, 10, false)
	m.ledger.On("AppendPayment", mock.Anything, mock.Anything).Return(storage.ErrDuplicatePayment).Once()

	err := svc.HandleUpdate(context.Background(), paymentUpdate(tgUser(10, "alice"), "ch-1", payload))

	require.NoError(t, err)
	m.users.AssertNotCalled(t, "GrantPremium", mock.Anything, mock.Anything)
	m.sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestSettlement_GiftGrantsRecipientAndConfirmsSender(t *testing.T) {
	svc, m := newTestService()
	payload := models.GiftPurchase("s-1").Encode()
	session := &models.GiftSession{ID: "s-1", SenderID: 10, RecipientUsername: "bob", RecipientID: 20, Status: models.GiftStatusCompleted}

	expectEnsure(m, 10, false)
	m.ledger.On("AppendPayment", mock.Anything, mock.Anything).Return(nil).Once()
	m.gifts.On("Complete", mock.Anything, "s-1").Return(session, nil).Once()
	m.users.On("GrantPremium", mock.Anything, int64(20)).Return(nil).Once()
	m.sender.On("SendText", int64(20), msgGiftReceived, (*telegram.InlineKeyboardMarkup)(nil)).Return(nil).Once()
	m.catalog.On("ListPremiumPodcasts", mock.Anything).Return([]*models.Podcast{}, nil).Once()
	m.sender.On("SendText", int64(10), mock.MatchedBy(func(text string) bool {
		return text != msgPaymentSuccess && text != msgGiftReceived
	}), (*telegram.InlineKeyboardMarkup)(nil)).Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), paymentUpdate(tgUser(10, "alice"), "ch-2", payload))

	require.NoError(t, err)
	// Плательщик не должен получить доступ вместо получателя.
	m.users.AssertNotCalled(t, "GrantPremium", mock.Anything, int64(10))
	m.assertExpectations(t)
}

func TestSettlement_MissingGiftSessionIsHardError(t *testing.T) {
	svc, m := newTestService()
	payload := models.GiftPurchase("expired").Encode()

	expectEnsure(m, 10, false)
	m.ledger.On("AppendPayment", mock.Anything, mock.Anything).Return(nil).Once()
	m.gifts.On("Complete", mock.Anything, "expired").Return(nil, giftsession.ErrSessionNotFound).Once()
	m.sender.On("SendText", int64(10), msgPaymentUnmatched, (*telegram.InlineKeyboardMarkup)(nil)).Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), paymentUpdate(tgUser(10, "alice"), "ch-3", payload))

	require.Error(t, err)
	m.users.AssertNotCalled(t, "GrantPremium", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestSettlement_UnparseablePayloadNotifiesPayer(t *testing.T) {
	svc, m := newTestService()

	expectEnsure(m, 10, false)
	m.ledger.On("AppendPayment", mock.Anything, mock.Anything).Return(nil).Once()
	m.sender.On("SendText", int64(10), msgPaymentUnmatched, (*telegram.InlineKeyboardMarkup)(nil)).Return(nil).Once()

	err := svc.HandleUpdate(context.Background(), paymentUpdate(tgUser(10, "alice"), "ch-4", "premium_10"))

	require.Error(t, err)
	m.users.AssertNotCalled(t, "GrantPremium", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestGrantAndNotify_ReusesGiftNotification(t *testing.T) {
	svc, m := newTestService()

	m.users.On("GrantPremium", mock.Anything, int64(33)).Return(nil).Once()
	m.sender.On("SendText", int64(33), msgGiftReceived, (*telegram.InlineKeyboardMarkup)(nil)).Return(nil).Once()
	m.catalog.On("ListPremiumPodcasts", mock.Anything).Return([]*models.Podcast{}, nil).Once()

	err := svc.GrantAndNotify(context.Background(), 33)

	require.NoError(t, err)
	m.assertExpectations(t)
}
