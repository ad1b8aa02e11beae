package delivery

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/telegram"
)

type MockBotAPI struct {
	mock.Mock
}

func (m *MockBotAPI) SendMessage(req telegram.SendMessageRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func (m *MockBotAPI) SendAudio(req telegram.SendAudioRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func (m *MockBotAPI) SendInvoice(req telegram.SendInvoiceRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestWorker(bot BotAPI) *Worker {
	return NewWorker(bot, 1000, 1000, newNoopLogger())
}

func marshal(t *testing.T, msg Message) []byte {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return data
}

func TestWorker_Handle(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*MockBotAPI)
	}{
		{
			name: "text message delivered",
			setupMocks: func(bot *MockBotAPI) {
				bot.On("SendMessage", mock.MatchedBy(func(req telegram.SendMessageRequest) bool {
					return req.ChatID == 10 && req.Text == "привет"
				})).Return(nil).Once()
			},
		},
		{
			name: "audio delivered with protection",
			setupMocks: func(bot *MockBotAPI) {
				bot.On("SendAudio", mock.MatchedBy(func(req telegram.SendAudioRequest) bool {
					return req.ChatID == 10 && req.Audio == "https://cdn/ocean.mp3" && req.ProtectContent
				})).Return(nil).Once()
			},
		},
		{
			name: "invoice delivered in stars",
			setupMocks: func(bot *MockBotAPI) {
				bot.On("SendInvoice", mock.MatchedBy(func(req telegram.SendInvoiceRequest) bool {
					return req.ChatID == 10 && req.Currency == "XTR" &&
						len(req.Prices) == 1 && req.Prices[0].Amount == 599
				})).Return(nil).Once()
			},
		},
	}

	bodies := [][]byte{
		marshal(t, Message{Kind: KindText, ChatID: 10, Text: "привет"}),
		marshal(t, Message{Kind: KindAudio, ChatID: 10, AudioURL: "https://cdn/ocean.mp3", Protect: true}),
		marshal(t, Message{Kind: KindInvoice, ChatID: 10, Invoice: &Invoice{
			Title: "Доступ", Description: "Навсегда", Payload: "p", PriceStars: 599,
		}}),
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := new(MockBotAPI)
			tt.setupMocks(bot)

			err := newTestWorker(bot).Handle(bodies[i])

			require.NoError(t, err)
			bot.AssertExpectations(t)
		})
	}
}

func TestWorker_HandleMalformedBody(t *testing.T) {
	bot := new(MockBotAPI)

	err := newTestWorker(bot).Handle([]byte("{broken"))

	// Неразборное сообщение не возвращается в очередь.
	require.NoError(t, err)
	bot.AssertNotCalled(t, "SendMessage", mock.Anything)
}

func TestWorker_HandleSendFailureIsNotRequeued(t *testing.T) {
	bot := new(MockBotAPI)
	bot.On("SendMessage", mock.Anything).Return(errors.New("chat not found")).Once()

	body := marshal(t, Message{Kind: KindText, ChatID: 404, Text: "привет"})
	err := newTestWorker(bot).Handle(body)

	assert.NoError(t, err)
	bot.AssertExpectations(t)
}

func TestWorker_HandleUnknownKind(t *testing.T) {
	bot := new(MockBotAPI)

	body := marshal(t, Message{Kind: "sticker", ChatID: 10})
	err := newTestWorker(bot).Handle(body)

	require.NoError(t, err)
	bot.AssertNotCalled(t, "SendMessage", mock.Anything)
	bot.AssertNotCalled(t, "SendAudio", mock.Anything)
	bot.AssertNotCalled(t, "SendInvoice", mock.Anything)
}
