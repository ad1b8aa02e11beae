// Package telegram реализует минимальный клиент Telegram Bot API,
// покрывающий нужды бота: отправку сообщений, аудио и счетов,
// подтверждение pre-checkout запросов и нажатий кнопок.
package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiBase = "https://api.telegram.org/bot"

// Client клиент Telegram Bot API.
type Client struct {
	token      string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент Bot API с заданным токеном.
func NewClient(token string, timeout time.Duration) *Client {
	return &Client{
		token:  token,
		apiURL: apiBase + token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type apiResponse struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

func (c *Client) call(method string, body any) error {
	const op = "telegram.call"
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Post(c.apiURL+"/"+method, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !apiResp.Ok {
		return fmt.Errorf("%s: api error %d: %s", op, apiResp.ErrorCode, apiResp.Description)
	}
	return nil
}

// SendMessage отправляет текстовое сообщение. ParseMode по умолчанию HTML.
func (c *Client) SendMessage(req SendMessageRequest) error {
	if req.ParseMode == "" {
		req.ParseMode = "HTML"
	}
	return c.call("sendMessage", req)
}

// SendAudio отправляет аудиофайл по ссылке.
func (c *Client) SendAudio(req SendAudioRequest) error {
	if req.ParseMode == "" {
		req.ParseMode = "HTML"
	}
	return c.call("sendAudio", req)
}

// SendInvoice выставляет счёт в Telegram Stars.
func (c *Client) SendInvoice(req SendInvoiceRequest) error {
	if req.Currency == "" {
		req.Currency = "XTR"
	}
	return c.call("sendInvoice", req)
}

// AnswerPreCheckoutQuery подтверждает или отклоняет pre-checkout запрос.
// Telegram отменяет транзакцию, если ответ не придёт в течение 10 секунд.
func (c *Client) AnswerPreCheckoutQuery(queryID string, ok bool, errorMessage string) error {
	return c.call("answerPreCheckoutQuery", AnswerPreCheckoutQueryRequest{
		PreCheckoutQueryID: queryID,
		Ok:                 ok,
		ErrorMessage:       errorMessage,
	})
}

// AnswerCallbackQuery подтверждает нажатие inline-кнопки, снимая индикатор
// загрузки у пользователя.
func (c *Client) AnswerCallbackQuery(callbackQueryID string) error {
	return c.call("answerCallbackQuery", AnswerCallbackQueryRequest{
		CallbackQueryID: callbackQueryID,
	})
}

// SetWebhook регистрирует webhook-адрес бота.
func (c *Client) SetWebhook(url, secretToken string) error {
	return c.call("setWebhook", SetWebhookRequest{
		URL:            url,
		SecretToken:    secretToken,
		AllowedUpdates: []string{"message", "callback_query", "pre_checkout_query"},
	})
}
