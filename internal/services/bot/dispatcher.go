package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/giftsession"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/sl"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/models"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/telegram"
)

// HandleUpdate классифицирует одно входящее обновление и направляет его
// нужному обработчику. Обновления одного пользователя обрабатываются
// строго последовательно; порядок между разными пользователями не
// гарантируется.
func (s *BotService) HandleUpdate(ctx context.Context, update telegram.Update) error {
	const op = "services.bot.HandleUpdate"

	switch {
	case update.PreCheckoutQuery != nil:
		// Ответ обязан уйти немедленно: Telegram отменяет транзакцию,
		// не дождавшись подтверждения. Никакого I/O до ответа.
		return s.handlePreCheckout(update.PreCheckoutQuery)
	case update.CallbackQuery != nil:
		return s.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		return s.handleMessage(ctx, update.Message)
	default:
		s.log.Info("ignored update without payload", slog.Int("update_id", update.UpdateID))
		return nil
	}
}

func (s *BotService) handlePreCheckout(query *telegram.PreCheckoutQuery) error {
	const op = "services.bot.handlePreCheckout"
	if err := s.api.AnswerPreCheckoutQuery(query.ID, true, ""); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("pre-checkout approved",
		slog.String("query_id", query.ID),
		slog.Int64("user_id", query.From.ID))
	return nil
}

func (s *BotService) handleMessage(ctx context.Context, msg *telegram.Message) error {
	const op = "services.bot.handleMessage"
	if msg.From == nil || msg.Chat == nil {
		return nil
	}

	lock := s.locks.forUser(msg.From.ID)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.ensureUser(ctx, msg.From)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	chatID := msg.Chat.ID

	if msg.SuccessfulPayment != nil {
		return s.SettlePayment(ctx, msg.From.ID, chatID, msg.SuccessfulPayment)
	}

	switch msg.Text {
	case "/start":
		return s.handleStart(ctx, chatID)
	case "/podcasts", "Подкасты":
		return s.handlePodcastsList(ctx, chatID, user)
	case "/help", "Помощь":
		return s.handleHelp(chatID)
	default:
		return s.handleFreeText(ctx, chatID, user, msg.Text)
	}
}

func (s *BotService) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) error {
	const op = "services.bot.handleCallback"
	if cb.From == nil {
		return nil
	}

	// Нажатие подтверждается всегда, даже если обработчик упал или
	// исходное сообщение недоступно: иначе у пользователя зависает
	// индикатор загрузки на кнопке.
	defer func() {
		if err := s.api.AnswerCallbackQuery(cb.ID); err != nil {
			s.log.Error("failed to answer callback query", sl.Err(err))
		}
	}()

	// Telegram не присылает исходное сообщение, если оно недоступно
	// или старше 48 часов; обработать такое нажатие уже нельзя.
	if cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}

	lock := s.locks.forUser(cb.From.ID)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.ensureUser(ctx, cb.From)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	chatID := cb.Message.Chat.ID

	switch {
	case cb.Data == actionBuyPremium:
		return s.handleBuyPremium(ctx, chatID, user.ID)
	case cb.Data == actionGiftPremium:
		return s.handleGiftPremium(ctx, chatID, user.ID)
	case cb.Data == actionTryFree:
		return s.handleTryFree(ctx, chatID)
	case strings.HasPrefix(cb.Data, actionPodcastPrefix):
		podcastID, perr := strconv.ParseInt(strings.TrimPrefix(cb.Data, actionPodcastPrefix), 10, 64)
		if perr != nil {
			return s.sendText(chatID, msgPodcastNotFound, nil)
		}
		return s.handlePodcastRequest(ctx, chatID, user, podcastID)
	default:
		s.log.Info("ignored unknown callback action", slog.String("data", cb.Data))
		return nil
	}
}

// handleFreeText обрабатывает произвольный текст: если у пользователя есть
// сессия подарка в ожидании username, текст трактуется как username
// получателя, иначе бот отвечает подсказкой.
func (s *BotService) handleFreeText(ctx context.Context, chatID int64, user *models.User, text string) error {
	const op = "services.bot.handleFreeText"

	_, err := s.gifts.GetWaiting(ctx, user.ID)
	switch {
	case err == nil:
		return s.handleGiftUsernameInput(ctx, chatID, user.ID, text)
	case errors.Is(err, giftsession.ErrSessionNotFound):
		return s.sendText(chatID, msgUnknownCommand, nil)
	default:
		// Сбой хранилища сессий — не повод отвечать "команда не понята":
		// пользователь мог быть в середине оформления подарка.
		s.log.Error("failed to read gift session", slog.Int64("user_id", user.ID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
}

// ensureUser гарантирует, что отправитель существует в хранилище, до запуска
// любого обработчика.
func (s *BotService) ensureUser(ctx context.Context, from *telegram.User) (*models.User, error) {
	return s.users.EnsureUser(ctx, models.User{
		ID:        from.ID,
		Username:  from.Username,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	})
}

func (s *BotService) sendText(chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error {
	if err := s.sender.SendText(chatID, text, keyboard); err != nil {
		s.log.Error("failed to enqueue text", slog.Int64("chat_id", chatID), sl.Err(err))
		return err
	}
	return nil
}
