package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/delivery"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/sl"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/models"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/storage"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/telegram"
)

// readPodcast возвращает подкаст по ID, используя кеш или хранилище.
func (s *BotService) readPodcast(ctx context.Context, id int64) (*models.Podcast, error) {
	const op = "services.bot.readPodcast"

	cacheKey := fmt.Sprintf("podcast:%d", id)
	var podcast *models.Podcast
	found, err := s.cache.Get(cacheKey, &podcast)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if found {
		return podcast, nil
	}

	podcast, err = s.catalog.ReadPodcast(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(cacheKey, podcast, time.Hour); err != nil {
		s.log.Warn("failed to cache podcast", slog.String("key", cacheKey), sl.Err(err))
	}
	return podcast, nil
}

// listPodcasts возвращает весь каталог, используя кеш или хранилище.
func (s *BotService) listPodcasts(ctx context.Context) ([]*models.Podcast, error) {
	const op = "services.bot.listPodcasts"

	const cacheKey = "podcasts:list"
	var podcasts []*models.Podcast
	found, err := s.cache.Get(cacheKey, &podcasts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if found {
		return podcasts, nil
	}

	podcasts, err = s.catalog.ListPodcasts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(cacheKey, podcasts, time.Hour); err != nil {
		s.log.Warn("failed to cache podcast list", slog.String("key", cacheKey), sl.Err(err))
	}
	return podcasts, nil
}

// handleStart приветствует пользователя, отдаёт первый бесплатный подкаст и
// предлагает полный доступ. Отсутствие бесплатного подкаста не ломает
// приветствие: шаг пропускается с записью в журнал.
func (s *BotService) handleStart(ctx context.Context, chatID int64) error {
	const op = "services.bot.handleStart"

	if err := s.sendText(chatID, msgWelcome, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	free, err := s.catalog.FirstFreePodcast(ctx)
	switch {
	case err == nil:
		if err := s.sender.SendAudio(chatID, free.AudioURL, msgFreePodcastCaption, false); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	case errors.Is(err, storage.ErrPodcastNotFound):
		s.log.Warn("catalog has no free podcast, skipping welcome audio",
			slog.Int64("chat_id", chatID))
	default:
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.sendText(chatID, msgOfferCollection, offerKeyboard()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// handlePodcastsList показывает весь каталог с отметками доступности.
// Пользователю без полного доступа дополнительно показывается предложение
// о покупке.
func (s *BotService) handlePodcastsList(ctx context.Context, chatID int64, user *models.User) error {
	const op = "services.bot.handlePodcastsList"

	podcasts, err := s.listPodcasts(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var b strings.Builder
	b.WriteString("🎧 Все подкасты:\n\n")
	rows := make([][]telegram.InlineKeyboardButton, 0, len(podcasts)+2)
	for _, p := range podcasts {
		label := "🎁"
		if p.IsPremium {
			label = "🔒"
			if user.IsPremium {
				label = "✨"
			}
		}
		fmt.Fprintf(&b, "%s %s (%s)\n", label, p.Title, p.Duration)
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s %s", label, p.Title),
			CallbackData: fmt.Sprintf("%s%d", actionPodcastPrefix, p.ID),
		}})
	}

	if user.IsPremium {
		b.WriteString("\n✨ У вас полный доступ ко всей коллекции!")
		return s.sendText(chatID, b.String(), &telegram.InlineKeyboardMarkup{InlineKeyboard: rows})
	}

	b.WriteString("\n" + msgUpsell)
	rows = append(rows,
		[]telegram.InlineKeyboardButton{{Text: "✨ Полный доступ (599 ⭐)", CallbackData: actionBuyPremium}},
		[]telegram.InlineKeyboardButton{{Text: "🎁 Подарить доступ", CallbackData: actionGiftPremium}},
	)
	return s.sendText(chatID, b.String(), &telegram.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (s *BotService) handleHelp(chatID int64) error {
	return s.sendText(chatID, msgHelp, nil)
}

// handlePodcastRequest выдаёт конкретный подкаст с проверкой прав. Для
// премиум-подкаста без доступа бот не раскрывает ссылку на аудио.
func (s *BotService) handlePodcastRequest(ctx context.Context, chatID int64, user *models.User, podcastID int64) error {
	const op = "services.bot.handlePodcastRequest"

	podcast, err := s.readPodcast(ctx, podcastID)
	if errors.Is(err, storage.ErrPodcastNotFound) {
		return s.sendText(chatID, msgPodcastNotFound, nil)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if podcast.IsPremium && !user.IsPremium {
		return s.sendText(chatID, msgPremiumRequired, offerKeyboard())
	}

	caption := fmt.Sprintf("🎧 %s\n\n%s", podcast.Title, podcast.Description)
	if err := s.sender.SendAudio(chatID, podcast.AudioURL, caption, podcast.IsPremium); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// handleTryFree отдаёт первый бесплатный подкаст по кнопке.
func (s *BotService) handleTryFree(ctx context.Context, chatID int64) error {
	const op = "services.bot.handleTryFree"

	free, err := s.catalog.FirstFreePodcast(ctx)
	if errors.Is(err, storage.ErrPodcastNotFound) {
		return s.sendText(chatID, msgNoFreePodcasts, offerKeyboard())
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.sender.SendAudio(chatID, free.AudioURL, msgFreePodcastCaption, false); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// handleBuyPremium выставляет счёт на покупку полного доступа для себя.
func (s *BotService) handleBuyPremium(ctx context.Context, chatID, userID int64) error {
	const op = "services.bot.handleBuyPremium"

	invoice := delivery.Invoice{
		Title:       invoiceTitleSelf,
		Description: invoiceDescriptionSelf,
		Payload:     models.SelfPurchase(userID).Encode(),
		PriceStars:  s.price,
	}
	if err := s.sender.SendInvoice(chatID, invoice); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// handleGiftPremium начинает сценарий подарка: бот переводит отправителя в
// режим ожидания username получателя. Повторное нажатие перезапускает
// сценарий заново.
func (s *BotService) handleGiftPremium(ctx context.Context, chatID, userID int64) error {
	const op = "services.bot.handleGiftPremium"

	if _, err := s.gifts.Begin(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.sendText(chatID, msgAskGiftUsername, nil)
}

// handleGiftUsernameInput обрабатывает введённый username получателя подарка.
// Пустой ввод переспрашивает, незнакомый username завершает сценарий,
// найденный получатель фиксируется в сессии, и отправителю уходит счёт.
func (s *BotService) handleGiftUsernameInput(ctx context.Context, chatID, senderID int64, text string) error {
	const op = "services.bot.handleGiftUsernameInput"

	username := strings.TrimPrefix(strings.TrimSpace(text), "@")
	if username == "" {
		return s.sendText(chatID, msgGiftUsernameEmpty, nil)
	}

	recipient, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrUserNotFound) {
		if cerr := s.gifts.ClearWaiting(ctx, senderID); cerr != nil {
			s.log.Error("failed to clear gift waiting state", sl.Err(cerr))
		}
		return s.sendText(chatID, msgGiftUsernameNotFound, nil)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.gifts.Resolve(ctx, senderID, username, recipient.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	notice := strings.ReplaceAll(msgGiftInvoiceSent, "{username}", username)
	if err := s.sendText(chatID, notice, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	invoice := delivery.Invoice{
		Title:       fmt.Sprintf("Подарок для @%s", username),
		Description: invoiceDescriptionSelf,
		Payload:     models.GiftPurchase(session.ID).Encode(),
		PriceStars:  s.price,
	}
	if err := s.sender.SendInvoice(chatID, invoice); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
