package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/giftsession"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/sl"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/models"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/storage"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/telegram"
)

// SettlePayment проводит завершённый платёж. Сначала платёж фиксируется в
// журнале: повтор доставки того же charge id молча поглощается, потому что
// права уже были выданы первой доставкой. Затем payload счёта разбирается в
// назначение платежа, и доступ выдаётся покупателю или получателю подарка.
// Права в хранилище выдаются раньше, чем уходят уведомления: упавшая отправка
// не должна оставить оплатившего пользователя без доступа.
func (s *BotService) SettlePayment(ctx context.Context, payerID, chatID int64, payment *telegram.SuccessfulPayment) error {
	const op = "services.bot.SettlePayment"

	err := s.ledger.AppendPayment(ctx, models.Payment{
		TelegramChargeID: payment.TelegramPaymentChargeID,
		PayerID:          payerID,
		Amount:           payment.TotalAmount,
		Currency:         payment.Currency,
		Status:           "completed",
		Payload:          payment.InvoicePayload,
		SettledAt:        time.Now(),
	})
	if errors.Is(err, storage.ErrDuplicatePayment) {
		s.log.Info("duplicate payment delivery absorbed",
			slog.String("charge_id", payment.TelegramPaymentChargeID),
			slog.Int64("payer_id", payerID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	purpose, err := models.ParsePaymentPurpose(payment.InvoicePayload)
	if err != nil {
		s.log.Error("payment payload is not parseable",
			slog.String("charge_id", payment.TelegramPaymentChargeID),
			sl.Err(err))
		if serr := s.sendText(chatID, msgPaymentUnmatched, nil); serr != nil {
			s.log.Error("failed to notify payer about unmatched payment", sl.Err(serr))
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	switch purpose.Kind {
	case models.PurposeSelfPurchase:
		return s.settleSelfPurchase(ctx, payerID, chatID)
	case models.PurposeGift:
		return s.settleGift(ctx, chatID, purpose.SessionID)
	default:
		return fmt.Errorf("%s: unknown purpose kind %q", op, purpose.Kind)
	}
}

func (s *BotService) settleSelfPurchase(ctx context.Context, payerID, chatID int64) error {
	const op = "services.bot.settleSelfPurchase"

	if err := s.users.GrantPremium(ctx, payerID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.sendText(chatID, msgPaymentSuccess, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.deliverPremiumCollection(ctx, chatID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// settleGift завершает сессию подарка. Отсутствие сессии — жёсткая ошибка:
// платёж остаётся в журнале, но доступ на догадках не выдаётся, и менее
// всего — самому плательщику.
func (s *BotService) settleGift(ctx context.Context, senderChatID int64, sessionID string) error {
	const op = "services.bot.settleGift"

	session, err := s.gifts.Complete(ctx, sessionID)
	if errors.Is(err, giftsession.ErrSessionNotFound) {
		if serr := s.sendText(senderChatID, msgPaymentUnmatched, nil); serr != nil {
			s.log.Error("failed to notify sender about expired gift session", sl.Err(serr))
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.GrantPremium(ctx, session.RecipientID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.sendText(session.RecipientID, msgGiftReceived, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.deliverPremiumCollection(ctx, session.RecipientID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	confirmation := strings.ReplaceAll(msgGiftSuccessSender, "{username}", session.RecipientUsername)
	if err := s.sendText(senderChatID, confirmation, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// deliverPremiumCollection ставит в очередь всю премиум-коллекцию с защитой
// контента. Темп фактической отправки ограничивает воркер доставки.
func (s *BotService) deliverPremiumCollection(ctx context.Context, chatID int64) error {
	const op = "services.bot.deliverPremiumCollection"

	podcasts, err := s.catalog.ListPremiumPodcasts(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, p := range podcasts {
		caption := fmt.Sprintf("🎧 %s\n\n%s", p.Title, p.Description)
		if err := s.sender.SendAudio(chatID, p.AudioURL, caption, true); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// GrantAndNotify выдаёт полный доступ вручную и отправляет получателю то же
// уведомление, что и при оплаченном подарке. Используется админ-панелью.
func (s *BotService) GrantAndNotify(ctx context.Context, userID int64) error {
	const op = "services.bot.GrantAndNotify"

	if err := s.users.GrantPremium(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.sendText(userID, msgGiftReceived, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.deliverPremiumCollection(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
