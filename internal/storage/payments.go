package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/models"
)

// AppendPayment добавляет запись о завершённом платеже в журнал.
// Журнал append-only с уникальным ключом по идентификатору платежа от
// Telegram: повторная доставка того же платежа возвращает
// ErrDuplicatePayment и ничего не меняет.
func (s *Storage) AppendPayment(ctx context.Context, payment models.Payment) error {
	const op = "storage.AppendPayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (telegram_charge_id, payer_id, amount, currency, status, payload, settled_at)
			  VALUES ($1, $2, $3, $4, $5, $6, NOW())
			  ON CONFLICT (telegram_charge_id) DO NOTHING`
	result, err := s.DB.ExecContext(ctx, query,
		payment.TelegramChargeID, payment.PayerID, payment.Amount, payment.Currency,
		payment.Status, payment.Payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrDuplicatePayment)
	}
	return nil
}

// SumRevenue возвращает суммарную выручку по журналу платежей в XTR.
func (s *Storage) SumRevenue(ctx context.Context) (int, error) {
	const op = "storage.SumRevenue"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'completed'`
	var total int
	if err := s.DB.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}

// ListPayments возвращает платежи пользователя в порядке поступления.
func (s *Storage) ListPayments(ctx context.Context, payerID int64) ([]*models.Payment, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT telegram_charge_id, payer_id, amount, currency, status, payload, settled_at
			  FROM payments
			  WHERE payer_id = $1
			  ORDER BY settled_at`
	rows, err := s.DB.QueryContext(ctx, query, payerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		var item models.Payment
		if err := rows.Scan(&item.TelegramChargeID, &item.PayerID, &item.Amount,
			&item.Currency, &item.Status, &item.Payload, &item.SettledAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
