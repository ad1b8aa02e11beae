package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/models"
)

// EnsureUser создаёт пользователя при первом обращении или обновляет его
// профиль и время последней активности. Признак полного доступа при
// обновлении не затрагивается.
func (s *Storage) EnsureUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.EnsureUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (id, username, first_name, last_name, joined_at, last_active)
			  VALUES ($1, $2, $3, $4, NOW(), NOW())
			  ON CONFLICT (id) DO UPDATE
			  SET username = EXCLUDED.username,
			      first_name = EXCLUDED.first_name,
			      last_name = EXCLUDED.last_name,
			      last_active = NOW()
			  RETURNING id, username, first_name, last_name, is_premium,
			      premium_granted_at, joined_at, last_active`
	row := s.DB.QueryRowContext(ctx, query,
		user.ID, user.Username, user.FirstName, user.LastName)
	return scanUser(row, op)
}

// GetUser возвращает пользователя по его идентификатору Telegram.
func (s *Storage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, username, first_name, last_name, is_premium,
			      premium_granted_at, joined_at, last_active
			  FROM users
			  WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)
	return scanUser(row, op)
}

// GetUserByUsername возвращает пользователя по username без учёта регистра.
// Найти можно только пользователя, который хотя бы раз обращался к боту.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, username, first_name, last_name, is_premium,
			      premium_granted_at, joined_at, last_active
			  FROM users
			  WHERE LOWER(username) = LOWER($1) AND username <> ''`
	row := s.DB.QueryRowContext(ctx, query, username)
	return scanUser(row, op)
}

// GrantPremium выдаёт пользователю полный доступ. Операция идемпотентна и
// монотонна: повторная выдача ничего не меняет, снятие доступа невозможно.
func (s *Storage) GrantPremium(ctx context.Context, id int64) error {
	const op = "storage.GrantPremium"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET is_premium = TRUE,
			      premium_granted_at = COALESCE(premium_granted_at, NOW()),
			      last_active = NOW()
			  WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// ListUserIDs возвращает идентификаторы всех пользователей бота.
func (s *Storage) ListUserIDs(ctx context.Context) ([]int64, error) {
	const op = "storage.ListUserIDs"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountUsers возвращает общее число пользователей и число пользователей
// с полным доступом.
func (s *Storage) CountUsers(ctx context.Context) (total int, premium int, err error) {
	const op = "storage.CountUsers"
	select {
	case <-ctx.Done():
		return 0, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_premium) FROM users`
	if err := s.DB.QueryRowContext(ctx, query).Scan(&total, &premium); err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, premium, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, op string) (*models.User, error) {
	u := &models.User{}
	var premiumGrantedAt sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName,
		&u.IsPremium, &premiumGrantedAt, &u.JoinedAt, &u.LastActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if premiumGrantedAt.Valid {
		u.PremiumGrantedAt = &premiumGrantedAt.Time
	}
	return u, nil
}
