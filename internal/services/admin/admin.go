// Package admin содержит бизнес-логику админ-панели: авторизацию,
// управление каталогом, агрегированную статистику, ручную выдачу доступа
// и рассылку объявлений.
package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/jwt"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/password"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/lib/sl"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/models"
	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/telegram"
)

// UserRepository определяет методы работы с пользователями, нужные админке.
type UserRepository interface {
	CountUsers(ctx context.Context) (total int, premium int, err error)
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// CatalogRepository определяет методы управления каталогом подкастов.
type CatalogRepository interface {
	CreatePodcast(ctx context.Context, podcast models.Podcast) (int64, error)
	UpdatePodcast(ctx context.Context, podcast models.Podcast, id int64) (int, error)
	RemovePodcast(ctx context.Context, id int64) (int, error)
	ListPodcasts(ctx context.Context) ([]*models.Podcast, error)
	CountPodcasts(ctx context.Context) (total int, premium int, err error)
}

// CatalogCache инвалидирует кешированные ответы каталога после изменений.
type CatalogCache interface {
	Invalidate(key string) error
}

// PaymentLedger определяет чтение журнала платежей для статистики.
type PaymentLedger interface {
	SumRevenue(ctx context.Context) (int, error)
}

// Granter выдаёт полный доступ и уведомляет получателя. Реализуется сервисом
// бота, чтобы ручная выдача проходила через тот же код, что и оплаченная.
type Granter interface {
	GrantAndNotify(ctx context.Context, userID int64) error
}

// Announcer ставит текстовые сообщения в очередь доставки.
type Announcer interface {
	SendText(chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
}

// Service реализует операции админ-панели.
type Service struct {
	users    UserRepository
	catalog  CatalogRepository
	cache    CatalogCache
	ledger   PaymentLedger
	granter  Granter
	sender   Announcer
	jwtMaker jwt.Maker
	username string
	passHash string
	log      *slog.Logger
}

// New создает новый Service админ-панели.
func New(users UserRepository, catalog CatalogRepository, cache CatalogCache,
	ledger PaymentLedger, granter Granter, sender Announcer, jwtMaker jwt.Maker,
	username, passHash string, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		catalog:  catalog,
		cache:    cache,
		ledger:   ledger,
		granter:  granter,
		sender:   sender,
		jwtMaker: jwtMaker,
		username: username,
		passHash: passHash,
		log:      log,
	}
}

// Login проверяет учётные данные администратора и возвращает JWT.
func (s *Service) Login(ctx context.Context, username, pass string) (string, error) {
	const op = "services.admin.Login"

	if username != s.username {
		return "", fmt.Errorf("%s: invalid credentials", op)
	}
	if err := password.CompareHash(s.passHash, pass); err != nil {
		return "", fmt.Errorf("%s: invalid credentials", op)
	}
	token, err := s.jwtMaker.GenerateToken(username)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// CreatePodcast добавляет подкаст в каталог и возвращает его идентификатор.
func (s *Service) CreatePodcast(ctx context.Context, podcast models.Podcast) (int64, error) {
	const op = "services.admin.CreatePodcast"

	id, err := s.catalog.CreatePodcast(ctx, podcast)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateCatalogCache(id)
	return id, nil
}

// invalidateCatalogCache сбрасывает кешированный список каталога и запись
// подкаста. Ошибка кеша не прерывает операцию.
func (s *Service) invalidateCatalogCache(id int64) {
	for _, key := range []string{"podcasts:list", fmt.Sprintf("podcast:%d", id)} {
		if err := s.cache.Invalidate(key); err != nil {
			s.log.Warn("failed to invalidate catalog cache",
				slog.String("key", key), sl.Err(err))
		}
	}
}

// UpdatePodcast изменяет существующий подкаст и возвращает число затронутых строк.
func (s *Service) UpdatePodcast(ctx context.Context, podcast models.Podcast, id int64) (int, error) {
	const op = "services.admin.UpdatePodcast"

	count, err := s.catalog.UpdatePodcast(ctx, podcast, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateCatalogCache(id)
	return count, nil
}

// RemovePodcast удаляет подкаст из каталога и возвращает число затронутых строк.
func (s *Service) RemovePodcast(ctx context.Context, id int64) (int, error) {
	const op = "services.admin.RemovePodcast"

	count, err := s.catalog.RemovePodcast(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateCatalogCache(id)
	return count, nil
}

// ListPodcasts возвращает весь каталог.
func (s *Service) ListPodcasts(ctx context.Context) ([]*models.Podcast, error) {
	const op = "services.admin.ListPodcasts"

	podcasts, err := s.catalog.ListPodcasts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return podcasts, nil
}

// Stats собирает агрегированные показатели: аудиторию, каталог, выручку и
// конверсию в покупку.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	const op = "services.admin.Stats"

	totalUsers, premiumUsers, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	totalPodcasts, premiumPodcasts, err := s.catalog.CountPodcasts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	revenue, err := s.ledger.SumRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats := &models.Stats{
		TotalUsers:      totalUsers,
		PremiumUsers:    premiumUsers,
		TotalPodcasts:   totalPodcasts,
		FreePodcasts:    totalPodcasts - premiumPodcasts,
		PremiumPodcasts: premiumPodcasts,
		TotalRevenue:    revenue,
	}
	if totalUsers > 0 {
		stats.ConversionRate = float64(premiumUsers) / float64(totalUsers) * 100
	}
	return stats, nil
}

// GrantPremium вручную выдаёт полный доступ пользователю. Выдача и
// уведомление идут тем же путём, что и при оплаченном подарке.
func (s *Service) GrantPremium(ctx context.Context, userID int64) error {
	const op = "services.admin.GrantPremium"

	if err := s.granter.GrantAndNotify(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Broadcast ставит объявление в очередь доставки для всех пользователей и
// возвращает число адресатов. Темп отправки ограничивает воркер доставки.
func (s *Service) Broadcast(ctx context.Context, text string) (int, error) {
	const op = "services.admin.Broadcast"

	ids, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	enqueued := 0
	for _, id := range ids {
		if err := s.sender.SendText(id, text, nil); err != nil {
			s.log.Error("failed to enqueue broadcast message",
				slog.Int64("user_id", id), sl.Err(err))
			continue
		}
		enqueued++
	}
	return enqueued, nil
}
