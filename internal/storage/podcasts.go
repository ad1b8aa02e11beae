package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/sleepy-podcast-bot/internal/models"
)

// CreatePodcast вставляет новую запись каталога и возвращает её ID.
func (s *Storage) CreatePodcast(ctx context.Context, podcast models.Podcast) (int64, error) {
	const op = "storage.CreatePodcast"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO podcasts (title, description, audio_url, is_premium, duration)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var newID int64
	err := s.DB.QueryRowContext(ctx, query,
		podcast.Title, podcast.Description, podcast.AudioURL, podcast.IsPremium,
		podcast.Duration).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// UpdatePodcast обновляет запись каталога по ID и возвращает количество
// изменённых строк.
func (s *Storage) UpdatePodcast(ctx context.Context, podcast models.Podcast, id int64) (int, error) {
	const op = "storage.UpdatePodcast"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE podcasts
			  SET title = $1, description = $2, audio_url = $3, is_premium = $4, duration = $5
			  WHERE id = $6`
	result, err := s.DB.ExecContext(ctx, query,
		podcast.Title, podcast.Description, podcast.AudioURL, podcast.IsPremium,
		podcast.Duration, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// RemovePodcast удаляет запись каталога по ID и возвращает количество
// удалённых строк.
func (s *Storage) RemovePodcast(ctx context.Context, id int64) (int, error) {
	const op = "storage.RemovePodcast"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM podcasts WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ReadPodcast возвращает запись каталога по её ID.
func (s *Storage) ReadPodcast(ctx context.Context, id int64) (*models.Podcast, error) {
	const op = "storage.ReadPodcast"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, title, description, audio_url, is_premium, duration, created_at
			  FROM podcasts WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var result models.Podcast
	if err := row.Scan(&result.ID, &result.Title, &result.Description, &result.AudioURL,
		&result.IsPremium, &result.Duration, &result.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrPodcastNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// ListPodcasts возвращает все записи каталога в порядке добавления.
func (s *Storage) ListPodcasts(ctx context.Context) ([]*models.Podcast, error) {
	const op = "storage.ListPodcasts"
	return s.listPodcasts(ctx, op,
		`SELECT id, title, description, audio_url, is_premium, duration, created_at
		 FROM podcasts ORDER BY id`)
}

// ListPremiumPodcasts возвращает все премиум-записи каталога.
func (s *Storage) ListPremiumPodcasts(ctx context.Context) ([]*models.Podcast, error) {
	const op = "storage.ListPremiumPodcasts"
	return s.listPodcasts(ctx, op,
		`SELECT id, title, description, audio_url, is_premium, duration, created_at
		 FROM podcasts WHERE is_premium ORDER BY id`)
}

// FirstFreePodcast возвращает первый бесплатный подкаст каталога.
// Если бесплатных подкастов нет, возвращает ErrPodcastNotFound.
func (s *Storage) FirstFreePodcast(ctx context.Context) (*models.Podcast, error) {
	const op = "storage.FirstFreePodcast"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, title, description, audio_url, is_premium, duration, created_at
			  FROM podcasts WHERE NOT is_premium ORDER BY id LIMIT 1`
	row := s.DB.QueryRowContext(ctx, query)

	var result models.Podcast
	if err := row.Scan(&result.ID, &result.Title, &result.Description, &result.AudioURL,
		&result.IsPremium, &result.Duration, &result.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrPodcastNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// CountPodcasts возвращает общее число подкастов и число премиум-подкастов.
func (s *Storage) CountPodcasts(ctx context.Context) (total int, premium int, err error) {
	const op = "storage.CountPodcasts"
	select {
	case <-ctx.Done():
		return 0, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_premium) FROM podcasts`
	if err := s.DB.QueryRowContext(ctx, query).Scan(&total, &premium); err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, premium, nil
}

func (s *Storage) listPodcasts(ctx context.Context, op, query string) ([]*models.Podcast, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Podcast
	for rows.Next() {
		var item models.Podcast
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.AudioURL,
			&item.IsPremium, &item.Duration, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
