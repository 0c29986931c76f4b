// Package catalog — repository.go выполняет операции с таблицами
// products, episodes и product_read_log.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
)

// Repository предоставляет методы чтения каталога.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий каталога.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetEpisode возвращает эпизод по ID.
func (r *Repository) GetEpisode(ctx context.Context, episodeID int64) (*Episode, error) {
	query := `
		SELECT id, product_id, seq, title, price_type, created_at
		FROM episodes
		WHERE id = $1
	`
	var e Episode
	err := r.db.QueryRow(ctx, query, episodeID).Scan(
		&e.ID, &e.ProductID, &e.Seq, &e.Title, &e.PriceType, &e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrEpisodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения эпизода: %w", err)
	}
	return &e, nil
}

// GetProduct возвращает произведение по ID.
func (r *Repository) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	query := `
		SELECT id, title, author_id, cp_yn, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	var p Product
	err := r.db.QueryRow(ctx, query, productID).Scan(
		&p.ID, &p.Title, &p.AuthorID, &p.CPYN, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения произведения: %w", err)
	}
	return &p, nil
}

// ListEpisodes возвращает все эпизоды произведения в порядке публикации.
func (r *Repository) ListEpisodes(ctx context.Context, productID int64) ([]*Episode, error) {
	query := `
		SELECT id, product_id, seq, title, price_type, created_at
		FROM episodes
		WHERE product_id = $1
		ORDER BY seq ASC
	`
	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения эпизодов: %w", err)
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		var e Episode
		if err := rows.Scan(&e.ID, &e.ProductID, &e.Seq, &e.Title, &e.PriceType, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования эпизода: %w", err)
		}
		episodes = append(episodes, &e)
	}
	return episodes, rows.Err()
}

// HasReadProduct проверяет, читал ли пользователь хоть один эпизод произведения.
func (r *Repository) HasReadProduct(ctx context.Context, userID, productID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM product_read_log
			WHERE user_id = $1 AND product_id = $2
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, userID, productID).Scan(&exists)
	return exists, err
}

// MarkRead отмечает чтение эпизода. Повторные чтения того же эпизода
// не создают дублей.
func (r *Repository) MarkRead(ctx context.Context, userID, productID, episodeID int64) error {
	query := `
		INSERT INTO product_read_log (user_id, product_id, episode_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, episode_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, userID, productID, episodeID)
	if err != nil {
		return fmt.Errorf("ошибка записи лога чтения: %w", err)
	}
	return nil
}
