// Package catalog — service.go содержит бизнес-логику каталога.
package catalog

import (
	"context"
)

// Store — операции каталога, нужные сервису. Реализуется *Repository.
type Store interface {
	GetEpisode(ctx context.Context, episodeID int64) (*Episode, error)
	GetProduct(ctx context.Context, productID int64) (*Product, error)
	ListEpisodes(ctx context.Context, productID int64) ([]*Episode, error)
	HasReadProduct(ctx context.Context, userID, productID int64) (bool, error)
	MarkRead(ctx context.Context, userID, productID, episodeID int64) error
}

// Service отдаёт данные каталога остальным модулям.
type Service struct {
	store Store
}

// NewService создаёт сервис каталога.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetEpisode возвращает эпизод по ID.
func (s *Service) GetEpisode(ctx context.Context, episodeID int64) (*Episode, error) {
	return s.store.GetEpisode(ctx, episodeID)
}

// GetProduct возвращает произведение по ID.
func (s *Service) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	return s.store.GetProduct(ctx, productID)
}

// ListEpisodes возвращает эпизоды произведения.
func (s *Service) ListEpisodes(ctx context.Context, productID int64) ([]*Episode, error) {
	return s.store.ListEpisodes(ctx, productID)
}

// IsFirstVisit сообщает, является ли пользователь новым читателем произведения.
func (s *Service) IsFirstVisit(ctx context.Context, userID, productID int64) (bool, error) {
	read, err := s.store.HasReadProduct(ctx, userID, productID)
	if err != nil {
		return false, err
	}
	return !read, nil
}

// MarkRead отмечает чтение эпизода.
func (s *Service) MarkRead(ctx context.Context, userID, productID, episodeID int64) error {
	return s.store.MarkRead(ctx, userID, productID, episodeID)
}
