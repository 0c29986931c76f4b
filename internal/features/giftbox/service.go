// Package giftbox — service.go содержит бизнес-логику подарочного конвейера.
// Все пути выдачи (события, квесты, акции, админ) проходят через Issue,
// чтобы срок действия, состояние получения и аудит жили в одном месте.
package giftbox

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/wallet"
)

// Store — операции хранилища подарков. Реализуется *Repository.
type Store interface {
	Issue(ctx context.Context, spec IssueSpec) (int64, error)
	GetByID(ctx context.Context, giftID int64) (*GiftEntry, error)
	Receive(ctx context.Context, giftID, userID int64, now, deadline time.Time) (*GiftEntry, error)
	ListPending(ctx context.Context, userID int64, notBefore time.Time) ([]*GiftEntry, error)
	ListLog(ctx context.Context, userID int64, limit int) ([]*GiftLog, error)
	MarkExpired(ctx context.Context, deadline time.Time) (int64, error)
}

// Notifier — push-уведомления. Сбои не фатальны для бизнес-операции.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, body string)
}

// Service управляет подарочным конвейером.
type Service struct {
	store        Store
	notifier     Notifier
	validityDays int
	now          func() time.Time
}

// NewService создаёт сервис подарков. notifier может быть nil.
func NewService(store Store, notifier Notifier, validityDays int) *Service {
	return &Service{
		store:        store,
		notifier:     notifier,
		validityDays: validityDays,
		now:          time.Now,
	}
}

// SetClock подменяет источник времени (для тестов).
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Issue выдаёт подарок. Проверки:
//   - скоуп-триплет корректен (product_id NULL при заданном episode_id запрещён)
//   - количество положительное
//   - own_type и ticket_type из допустимых множеств
func (s *Service) Issue(ctx context.Context, spec IssueSpec) (int64, error) {
	if !spec.Scope.Valid() {
		return 0, common.ErrInvalidScope
	}
	if spec.Amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	if spec.OwnType != wallet.OwnTypeOwn && spec.OwnType != wallet.OwnTypeRental {
		return 0, fmt.Errorf("неизвестный own_type %q", spec.OwnType)
	}
	if spec.TicketType != wallet.TicketPaid && spec.TicketType != wallet.TicketComped {
		return 0, fmt.Errorf("неизвестный ticket_type %q", spec.TicketType)
	}

	giftID, err := s.store.Issue(ctx, spec)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"gift":        giftID,
		"user":        spec.UserID,
		"acquisition": spec.AcquisitionType,
		"amount":      spec.Amount,
	}).Info("Подарок выдан")

	// Уведомление — fire-and-forget, сбой не трогает бизнес-операцию
	if s.notifier != nil {
		s.notifier.Notify(ctx, spec.UserID, "Подарок в ящике",
			fmt.Sprintf("Вам выдано: %s (%s)", common.FormatTickets(int64(spec.Amount)), spec.Reason))
	}
	return giftID, nil
}

// Receive получает подарок: после проверок материализует amount
// инструментов. Неудачное получение оставляет received_yn='N'.
func (s *Service) Receive(ctx context.Context, giftID, userID int64) (*GiftEntry, error) {
	g, err := s.store.GetByID(ctx, giftID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	deadline := g.ExpiresAt(s.validityDays)
	// Репозиторий повторит проверки под блокировкой строки
	return s.store.Receive(ctx, giftID, userID, now, deadline)
}

// IssueAndReceive — автовыдача: подарок выдаётся и немедленно получается.
// Используется хуками акций, когда билет должен быть применим сразу
// (например free-for-first при первом чтении).
func (s *Service) IssueAndReceive(ctx context.Context, spec IssueSpec) error {
	giftID, err := s.Issue(ctx, spec)
	if err != nil {
		return err
	}
	_, err = s.Receive(ctx, giftID, spec.UserID)
	return err
}

// ListPending возвращает подарки, доступные к получению.
func (s *Service) ListPending(ctx context.Context, userID int64) ([]*GiftEntry, error) {
	notBefore := s.now().Add(-time.Duration(s.validityDays) * 24 * time.Hour)
	return s.store.ListPending(ctx, userID, notBefore)
}

// History возвращает журнал подарочных операций.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]*GiftLog, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.store.ListLog(ctx, userID, limit)
}

// SweepExpired помечает сгоревшие подарки. Вызывается по расписанию.
func (s *Service) SweepExpired(ctx context.Context) error {
	deadline := s.now().Add(-time.Duration(s.validityDays) * 24 * time.Hour)
	n, err := s.store.MarkExpired(ctx, deadline)
	if err != nil {
		return err
	}
	if n > 0 {
		log.WithField("count", n).Info("Помечены сгоревшие подарки")
	}
	return nil
}
