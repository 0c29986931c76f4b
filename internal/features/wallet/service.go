// Package wallet — service.go содержит бизнес-логику кошелька билетов
// и оркестрацию чтения эпизода: own-доступ → применимый билет →
// бесплатные правила с автовыдачей → потребление.
package wallet

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/catalog"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/ledger"
)

// Store — операции кошелька, нужные сервису. Реализуется *Repository.
type Store interface {
	ListUsableForEpisode(ctx context.Context, userID, productID, episodeID int64) ([]*TicketInstrument, error)
	ListUsableForProduct(ctx context.Context, userID, productID int64) ([]*TicketInstrument, error)
	HasOwnAccess(ctx context.Context, userID, productID, episodeID int64) (bool, error)
	Consume(ctx context.Context, instrumentID, userID, productID, episodeID int64, expireAt time.Time, salesRow *ledger.SalesRow) error
}

// CatalogReader — данные каталога, нужные кошельку.
type CatalogReader interface {
	GetEpisode(ctx context.Context, episodeID int64) (*catalog.Episode, error)
	GetProduct(ctx context.Context, productID int64) (*catalog.Product, error)
	MarkRead(ctx context.Context, userID, productID, episodeID int64) error
}

// AutoIssuer — хук автовыдачи бесплатных билетов (движок промоакций).
// Возвращает true, если хоть один билет был выдан и получен.
type AutoIssuer interface {
	AutoIssueOnFirstRead(ctx context.Context, userID int64, product *catalog.Product) (bool, error)
}

// ReadResult — исход запроса на чтение эпизода.
type ReadResult struct {
	Allowed      bool   `json:"allowed"`
	Method       string `json:"method,omitempty"` // free | own | ticket
	InstrumentID *int64 `json:"instrument_id,omitempty"`
}

// Service управляет кошельком билетов.
type Service struct {
	store       Store
	catalog     CatalogReader
	autoIssuer  AutoIssuer
	rentalHours int
	now         func() time.Time
}

// NewService создаёт сервис кошелька. autoIssuer может быть nil —
// тогда автовыдача при первом чтении пропускается.
func NewService(store Store, cat CatalogReader, rentalHours int) *Service {
	return &Service{
		store:       store,
		catalog:     cat,
		rentalHours: rentalHours,
		now:         time.Now,
	}
}

// SetAutoIssuer подключает движок промоакций. Вызывается при сборке
// приложения: кошелёк и акции зависят друг от друга через интерфейс.
func (s *Service) SetAutoIssuer(ai AutoIssuer) {
	s.autoIssuer = ai
}

// SetClock подменяет источник времени (для тестов).
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ListUsableForEpisode возвращает применимые к эпизоду инструменты
// в детерминированном порядке потребления.
func (s *Service) ListUsableForEpisode(ctx context.Context, userID, episodeID int64) ([]*TicketInstrument, error) {
	ep, err := s.catalog.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	ts, err := s.store.ListUsableForEpisode(ctx, userID, ep.ProductID, episodeID)
	if err != nil {
		return nil, err
	}
	SortUsable(ts)
	return ts, nil
}

// ListUsableForProduct возвращает применимые к произведению инструменты.
func (s *Service) ListUsableForProduct(ctx context.Context, userID, productID int64) ([]*TicketInstrument, error) {
	ts, err := s.store.ListUsableForProduct(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	SortUsable(ts)
	return ts, nil
}

// Consume потребляет один инструмент против конкретного эпизода.
// Скоуп перезаписывается на фактический, аренда живёт 72 часа с этого
// момента. Paid-билет оставляет одну строку sales_summary с pay_type
// 'ticket' и нулевой ценой; comped — ничего.
func (s *Service) Consume(ctx context.Context, instrumentID, userID, episodeID int64, deviceType string) error {
	ep, err := s.catalog.GetEpisode(ctx, episodeID)
	if err != nil {
		return err
	}
	product, err := s.catalog.GetProduct(ctx, ep.ProductID)
	if err != nil {
		return err
	}

	expireAt := s.now().Add(time.Duration(s.rentalHours) * time.Hour)

	// Строку выручки эмитят только paid-билеты, поэтому сервис готовит
	// заготовку без ticket_kind, а репозиторий решает под блокировкой,
	// писать ли: тип билета известен только после перечитывания строки.
	salesRow := &ledger.SalesRow{
		ItemType:   ledger.ItemPaid,
		ItemName:   ep.Title,
		ItemPrice:  0,
		Quantity:   1,
		DeviceType: deviceType,
		UserID:     userID,
		ProductID:  product.ID,
		EpisodeID:  &episodeID,
		AuthorID:   product.AuthorID,
		PayType:    ledger.PayTicket,
	}

	return s.store.Consume(ctx, instrumentID, userID, ep.ProductID, episodeID, expireAt, salesRow)
}

// HasOwnAccess сообщает, покрыт ли эпизод own-инструментом пользователя.
func (s *Service) HasOwnAccess(ctx context.Context, userID, episodeID int64) (bool, error) {
	ep, err := s.catalog.GetEpisode(ctx, episodeID)
	if err != nil {
		return false, err
	}
	return s.store.HasOwnAccess(ctx, userID, ep.ProductID, episodeID)
}

// ReadEpisode решает, разрешено ли чтение, и чем оно оплачено:
//  1. бесплатный эпизод — читаем;
//  2. own-инструмент матчится — читаем, ничего не потребляя;
//  3. есть применимый арендный билет — потребляем лучший по порядку;
//  4. иначе пробуем автовыдачу (free-for-first) и повторяем шаг 3;
//  5. иначе чтение не разрешено.
func (s *Service) ReadEpisode(ctx context.Context, userID, episodeID int64, deviceType string) (*ReadResult, error) {
	ep, err := s.catalog.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	if ep.Free() {
		return s.allow(ctx, userID, ep, "free", nil)
	}

	owned, err := s.store.HasOwnAccess(ctx, userID, ep.ProductID, episodeID)
	if err != nil {
		return nil, err
	}
	if owned {
		return s.allow(ctx, userID, ep, "own", nil)
	}

	ts, err := s.store.ListUsableForEpisode(ctx, userID, ep.ProductID, episodeID)
	if err != nil {
		return nil, err
	}

	if len(ts) == 0 && s.autoIssuer != nil {
		product, err := s.catalog.GetProduct(ctx, ep.ProductID)
		if err != nil {
			return nil, err
		}
		issued, err := s.autoIssuer.AutoIssueOnFirstRead(ctx, userID, product)
		if err != nil {
			// Автовыдача не должна ломать чтение: логируем и продолжаем
			log.WithError(err).WithFields(log.Fields{
				"user":    userID,
				"product": ep.ProductID,
			}).Error("Ошибка автовыдачи билета")
		} else if issued {
			ts, err = s.store.ListUsableForEpisode(ctx, userID, ep.ProductID, episodeID)
			if err != nil {
				return nil, err
			}
		}
	}

	if len(ts) == 0 {
		return &ReadResult{Allowed: false}, nil
	}

	SortUsable(ts)
	best := ts[0]
	if err := s.Consume(ctx, best.ID, userID, episodeID, deviceType); err != nil {
		return nil, err
	}
	return s.allow(ctx, userID, ep, "ticket", &best.ID)
}

func (s *Service) allow(ctx context.Context, userID int64, ep *catalog.Episode, method string, instrumentID *int64) (*ReadResult, error) {
	if err := s.catalog.MarkRead(ctx, userID, ep.ProductID, ep.ID); err != nil {
		return nil, err
	}
	return &ReadResult{Allowed: true, Method: method, InstrumentID: instrumentID}, nil
}
