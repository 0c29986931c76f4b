// Package ledger — service.go содержит бизнес-логику денежного леджера:
// балансы, история движений, спонсорские взносы.
package ledger

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
)

// Store — операции леджера, нужные сервису. Реализуется *Repository.
type Store interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	Credit(ctx context.Context, userID, amount int64, reason, description string) error
	Debit(ctx context.Context, userID, amount int64, reason, description string) error
	Sponsor(ctx context.Context, fromUserID int64, amount int64, sponsorType string, row *SalesRow) error
	ListTransactions(ctx context.Context, userID int64, limit int) ([]*CashTransaction, error)
}

// ProductInfo — данные произведения, нужные для спонсорской строки выручки.
type ProductInfo struct {
	ProductID int64
	AuthorID  int64
	Title     string
}

// Service управляет денежным леджером.
type Service struct {
	store Store
}

// NewService создаёт сервис леджера.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Balance возвращает текущий баланс пользователя.
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	return s.store.Balance(ctx, userID)
}

// Credit начисляет кэш (системные начисления, компенсации).
func (s *Service) Credit(ctx context.Context, userID, amount int64, reason, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	return s.store.Credit(ctx, userID, amount, reason, description)
}

// Sponsor проводит спонсорский взнос читателя автору или произведению.
// Проверки:
//   - нельзя спонсировать самого себя
//   - сумма положительная
//   - баланс проверяется в репозитории под блокировкой
func (s *Service) Sponsor(ctx context.Context, fromUserID, amount int64, sponsorType string, product ProductInfo, deviceType string) error {
	if fromUserID == product.AuthorID {
		return common.ErrSelfTransfer
	}
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	if sponsorType != SponsorAuthor && sponsorType != SponsorProduct {
		return fmt.Errorf("неизвестный sponsor_type %q", sponsorType)
	}

	row := &SalesRow{
		ItemType:   ItemSponsorship,
		ItemName:   product.Title,
		ItemPrice:  amount,
		Quantity:   1,
		DeviceType: deviceType,
		UserID:     fromUserID,
		ProductID:  product.ProductID,
		AuthorID:   product.AuthorID,
		PayType:    PayCash,
	}
	if err := s.store.Sponsor(ctx, fromUserID, amount, sponsorType, row); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"from":    fromUserID,
		"product": product.ProductID,
		"amount":  amount,
		"type":    sponsorType,
	}).Info("Спонсорский взнос проведён")
	return nil
}

// History возвращает последние движения кэша пользователя.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]*CashTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListTransactions(ctx, userID, limit)
}
