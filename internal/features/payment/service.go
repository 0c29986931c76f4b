package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/clients/payguard"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/catalog"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/ledger"
)

// Store описывает хранилище платежей.
type Store interface {
	FindByPGPaymentID(ctx context.Context, pgPaymentID string) (*StorePayment, error)
	GetOrderNo(ctx context.Context, orderID int64) (string, error)
	CompleteTopUp(ctx context.Context, p TopUpParams) error
	PurchaseEpisode(ctx context.Context, userID, profileID int64, ep *catalog.Episode, product *catalog.Product, price int64, deviceType string) error
	PurchaseBulk(ctx context.Context, userID, profileID int64, product *catalog.Product, episodes []*catalog.Episode, price int64, deviceType string) (int, int, error)
	RefundEpisodePurchase(ctx context.Context, userID, instrumentID int64, price int64, row *ledger.SalesRow) error
	RefundTopUp(ctx context.Context, sp *StorePayment, creditedCash int64) error
}

// PGClient описывает внешний платёжный шлюз.
type PGClient interface {
	GetPayment(ctx context.Context, paymentID string) (*payguard.Payment, error)
	CancelPayment(ctx context.Context, paymentID, reason string) error
}

// CatalogReader отдаёт каталожные данные для покупок.
type CatalogReader interface {
	GetEpisode(ctx context.Context, episodeID int64) (*catalog.Episode, error)
	GetProduct(ctx context.Context, productID int64) (*catalog.Product, error)
	ListEpisodes(ctx context.Context, productID int64) ([]*catalog.Episode, error)
}

// Service — бизнес-логика платежей и покупок.
type Service struct {
	store   Store
	pg      PGClient
	catalog CatalogReader

	episodePrice int64 // Фиксированная цена эпизода
	bonusPercent int64 // Бонус при пополнении, %

	// rand.Rand не потокобезопасен, конкурентные подтверждения
	// сериализуются мьютексом
	rndMu sync.Mutex
	rnd   *rand.Rand

	now func() time.Time
}

// NewService создаёт сервис платежей.
func NewService(store Store, pg PGClient, catalog CatalogReader, episodePrice, bonusPercent int64) *Service {
	return &Service{
		store:        store,
		pg:           pg,
		catalog:      catalog,
		episodePrice: episodePrice,
		bonusPercent: bonusPercent,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
	}
}

// SetClock подменяет часы (для тестов).
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// credited считает зачисляемую сумму с бонусом, округление вниз.
func (s *Service) credited(amount int64) int64 {
	return amount + amount*s.bonusPercent/100
}

// orderNumber генерирует номер заказа под мьютексом.
func (s *Service) orderNumber() string {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return OrderNumber(s.now(), s.rnd)
}

// CompleteCashOrder подтверждает пополнение кэша.
//
// Порядок строгий: сперва читаем авторитетную запись шлюза — проводим
// только статус Paid. Затем идемпотентность: если платёж уже проведён
// локально, возвращаем прежний итог без новых записей. Затем одна
// транзакция БД; при её сбое компенсируем отменой платежа в шлюзе.
// Сбой и транзакции, и отмены — наихудший исход, требует ручного
// вмешательства и помечается отдельной ошибкой.
func (s *Service) CompleteCashOrder(ctx context.Context, userID int64, pgPaymentID string) (*TopUpResult, error) {
	pgPayment, err := s.pg.GetPayment(ctx, pgPaymentID)
	if err != nil {
		return nil, err
	}
	if pgPayment.Status != payguard.StatusPaid {
		return nil, common.ErrPaymentNotPaid
	}

	existing, err := s.store.FindByPGPaymentID(ctx, pgPaymentID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == StatusPaid {
		return s.recordedResult(ctx, userID, pgPaymentID, existing)
	}

	creditedCash := s.credited(pgPayment.Amount)
	params := TopUpParams{
		UserID:       userID,
		PGPaymentID:  pgPaymentID,
		PGTxID:       pgPayment.TransactionID,
		Method:       pgPayment.Method,
		Amount:       pgPayment.Amount,
		CreditedCash: creditedCash,
		ItemName:     fmt.Sprintf("Пополнение кэша на %d", pgPayment.Amount),
	}

	// Коллизия номера заказа разрешается перегенерацией
	for attempt := 0; attempt < 5; attempt++ {
		params.OrderNo = s.orderNumber()
		err = s.store.CompleteTopUp(ctx, params)
		if errors.Is(err, common.ErrOrderNumberCollision) {
			continue
		}
		break
	}

	// Конкурентный confirm: победитель уже записал платёж, возвращаем
	// его итог. Отмена в шлюзе здесь откатила бы чужое зачисление.
	if errors.Is(err, common.ErrPaymentDuplicate) {
		winner, ferr := s.store.FindByPGPaymentID(ctx, pgPaymentID)
		if ferr != nil {
			return nil, ferr
		}
		if winner != nil && winner.Status == StatusPaid {
			return s.recordedResult(ctx, userID, pgPaymentID, winner)
		}
		return nil, err
	}

	if err != nil {
		log.WithFields(log.Fields{
			"user_id":       userID,
			"pg_payment_id": pgPaymentID,
		}).WithError(err).Error("Транзакция пополнения не прошла, отменяем платёж в шлюзе")

		if cancelErr := s.pg.CancelPayment(ctx, pgPaymentID, "Сбой проведения пополнения"); cancelErr != nil {
			log.WithFields(log.Fields{
				"user_id":       userID,
				"pg_payment_id": pgPaymentID,
			}).WithError(cancelErr).Error("Отмена платежа в шлюзе тоже не прошла, нужно ручное вмешательство")
			return nil, common.ErrCompensationFailed
		}
		return nil, common.ErrDBTransaction
	}

	log.WithFields(log.Fields{
		"user_id":       userID,
		"order_no":      params.OrderNo,
		"amount":        pgPayment.Amount,
		"credited_cash": creditedCash,
	}).Info("Пополнение кэша проведено")

	return &TopUpResult{
		OrderNo:      params.OrderNo,
		Amount:       pgPayment.Amount,
		CreditedCash: creditedCash,
	}, nil
}

// recordedResult возвращает итог уже проведённого пополнения без новых
// записей.
func (s *Service) recordedResult(ctx context.Context, userID int64, pgPaymentID string, sp *StorePayment) (*TopUpResult, error) {
	orderNo, err := s.store.GetOrderNo(ctx, sp.OrderID)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"user_id":       userID,
		"pg_payment_id": pgPaymentID,
		"order_no":      orderNo,
	}).Info("Повторное подтверждение пополнения, записи не создаются")
	return &TopUpResult{
		OrderNo:      orderNo,
		Amount:       sp.Amount,
		CreditedCash: s.credited(sp.Amount),
		AlreadyPaid:  true,
	}, nil
}

// PurchaseEpisode покупает own-доступ к платному эпизоду за кэш.
func (s *Service) PurchaseEpisode(ctx context.Context, userID, profileID, episodeID int64, deviceType string) error {
	ep, err := s.catalog.GetEpisode(ctx, episodeID)
	if err != nil {
		return err
	}
	if ep.Free() {
		return common.ErrFreeEpisode
	}
	product, err := s.catalog.GetProduct(ctx, ep.ProductID)
	if err != nil {
		return err
	}

	err = s.store.PurchaseEpisode(ctx, userID, profileID, ep, product, s.episodePrice, deviceType)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"user_id":    userID,
		"episode_id": episodeID,
		"price":      s.episodePrice,
	}).Info("Эпизод куплен")
	return nil
}

// PurchaseAllEpisodes покупает own-доступ ко всем платным эпизодам
// произведения одной транзакцией, пропуская бесплатные и уже купленные.
func (s *Service) PurchaseAllEpisodes(ctx context.Context, userID, profileID, productID int64, deviceType string) (*BulkPurchaseResult, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	episodes, err := s.catalog.ListEpisodes(ctx, productID)
	if err != nil {
		return nil, err
	}

	var paid []*catalog.Episode
	skippedFree := 0
	for _, ep := range episodes {
		if ep.Free() {
			skippedFree++
			continue
		}
		paid = append(paid, ep)
	}
	if len(paid) == 0 {
		return nil, common.ErrFreeEpisode
	}

	purchased, skippedOwned, err := s.store.PurchaseBulk(ctx, userID, profileID, product, paid, s.episodePrice, deviceType)
	if err != nil {
		return nil, err
	}
	if purchased == 0 && skippedOwned > 0 {
		return nil, common.ErrAlreadyOwned
	}

	result := &BulkPurchaseResult{
		PurchasedCount:    purchased,
		TotalCashUsed:     int64(purchased) * s.episodePrice,
		SkippedFreeCount:  skippedFree,
		SkippedOwnedCount: skippedOwned,
	}

	log.WithFields(log.Fields{
		"user_id":    userID,
		"product_id": productID,
		"purchased":  purchased,
		"cash_used":  result.TotalCashUsed,
	}).Info("Массовая покупка эпизодов проведена")
	return result, nil
}

// RefundEpisodePurchase возвращает покупку эпизода: кэш обратно,
// отрицательная строка продаж, own-инструмент перестаёт матчиться.
// Потреблённые арендные билеты не возвращаются и обратных строк
// не получают.
func (s *Service) RefundEpisodePurchase(ctx context.Context, userID, episodeID, instrumentID int64, deviceType string) error {
	ep, err := s.catalog.GetEpisode(ctx, episodeID)
	if err != nil {
		return err
	}
	product, err := s.catalog.GetProduct(ctx, ep.ProductID)
	if err != nil {
		return err
	}

	row := &ledger.SalesRow{
		ItemType:   ledger.ItemOwn,
		ItemName:   ep.Title,
		Quantity:   1,
		DeviceType: deviceType,
		UserID:     userID,
		ProductID:  product.ID,
		EpisodeID:  &ep.ID,
		AuthorID:   product.AuthorID,
		PayType:    ledger.PayCash,
	}
	err = s.store.RefundEpisodePurchase(ctx, userID, instrumentID, s.episodePrice, row)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"user_id":       userID,
		"episode_id":    episodeID,
		"instrument_id": instrumentID,
	}).Info("Покупка эпизода возвращена")
	return nil
}

// RefundTopUp возвращает пополнение: сперва отмена платежа в шлюзе,
// затем обратные записи локально. Списывается зачисленная сумма
// с бонусом, а не оплаченная.
func (s *Service) RefundTopUp(ctx context.Context, pgPaymentID, reason string) error {
	sp, err := s.store.FindByPGPaymentID(ctx, pgPaymentID)
	if err != nil {
		return err
	}
	if sp == nil {
		return common.ErrPaymentNotFound
	}
	if sp.Status != StatusPaid {
		return common.ErrPaymentNotPaid
	}

	if err := s.pg.CancelPayment(ctx, pgPaymentID, reason); err != nil {
		return err
	}

	if err := s.store.RefundTopUp(ctx, sp, s.credited(sp.Amount)); err != nil {
		log.WithFields(log.Fields{
			"pg_payment_id": pgPaymentID,
		}).WithError(err).Error("Платёж отменён в шлюзе, но локальный возврат не прошёл, нужно ручное вмешательство")
		return common.ErrCompensationFailed
	}

	log.WithFields(log.Fields{
		"pg_payment_id": pgPaymentID,
		"order_id":      sp.OrderID,
	}).Info("Пополнение возвращено")
	return nil
}
