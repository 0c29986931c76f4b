// Package payment — repository.go выполняет операции с таблицами
// store_order, store_order_item, store_payment и денежными таблицами.
// Каждый денежный сценарий — одна транзакция БД: либо коммитится
// целиком, либо откатывается целиком.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/catalog"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/ledger"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/wallet"
)

// Repository предоставляет методы для работы с заказами и платежами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий платежей.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// FindByPGPaymentID возвращает локальную запись платежа по внешнему ID.
// nil без ошибки, если записи нет.
func (r *Repository) FindByPGPaymentID(ctx context.Context, pgPaymentID string) (*StorePayment, error) {
	var p StorePayment
	err := r.db.QueryRow(ctx, `
		SELECT id, order_id, pg_payment_id, pg_tx_id, method, amount, status, created_at
		FROM store_payment
		WHERE pg_payment_id = $1
	`, pgPaymentID).Scan(&p.ID, &p.OrderID, &p.PGPaymentID, &p.PGTxID, &p.Method, &p.Amount, &p.Status, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска платежа: %w", err)
	}
	return &p, nil
}

// GetOrderNo возвращает номер заказа по ID заказа.
func (r *Repository) GetOrderNo(ctx context.Context, orderID int64) (string, error) {
	var orderNo string
	err := r.db.QueryRow(ctx, `SELECT order_no FROM store_order WHERE id = $1`, orderID).Scan(&orderNo)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения заказа: %w", err)
	}
	return orderNo, nil
}

// TopUpParams — параметры проведения пополнения.
type TopUpParams struct {
	OrderNo      string
	UserID       int64
	PGPaymentID  string
	PGTxID       string
	Method       string
	Amount       int64 // Оплачено во внешнем шлюзе
	CreditedCash int64 // Зачисляется с бонусом
	ItemName     string
}

// CompleteTopUp проводит пополнение одной транзакцией: заказ, позиция,
// платёж, положительная дельта cashbook на сумму с бонусом, самоперевод
// в cashbook_transaction и строка статистики. ErrOrderNumberCollision —
// если номер заказа уже занят (сервис перегенерирует).
func (r *Repository) CompleteTopUp(ctx context.Context, p TopUpParams) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var orderID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO store_order (order_no, user_id, total_price, status)
		VALUES ($1, $2, $3, 'PAID')
		RETURNING id
	`, p.OrderNo, p.UserID, p.Amount).Scan(&orderID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.ErrOrderNumberCollision
		}
		return fmt.Errorf("ошибка создания заказа: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO store_order_item (order_id, item_name, item_price, quantity, cancel_yn)
		VALUES ($1, $2, $3, 1, 'N')
	`, orderID, p.ItemName, p.Amount)
	if err != nil {
		return fmt.Errorf("ошибка создания позиции заказа: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO store_payment (order_id, pg_payment_id, pg_tx_id, method, amount, status)
		VALUES ($1, $2, $3, $4, $5, 'PAID')
	`, orderID, p.PGPaymentID, p.PGTxID, p.Method, p.Amount)
	if err != nil {
		var pgErr *pgconn.PgError
		// Конкурентный confirm того же платежа уткнулся в уникальность
		// pg_payment_id: это не коллизия номера заказа, перегенерация
		// и отмена в шлюзе здесь запрещены
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.ErrPaymentDuplicate
		}
		return fmt.Errorf("ошибка создания платежа: %w", err)
	}

	// Зачисление с бонусом
	_, err = tx.Exec(ctx, `
		INSERT INTO cashbook (user_id, balance, reason)
		VALUES ($1, $2, 'topup')
	`, p.UserID, p.CreditedCash)
	if err != nil {
		return fmt.Errorf("ошибка зачисления кэша: %w", err)
	}

	// Самоперевод: пополнение — это движение от пользователя к нему же
	_, err = tx.Exec(ctx, `
		INSERT INTO cashbook_transaction (from_user_id, to_user_id, amount, sponsor_type, description)
		VALUES ($1, $1, $2, 'none', $3)
	`, p.UserID, p.CreditedCash, fmt.Sprintf("Пополнение по заказу %s", p.OrderNo))
	if err != nil {
		return fmt.Errorf("ошибка записи движения: %w", err)
	}

	// Строка статистики для дашбордов
	_, err = tx.Exec(ctx, `
		INSERT INTO stat_logs (kind, user_id, amount)
		VALUES ('topup', $1, $2)
	`, p.UserID, p.Amount)
	if err != nil {
		return fmt.Errorf("ошибка записи статистики: %w", err)
	}

	return tx.Commit(ctx)
}

// PurchaseEpisode атомарно покупает own-доступ к эпизоду: перепроверка
// владения внутри транзакции, списание фиксированной цены, вставка
// own-инструмента (эпизодный скоуп) и строка sales_summary {own, cash}.
func (r *Repository) PurchaseEpisode(ctx context.Context, userID, profileID int64, ep *catalog.Episode, product *catalog.Product, price int64, deviceType string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	owned, err := wallet.HasOwnAccessTx(ctx, tx, userID, ep.ProductID, ep.ID)
	if err != nil {
		return err
	}
	if owned {
		return common.ErrAlreadyOwned
	}

	if err := ledger.DebitTx(ctx, tx, userID, price, "episode_purchase"); err != nil {
		return err
	}

	err = wallet.InsertTx(ctx, tx, &wallet.TicketInstrument{
		UserID:     userID,
		ProfileID:  profileID,
		Scope:      wallet.Scope{ProductID: &ep.ProductID, EpisodeID: &ep.ID},
		OwnType:    wallet.OwnTypeOwn,
		TicketType: wallet.TicketPaid,
	})
	if err != nil {
		return err
	}

	err = ledger.InsertSalesRowTx(ctx, tx, &ledger.SalesRow{
		ItemType:   ledger.ItemOwn,
		ItemName:   ep.Title,
		ItemPrice:  price,
		Quantity:   1,
		DeviceType: deviceType,
		UserID:     userID,
		ProductID:  product.ID,
		EpisodeID:  &ep.ID,
		AuthorID:   product.AuthorID,
		PayType:    ledger.PayCash,
	})
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// PurchaseBulk атомарно покупает own-доступ ко всем переданным платным
// эпизодам, пропуская уже купленные. Одно списание на всю корзину;
// частичный сбой откатывает все вставки. Возвращает число купленных
// и число пропущенных как уже купленных.
func (r *Repository) PurchaseBulk(ctx context.Context, userID, profileID int64, product *catalog.Product, episodes []*catalog.Episode, price int64, deviceType string) (purchased, skippedOwned int, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Перепроверка владения внутри транзакции
	var remaining []*catalog.Episode
	for _, ep := range episodes {
		owned, err := wallet.HasOwnAccessTx(ctx, tx, userID, ep.ProductID, ep.ID)
		if err != nil {
			return 0, 0, err
		}
		if owned {
			skippedOwned++
			continue
		}
		remaining = append(remaining, ep)
	}

	if len(remaining) == 0 {
		return 0, skippedOwned, tx.Commit(ctx)
	}

	cost := int64(len(remaining)) * price
	if err := ledger.DebitTx(ctx, tx, userID, cost, "bulk_purchase"); err != nil {
		return 0, 0, err
	}

	for _, ep := range remaining {
		err := wallet.InsertTx(ctx, tx, &wallet.TicketInstrument{
			UserID:     userID,
			ProfileID:  profileID,
			Scope:      wallet.Scope{ProductID: &ep.ProductID, EpisodeID: &ep.ID},
			OwnType:    wallet.OwnTypeOwn,
			TicketType: wallet.TicketPaid,
		})
		if err != nil {
			return 0, 0, err
		}
		err = ledger.InsertSalesRowTx(ctx, tx, &ledger.SalesRow{
			ItemType:   ledger.ItemOwn,
			ItemName:   ep.Title,
			ItemPrice:  price,
			Quantity:   1,
			DeviceType: deviceType,
			UserID:     userID,
			ProductID:  product.ID,
			EpisodeID:  &ep.ID,
			AuthorID:   product.AuthorID,
			PayType:    ledger.PayCash,
		})
		if err != nil {
			return 0, 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return len(remaining), skippedOwned, nil
}

// RefundEpisodePurchase добавляет обратные строки по купленному эпизоду:
// положительная дельта cashbook (инверсия списания), строка sales_summary
// с отрицательной ценой и мягкое аннулирование own-инструмента
// (use_yn='N' — матчиться перестаёт, строка остаётся).
func (r *Repository) RefundEpisodePurchase(ctx context.Context, userID, instrumentID int64, price int64, row *ledger.SalesRow) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var ownType, useYN string
	err = tx.QueryRow(ctx, `
		SELECT own_type, use_yn FROM productbook
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, instrumentID, userID).Scan(&ownType, &useYN)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrTicketNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка чтения инструмента: %w", err)
	}
	if ownType != wallet.OwnTypeOwn || useYN != "Y" {
		// Потреблённые аренды остаются потреблёнными, повторный возврат запрещён
		return common.ErrTicketNotApplicable
	}

	_, err = tx.Exec(ctx, `
		UPDATE productbook SET use_yn = 'N', updated_date = NOW() WHERE id = $1
	`, instrumentID)
	if err != nil {
		return fmt.Errorf("ошибка аннулирования инструмента: %w", err)
	}

	if err := ledger.CreditTx(ctx, tx, userID, price, "refund", "Возврат покупки эпизода"); err != nil {
		return err
	}

	row.ItemPrice = -price
	if err := ledger.InsertSalesRowTx(ctx, tx, row); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// RefundTopUp добавляет обратные строки по пополнению: отрицательная
// дельта cashbook на зачисленную сумму, cancel_yn='Y' на позиции заказа
// и статус REFUNDED на платеже. Отмена во внешнем шлюзе — дело сервиса.
func (r *Repository) RefundTopUp(ctx context.Context, sp *StorePayment, creditedCash int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var orderUser int64
	err = tx.QueryRow(ctx, `SELECT user_id FROM store_order WHERE id = $1 FOR UPDATE`, sp.OrderID).Scan(&orderUser)
	if err != nil {
		return fmt.Errorf("ошибка чтения заказа: %w", err)
	}

	if err := ledger.DebitTx(ctx, tx, orderUser, creditedCash, "topup_refund"); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE store_order_item SET cancel_yn = 'Y' WHERE order_id = $1
	`, sp.OrderID)
	if err != nil {
		return fmt.Errorf("ошибка аннулирования позиции: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE store_payment SET status = 'REFUNDED' WHERE id = $1
	`, sp.ID)
	if err != nil {
		return fmt.Errorf("ошибка обновления платежа: %w", err)
	}

	return tx.Commit(ctx)
}
