// Package ledger — repository.go выполняет операции с таблицами
// cashbook, cashbook_transaction, sales_summary и sponsorship_records.
// Все денежные операции выполняются в транзакциях БД для целостности данных.
//
// cashbook — append-only: конкурентные записи не конфликтуют на уровне
// строк, поэтому проверка «баланс не уйдёт в минус» сериализуется
// advisory-блокировкой по user_id внутри той же транзакции.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
)

// Repository предоставляет методы для работы с денежными таблицами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий леджера.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Balance возвращает текущий баланс пользователя: сумму всех дельт.
func (r *Repository) Balance(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COALESCE(SUM(balance), 0) FROM cashbook WHERE user_id = $1`
	var balance int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

// Credit начисляет кэш пользователю: добавляет положительную дельту
// в cashbook и запись движения в cashbook_transaction. Атомарно.
func (r *Repository) Credit(ctx context.Context, userID, amount int64, reason, description string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := creditInTx(ctx, tx, userID, amount, reason, description); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Debit списывает кэш: добавляет отрицательную дельту после проверки,
// что суммарный баланс не станет отрицательным. Advisory-блокировка
// по user_id сериализует конкурентные списания.
func (r *Repository) Debit(ctx context.Context, userID, amount int64, reason, description string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := debitInTx(ctx, tx, userID, amount, reason, description); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Sponsor проводит спонсорский взнос: списывает кэш у читателя,
// записывает движение со спонсорской пометкой, спонсорскую запись
// для расчётов и строку sales_summary. Одна транзакция.
func (r *Repository) Sponsor(ctx context.Context, fromUserID int64, amount int64, sponsorType string, product *SalesRow) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	description := fmt.Sprintf("Спонсорство: %s", product.ItemName)
	if err := lockUserCash(ctx, tx, fromUserID); err != nil {
		return err
	}
	if err := checkedDebitInTx(ctx, tx, fromUserID, amount, "sponsorship"); err != nil {
		return err
	}

	// Движение со спонсорской пометкой: получатель — автор
	_, err = tx.Exec(ctx, `
		INSERT INTO cashbook_transaction (from_user_id, to_user_id, amount, sponsor_type, product_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, fromUserID, product.AuthorID, amount, sponsorType, product.ProductID, description)
	if err != nil {
		return fmt.Errorf("ошибка записи движения: %w", err)
	}

	// Спонсорская запись — вход расчётного конвейера
	_, err = tx.Exec(ctx, `
		INSERT INTO sponsorship_records (user_id, author_id, product_id, amount)
		VALUES ($1, $2, $3, $4)
	`, fromUserID, product.AuthorID, product.ProductID, amount)
	if err != nil {
		return fmt.Errorf("ошибка спонсорской записи: %w", err)
	}

	if err := InsertSalesRowTx(ctx, tx, product); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListTransactions возвращает последние N движений кэша пользователя.
func (r *Repository) ListTransactions(ctx context.Context, userID int64, limit int) ([]*CashTransaction, error) {
	query := `
		SELECT id, from_user_id, to_user_id, amount, sponsor_type, product_id, description, created_at
		FROM cashbook_transaction
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения движений: %w", err)
	}
	defer rows.Close()

	var txs []*CashTransaction
	for rows.Next() {
		var t CashTransaction
		if err := rows.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount,
			&t.SponsorType, &t.ProductID, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования движения: %w", err)
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}

// --- Помощники, работающие внутри чужой транзакции ---
//
// Покупки и потребление билетов пишут в cashbook и sales_summary
// из транзакций своих репозиториев; SQL живёт здесь, чтобы формат
// строк был один на весь сервис.

// lockUserCash берёт advisory-блокировку по user_id на время транзакции.
// Ключ 0x6361 ("ca") отделяет пространство cashbook от других блокировок.
func lockUserCash(ctx context.Context, tx pgx.Tx, userID int64) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, int32(0x6361), int32(userID))
	if err != nil {
		return fmt.Errorf("ошибка блокировки баланса: %w", err)
	}
	return nil
}

func creditInTx(ctx context.Context, tx pgx.Tx, userID, amount int64, reason, description string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO cashbook (user_id, balance, reason)
		VALUES ($1, $2, $3)
	`, userID, amount, reason)
	if err != nil {
		return fmt.Errorf("ошибка начисления: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cashbook_transaction (to_user_id, amount, sponsor_type, description)
		VALUES ($1, $2, 'none', $3)
	`, userID, amount, description)
	if err != nil {
		return fmt.Errorf("ошибка записи движения: %w", err)
	}
	return nil
}

// checkedDebitInTx добавляет отрицательную дельту, если баланс позволяет.
// Вызывающий обязан предварительно взять lockUserCash.
func checkedDebitInTx(ctx context.Context, tx pgx.Tx, userID, amount int64, reason string) error {
	var balance int64
	err := tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(balance), 0) FROM cashbook WHERE user_id = $1`, userID,
	).Scan(&balance)
	if err != nil {
		return fmt.Errorf("ошибка получения баланса: %w", err)
	}
	if balance < amount {
		return common.ErrInsufficientBalance
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cashbook (user_id, balance, reason)
		VALUES ($1, $2, $3)
	`, userID, -amount, reason)
	if err != nil {
		return fmt.Errorf("ошибка списания: %w", err)
	}
	return nil
}

func debitInTx(ctx context.Context, tx pgx.Tx, userID, amount int64, reason, description string) error {
	if err := lockUserCash(ctx, tx, userID); err != nil {
		return err
	}
	if err := checkedDebitInTx(ctx, tx, userID, amount, reason); err != nil {
		return err
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO cashbook_transaction (from_user_id, amount, sponsor_type, description)
		VALUES ($1, $2, 'none', $3)
	`, userID, amount, description)
	if err != nil {
		return fmt.Errorf("ошибка записи движения: %w", err)
	}
	return nil
}

// CreditTx начисляет кэш внутри чужой транзакции (пополнение из payment).
func CreditTx(ctx context.Context, tx pgx.Tx, userID, amount int64, reason, description string) error {
	return creditInTx(ctx, tx, userID, amount, reason, description)
}

// DebitTx списывает кэш внутри чужой транзакции с advisory-блокировкой
// и проверкой баланса (покупка эпизодов из payment).
func DebitTx(ctx context.Context, tx pgx.Tx, userID, amount int64, reason string) error {
	if err := lockUserCash(ctx, tx, userID); err != nil {
		return err
	}
	return checkedDebitInTx(ctx, tx, userID, amount, reason)
}

// InsertSalesRowTx записывает строку sales_summary внутри чужой транзакции.
func InsertSalesRowTx(ctx context.Context, tx pgx.Tx, row *SalesRow) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO sales_summary (item_type, item_name, item_price, quantity, device_type,
		                           user_id, product_id, episode_id, author_id, pay_type, ticket_kind, order_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, NOW()))
	`, row.ItemType, row.ItemName, row.ItemPrice, row.Quantity, row.DeviceType,
		row.UserID, row.ProductID, row.EpisodeID, row.AuthorID, row.PayType, row.TicketKind, nullTime(row.OrderDate))
	if err != nil {
		return fmt.Errorf("ошибка записи sales_summary: %w", err)
	}
	return nil
}

// nullTime превращает нулевое время в NULL, чтобы сработал COALESCE(NOW()).
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
