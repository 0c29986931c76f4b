// Package giftbox — repository.go выполняет операции с таблицами
// giftbook и giftbook_log. Получение подарка — атомарный переход:
// отметка received_yn и материализация инструментов в productbook
// происходят в одной транзакции.
package giftbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/wallet"
)

// Repository предоставляет методы для работы с подарочным ящиком.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий подарков.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const giftColumns = `
	id, user_id, profile_id, product_id, episode_id, own_type, ticket_type,
	acquisition_type, acquisition_id, promotion_type, amount, reason,
	received_yn, received_date, created_date`

func scanGift(row pgx.Row) (*GiftEntry, error) {
	var g GiftEntry
	err := row.Scan(
		&g.ID, &g.UserID, &g.ProfileID, &g.Scope.ProductID, &g.Scope.EpisodeID,
		&g.OwnType, &g.TicketType, &g.AcquisitionType, &g.AcquisitionID,
		&g.PromotionType, &g.Amount, &g.Reason, &g.ReceivedYN, &g.ReceivedDate,
		&g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Issue вставляет подарок и строку журнала «received» в одной транзакции.
// Возвращает ID созданной записи.
func (r *Repository) Issue(ctx context.Context, spec IssueSpec) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var giftID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO giftbook (user_id, profile_id, product_id, episode_id, own_type, ticket_type,
		                      acquisition_type, acquisition_id, promotion_type, amount, reason, received_yn)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'N')
		RETURNING id
	`, spec.UserID, spec.ProfileID, spec.Scope.ProductID, spec.Scope.EpisodeID,
		spec.OwnType, spec.TicketType, spec.AcquisitionType, spec.AcquisitionID,
		spec.PromotionType, spec.Amount, spec.Reason).Scan(&giftID)
	if err != nil {
		return 0, fmt.Errorf("ошибка вставки подарка: %w", err)
	}

	if err := insertLogTx(ctx, tx, giftID, spec.UserID, LogReceived); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return giftID, nil
}

// GetByID возвращает подарок по ID.
func (r *Repository) GetByID(ctx context.Context, giftID int64) (*GiftEntry, error) {
	g, err := scanGift(r.db.QueryRow(ctx,
		`SELECT `+giftColumns+` FROM giftbook WHERE id = $1`, giftID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrGiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения подарка: %w", err)
	}
	return g, nil
}

// Receive атомарно получает подарок: под блокировкой строки повторяет
// проверки (владелец, не получен, срок), ставит received_yn='Y',
// материализует amount инструментов в productbook и пишет журнал.
// deadline передаёт сервис — момент, после которого подарок сгорел.
func (r *Repository) Receive(ctx context.Context, giftID, userID int64, now, deadline time.Time) (*GiftEntry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	g, err := scanGift(tx.QueryRow(ctx,
		`SELECT `+giftColumns+` FROM giftbook WHERE id = $1 FOR UPDATE`, giftID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrGiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения подарка: %w", err)
	}

	switch {
	case g.UserID != userID:
		return nil, common.ErrGiftForbidden
	case g.ReceivedYN == "Y":
		return nil, common.ErrGiftAlreadyReceived
	case now.After(deadline):
		return nil, common.ErrGiftExpired
	}

	_, err = tx.Exec(ctx, `
		UPDATE giftbook
		SET received_yn = 'Y', received_date = $2
		WHERE id = $1
	`, giftID, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка отметки получения: %w", err)
	}

	// Материализация: аренды создаются неиспользованными и без срока,
	// own-инструменты — сразу использованными (активный грант)
	for i := 0; i < g.Amount; i++ {
		err := wallet.InsertTx(ctx, tx, &wallet.TicketInstrument{
			UserID:          g.UserID,
			ProfileID:       g.ProfileID,
			Scope:           g.Scope,
			OwnType:         g.OwnType,
			TicketType:      g.TicketType,
			AcquisitionType: &g.AcquisitionType,
			AcquisitionID:   g.AcquisitionID,
			PromotionType:   g.PromotionType,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := insertLogTx(ctx, tx, giftID, userID, LogUsed); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	g.ReceivedYN = "Y"
	g.ReceivedDate = &now
	return g, nil
}

// ListPending возвращает неполученные и не сгоревшие подарки пользователя.
func (r *Repository) ListPending(ctx context.Context, userID int64, notBefore time.Time) ([]*GiftEntry, error) {
	query := `
		SELECT ` + giftColumns + `
		FROM giftbook
		WHERE user_id = $1 AND received_yn = 'N' AND created_date > $2
		ORDER BY created_date DESC
	`
	rows, err := r.db.Query(ctx, query, userID, notBefore)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки подарков: %w", err)
	}
	defer rows.Close()

	var gifts []*GiftEntry
	for rows.Next() {
		g, err := scanGift(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования подарка: %w", err)
		}
		gifts = append(gifts, g)
	}
	return gifts, rows.Err()
}

// ListLog возвращает журнал подарочных операций пользователя.
func (r *Repository) ListLog(ctx context.Context, userID int64, limit int) ([]*GiftLog, error) {
	query := `
		SELECT id, gift_id, user_id, action, created_at
		FROM giftbook_log
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки журнала: %w", err)
	}
	defer rows.Close()

	var logs []*GiftLog
	for rows.Next() {
		var l GiftLog
		if err := rows.Scan(&l.ID, &l.GiftID, &l.UserID, &l.Action, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования журнала: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// MarkExpired помечает в журнале сгоревшие подарки старше deadline.
// Сами строки giftbook не трогаются: received_yn остаётся 'N',
// получение блокируется проверкой срока. Возвращает число помеченных.
func (r *Repository) MarkExpired(ctx context.Context, deadline time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO giftbook_log (gift_id, user_id, action)
		SELECT g.id, g.user_id, 'expired'
		FROM giftbook g
		WHERE g.received_yn = 'N'
		  AND g.created_date <= $1
		  AND NOT EXISTS (
			SELECT 1 FROM giftbook_log l
			WHERE l.gift_id = g.id AND l.action = 'expired'
		  )
	`, deadline)
	if err != nil {
		return 0, fmt.Errorf("ошибка пометки сгоревших подарков: %w", err)
	}
	return tag.RowsAffected(), nil
}

func insertLogTx(ctx context.Context, tx pgx.Tx, giftID, userID int64, action string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO giftbook_log (gift_id, user_id, action)
		VALUES ($1, $2, $3)
	`, giftID, userID, action)
	if err != nil {
		return fmt.Errorf("ошибка записи журнала подарков: %w", err)
	}
	return nil
}
