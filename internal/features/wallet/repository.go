// Package wallet — repository.go выполняет операции с таблицей productbook.
// Потребление билета — атомарный переход под блокировкой строки:
// конкурентные потребители одного инструмента видят, что первый
// закоммитившийся победил, а проигравший падает быстро.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/ledger"
)

// Repository предоставляет методы для работы с кошельком билетов.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий кошелька.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const instrumentColumns = `
	id, user_id, profile_id, product_id, episode_id, own_type, ticket_type,
	acquisition_type, acquisition_id, promotion_type, use_yn,
	rental_expired_date, created_date, updated_date`

func scanInstrument(row pgx.Row) (*TicketInstrument, error) {
	var t TicketInstrument
	err := row.Scan(
		&t.ID, &t.UserID, &t.ProfileID, &t.Scope.ProductID, &t.Scope.EpisodeID,
		&t.OwnType, &t.TicketType, &t.AcquisitionType, &t.AcquisitionID,
		&t.PromotionType, &t.UseYN, &t.RentalExpiredDate, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListUsableForEpisode возвращает применимые арендные инструменты
// для конкретного эпизода: не использованные, не истёкшие, со скоупом,
// покрывающим (productID, episodeID). Порядок задаёт сервис.
func (r *Repository) ListUsableForEpisode(ctx context.Context, userID, productID, episodeID int64) ([]*TicketInstrument, error) {
	query := `
		SELECT ` + instrumentColumns + `
		FROM productbook
		WHERE user_id = $1
		  AND own_type = 'rental'
		  AND use_yn = 'N'
		  AND (rental_expired_date IS NULL OR rental_expired_date > NOW())
		  AND (
		        (product_id IS NULL AND episode_id IS NULL)
		     OR (product_id = $2 AND (episode_id IS NULL OR episode_id = $3))
		  )
	`
	return r.queryInstruments(ctx, query, userID, productID, episodeID)
}

// ListUsableForProduct возвращает применимые арендные инструменты
// для произведения (универсальные, на произведение и на его эпизоды).
func (r *Repository) ListUsableForProduct(ctx context.Context, userID, productID int64) ([]*TicketInstrument, error) {
	query := `
		SELECT ` + instrumentColumns + `
		FROM productbook
		WHERE user_id = $1
		  AND own_type = 'rental'
		  AND use_yn = 'N'
		  AND (rental_expired_date IS NULL OR rental_expired_date > NOW())
		  AND ((product_id IS NULL AND episode_id IS NULL) OR product_id = $2)
	`
	return r.queryInstruments(ctx, query, userID, productID)
}

func (r *Repository) queryInstruments(ctx context.Context, query string, args ...any) ([]*TicketInstrument, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки инструментов: %w", err)
	}
	defer rows.Close()

	var out []*TicketInstrument
	for rows.Next() {
		t, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования инструмента: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// HasOwnAccess сообщает, держит ли пользователь активный own-инструмент,
// чей скоуп покрывает эпизод. Own-инструменты — идемпотентные гранты:
// они матчатся, но не потребляются.
func (r *Repository) HasOwnAccess(ctx context.Context, userID, productID, episodeID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM productbook
			WHERE user_id = $1
			  AND own_type = 'own'
			  AND use_yn = 'Y'
			  AND (
			        (product_id IS NULL AND episode_id IS NULL)
			     OR (product_id = $2 AND (episode_id IS NULL OR episode_id = $3))
			  )
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, userID, productID, episodeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки own-доступа: %w", err)
	}
	return exists, nil
}

// Consume атомарно потребляет один арендный инструмент под блокировкой строки:
// перечитывает, повторяет проверки применимости, перезаписывает скоуп
// на фактический (productID, episodeID), ставит use_yn='Y' и срок сгорания.
// Для paid-билетов в той же транзакции пишется строка sales_summary
// (salesRow != nil); comped-билеты не оставляют следа в выручке.
func (r *Repository) Consume(ctx context.Context, instrumentID, userID, productID, episodeID int64, expireAt time.Time, salesRow *ledger.SalesRow) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Перечитываем инструмент под блокировкой строки
	t, err := scanInstrument(tx.QueryRow(ctx,
		`SELECT `+instrumentColumns+` FROM productbook WHERE id = $1 FOR UPDATE`,
		instrumentID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrTicketNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка чтения инструмента: %w", err)
	}

	// Повторные проверки под блокировкой
	now := time.Now()
	switch {
	case t.UserID != userID:
		return common.ErrTicketForbidden
	case t.OwnType != OwnTypeRental:
		return common.ErrTicketNotRental
	case t.UseYN == "Y":
		return common.ErrTicketAlreadyUsed
	case t.RentalExpiredDate != nil && !t.RentalExpiredDate.After(now):
		return common.ErrTicketExpired
	case !t.Scope.Covers(productID, episodeID):
		return common.ErrTicketNotApplicable
	}

	_, err = tx.Exec(ctx, `
		UPDATE productbook
		SET product_id = $2, episode_id = $3, use_yn = 'Y',
		    rental_expired_date = $4, updated_date = NOW()
		WHERE id = $1
	`, instrumentID, productID, episodeID, expireAt)
	if err != nil {
		return fmt.Errorf("ошибка потребления инструмента: %w", err)
	}

	if row := salesRowFor(t, salesRow); row != nil {
		if err := ledger.InsertSalesRowTx(ctx, tx, row); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// salesRowFor решает под блокировкой, какую строку выручки оставляет
// потребление. Тип билета известен только из перечитанной строки:
// paid-билет получает строку со своим ticket_kind, comped — никакой.
func salesRowFor(t *TicketInstrument, template *ledger.SalesRow) *ledger.SalesRow {
	if template == nil || t.TicketType != TicketPaid {
		return nil
	}
	row := *template
	row.TicketKind = t.TicketType
	return &row
}

// InsertTx вставляет инструмент внутри чужой транзакции. Используется
// при материализации подарков и при покупке own-доступа за кэш.
// Own-инструменты создаются сразу с use_yn='Y', аренды — с use_yn='N'
// и без срока: срок появляется только при потреблении.
func InsertTx(ctx context.Context, tx pgx.Tx, t *TicketInstrument) error {
	useYN := "N"
	if t.OwnType == OwnTypeOwn {
		useYN = "Y"
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO productbook (user_id, profile_id, product_id, episode_id, own_type,
		                         ticket_type, acquisition_type, acquisition_id, promotion_type, use_yn)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.UserID, t.ProfileID, t.Scope.ProductID, t.Scope.EpisodeID, t.OwnType,
		t.TicketType, t.AcquisitionType, t.AcquisitionID, t.PromotionType, useYN)
	if err != nil {
		return fmt.Errorf("ошибка вставки инструмента: %w", err)
	}
	return nil
}

// HasOwnAccessTx — как HasOwnAccess, но внутри чужой транзакции
// (покупка эпизода перепроверяет владение перед списанием).
func HasOwnAccessTx(ctx context.Context, tx pgx.Tx, userID, productID, episodeID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM productbook
			WHERE user_id = $1
			  AND own_type = 'own'
			  AND use_yn = 'Y'
			  AND (
			        (product_id IS NULL AND episode_id IS NULL)
			     OR (product_id = $2 AND (episode_id IS NULL OR episode_id = $3))
			  )
		)
	`
	var exists bool
	if err := tx.QueryRow(ctx, query, userID, productID, episodeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("ошибка проверки own-доступа: %w", err)
	}
	return exists, nil
}
