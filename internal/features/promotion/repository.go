// Package promotion — repository.go выполняет операции с таблицами
// applied_promotion, direct_promotion и direct_promotion_claim.
package promotion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
)

// Repository предоставляет методы для работы с акциями.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий акций.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const appliedColumns = `
	id, product_id, type, status, start_date, end_date,
	num_of_ticket_per_person, status_changed_by, status_changed_at, created_date`

func scanApplied(row pgx.Row) (*AppliedPromotion, error) {
	var p AppliedPromotion
	err := row.Scan(
		&p.ID, &p.ProductID, &p.Type, &p.Status, &p.StartDate, &p.EndDate,
		&p.NumPerPerson, &p.StatusChangedBy, &p.StatusChangedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateApplied регистрирует заявку автора (статус apply).
func (r *Repository) CreateApplied(ctx context.Context, productID int64, promoType string, startDate time.Time, numPerPerson int) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO applied_promotion (product_id, type, status, start_date, num_of_ticket_per_person)
		VALUES ($1, $2, 'apply', $3, $4)
		RETURNING id
	`, productID, promoType, startDate, numPerPerson).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания заявки: %w", err)
	}
	return id, nil
}

// GetApplied возвращает заявочную акцию по ID.
func (r *Repository) GetApplied(ctx context.Context, id int64) (*AppliedPromotion, error) {
	p, err := scanApplied(r.db.QueryRow(ctx,
		`SELECT `+appliedColumns+` FROM applied_promotion WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrPromotionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения акции: %w", err)
	}
	return p, nil
}

// TransitionApplied выполняет переход статуса from → to с условием
// WHERE status = from: конкурентный переход видит ноль затронутых строк
// и получает ErrInvalidTransition. endDate записывается только если
// передан и текущее значение пусто.
func (r *Repository) TransitionApplied(ctx context.Context, id int64, from, to string, actor int64, endDate *time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE applied_promotion
		SET status = $3,
		    end_date = COALESCE(end_date, $5),
		    status_changed_by = $4,
		    status_changed_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to, actor, endDate)
	if err != nil {
		return fmt.Errorf("ошибка перехода статуса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrInvalidTransition
	}
	return nil
}

// ListActiveApplied возвращает идущие заявочные акции, чьё окно
// покрывает момент now. Для ежедневной выдачи.
func (r *Repository) ListActiveApplied(ctx context.Context, now time.Time) ([]*AppliedPromotion, error) {
	query := `
		SELECT ` + appliedColumns + `
		FROM applied_promotion
		WHERE status = 'ing' AND start_date <= $1 AND (end_date IS NULL OR end_date >= $1)
	`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки активных акций: %w", err)
	}
	defer rows.Close()

	var out []*AppliedPromotion
	for rows.Next() {
		p, err := scanApplied(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования акции: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// QualifyingUsersWithoutIssue возвращает читателей произведения,
// которым сегодня ещё не выдавали билеты этой акции. Кандидаты —
// все, кто читал произведение; уже получившие выдачу с dayStart
// отфильтровываются по giftbook.
func (r *Repository) QualifyingUsersWithoutIssue(ctx context.Context, promo *AppliedPromotion, dayStart time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT rl.user_id
		FROM product_read_log rl
		WHERE rl.product_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM giftbook g
			WHERE g.user_id = rl.user_id
			  AND g.acquisition_type = 'applied_promotion'
			  AND g.acquisition_id = $2
			  AND g.created_date >= $3
		  )
	`
	rows, err := r.db.Query(ctx, query, promo.ProductID, promo.ID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки кандидатов: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования кандидата: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// GetDirect возвращает прямую акцию по ID.
func (r *Repository) GetDirect(ctx context.Context, id int64) (*DirectPromotion, error) {
	var p DirectPromotion
	err := r.db.QueryRow(ctx, `
		SELECT id, product_id, type, status, num_of_ticket_per_person, created_date
		FROM direct_promotion
		WHERE id = $1
	`, id).Scan(&p.ID, &p.ProductID, &p.Type, &p.Status, &p.NumPerPerson, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrPromotionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения прямой акции: %w", err)
	}
	return &p, nil
}

// ListDirectByProduct возвращает прямые акции произведения.
func (r *Repository) ListDirectByProduct(ctx context.Context, productID int64) ([]*DirectPromotion, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, type, status, num_of_ticket_per_person, created_date
		FROM direct_promotion
		WHERE product_id = $1
		ORDER BY id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки прямых акций: %w", err)
	}
	defer rows.Close()

	var out []*DirectPromotion
	for rows.Next() {
		var p DirectPromotion
		if err := rows.Scan(&p.ID, &p.ProductID, &p.Type, &p.Status, &p.NumPerPerson, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования прямой акции: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// ClaimWeekly фиксирует недельную выдачу по прямой акции.
// Внутри одной транзакции: условная проверка «нет выдачи с weekStart»
// плюс вставка под уникальным ограничением (promotion_id, user_id,
// week_index) — двойная защита от гонки двух заявок.
func (r *Repository) ClaimWeekly(ctx context.Context, promotionID, userID int64, weekStart time.Time, weekIndex int) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM direct_promotion_claim
			WHERE promotion_id = $1 AND user_id = $2 AND created_date >= $3
		)
	`, promotionID, userID, weekStart).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("ошибка проверки квоты: %w", err)
	}
	if exists {
		return 0, common.ErrWeeklyQuotaExceeded
	}

	var claimID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO direct_promotion_claim (promotion_id, user_id, week_index)
		VALUES ($1, $2, $3)
		RETURNING id
	`, promotionID, userID, weekIndex).Scan(&claimID)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 — unique_violation: конкурентная заявка успела первой
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, common.ErrWeeklyQuotaExceeded
		}
		return 0, fmt.Errorf("ошибка фиксации выдачи: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return claimID, nil
}

// DeleteClaim откатывает фиксацию выдачи, если выдача билетов после
// неё не удалась. Компенсация, не обычный путь.
func (r *Repository) DeleteClaim(ctx context.Context, claimID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM direct_promotion_claim WHERE id = $1`, claimID)
	if err != nil {
		return fmt.Errorf("ошибка отката выдачи: %w", err)
	}
	return nil
}

// LastClaim возвращает последнюю фиксацию выдачи пользователя по акции.
func (r *Repository) LastClaim(ctx context.Context, promotionID, userID int64) (*DirectClaim, error) {
	var c DirectClaim
	err := r.db.QueryRow(ctx, `
		SELECT id, promotion_id, user_id, week_index, created_date
		FROM direct_promotion_claim
		WHERE promotion_id = $1 AND user_id = $2
		ORDER BY created_date DESC
		LIMIT 1
	`, promotionID, userID).Scan(&c.ID, &c.PromotionID, &c.UserID, &c.WeekIndex, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения выдачи: %w", err)
	}
	return &c, nil
}
