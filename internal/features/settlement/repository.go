package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
)

// Repository работает с таблицами monthly_sales, income_records,
// sponsorship_summary, product_contract_offer.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий расчётов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const monthlyColumns = `
	id, product_id, author_id, month,
	web_sum_normal, web_sum_ticket, web_sum_refund, web_fee, web_rate,
	ios_sum_normal, ios_sum_ticket, ios_sum_refund, ios_fee, ios_rate,
	playstore_sum_normal, playstore_sum_ticket, playstore_sum_refund, playstore_fee, playstore_rate,
	onestore_sum_normal, onestore_sum_ticket, onestore_sum_refund, onestore_fee, onestore_rate,
	sum_comped_ticket, sum_refund_comped, fee_comped, rate_comped,
	tax_override, created_at, updated_at`

func scanMonthly(row pgx.Row) (*MonthlySales, error) {
	var m MonthlySales
	err := row.Scan(
		&m.ID, &m.ProductID, &m.AuthorID, &m.Month,
		&m.Web.SumNormal, &m.Web.SumTicket, &m.Web.SumRefund, &m.Web.Fee, &m.Web.SettlementRate,
		&m.IOS.SumNormal, &m.IOS.SumTicket, &m.IOS.SumRefund, &m.IOS.Fee, &m.IOS.SettlementRate,
		&m.Playstore.SumNormal, &m.Playstore.SumTicket, &m.Playstore.SumRefund, &m.Playstore.Fee, &m.Playstore.SettlementRate,
		&m.Onestore.SumNormal, &m.Onestore.SumTicket, &m.Onestore.SumRefund, &m.Onestore.Fee, &m.Onestore.SettlementRate,
		&m.SumCompedTicket, &m.SumRefundComped, &m.FeeComped, &m.RateComped,
		&m.TaxOverride, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// channelAgg — агрегат sales_summary по одному каналу произведения.
type channelAgg struct {
	productID  int64
	authorID   int64
	deviceType string
	sumNormal  int64 // item_price > 0, pay_type = cash
	sumTicket  int64 // pay_type = ticket, ticket_kind = paid
	sumComped  int64 // pay_type = ticket, ticket_kind = comped
	sumRefund  int64 // item_price < 0, по модулю
}

// aggregateMonth собирает агрегаты sales_summary за месяц по
// (product_id, device_type).
func (r *Repository) aggregateMonth(ctx context.Context, tx pgx.Tx, from, to time.Time) ([]channelAgg, error) {
	rows, err := tx.Query(ctx, `
		SELECT product_id, author_id, device_type,
			COALESCE(SUM(CASE WHEN pay_type = 'cash' AND item_price > 0 THEN item_price * quantity ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN pay_type = 'ticket' AND ticket_kind = 'paid' AND item_price > 0 THEN item_price * quantity ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN pay_type = 'ticket' AND ticket_kind = 'comped' AND item_price > 0 THEN item_price * quantity ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN item_price < 0 THEN -item_price * quantity ELSE 0 END), 0)
		FROM sales_summary
		WHERE order_date >= $1 AND order_date < $2
		GROUP BY product_id, author_id, device_type
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации продаж: %w", err)
	}
	defer rows.Close()

	var aggs []channelAgg
	for rows.Next() {
		var a channelAgg
		if err := rows.Scan(&a.productID, &a.authorID, &a.deviceType, &a.sumNormal, &a.sumTicket, &a.sumComped, &a.sumRefund); err != nil {
			return nil, fmt.Errorf("ошибка чтения агрегата: %w", err)
		}
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

// contractRates загружает контрактные ставки произведений внутри
// транзакции расчёта: product_id → split_rate.
func contractRates(ctx context.Context, tx pgx.Tx) (map[int64]int64, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, product_id, partner_id, split_rate, created_at
		FROM product_contract_offer
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения контрактов: %w", err)
	}
	defer rows.Close()

	rates := map[int64]int64{}
	for rows.Next() {
		var c ContractOffer
		if err := rows.Scan(&c.ID, &c.ProductID, &c.PartnerID, &c.SplitRate, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения контракта: %w", err)
		}
		rates[c.ProductID] = c.SplitRate
	}
	return rates, rows.Err()
}

// foldMonth сворачивает агрегаты каналов в строки расчёта: каждый
// канал в свои колонки. Контрактный split_rate произведения вытесняет
// ставку по умолчанию на всех платных каналах.
func foldMonth(aggs []channelAgg, contracts map[int64]int64, month string, defaultRate, compedRate int64) map[int64]*MonthlySales {
	byProduct := map[int64]*MonthlySales{}
	for _, a := range aggs {
		m, ok := byProduct[a.productID]
		if !ok {
			m = &MonthlySales{ProductID: a.productID, AuthorID: a.authorID, Month: month, RateComped: compedRate}
			rate := defaultRate
			if cr, has := contracts[a.productID]; has && cr > 0 {
				rate = cr
			}
			for _, ch := range Channels {
				m.ByChannel(ch).SettlementRate = rate
			}
			byProduct[a.productID] = m
		}
		c := m.ByChannel(a.deviceType)
		if c == nil {
			// Неизвестный канал складывается в web
			c = &m.Web
		}
		c.SumNormal += a.sumNormal
		c.SumTicket += a.sumTicket
		c.SumRefund += a.sumRefund
		m.SumCompedTicket += a.sumComped
	}
	return byProduct
}

// BuildMonth собирает строки monthly_sales за месяц в одной транзакции.
// Повторный запуск за тот же месяц перезаписывает первичные суммы и
// ставки (UPSERT по (product_id, month)), не трогая tax_override.
func (r *Repository) BuildMonth(ctx context.Context, month string, from, to time.Time, defaultRate, compedRate int64) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	aggs, err := r.aggregateMonth(ctx, tx, from, to)
	if err != nil {
		return 0, err
	}
	contracts, err := contractRates(ctx, tx)
	if err != nil {
		return 0, err
	}
	byProduct := foldMonth(aggs, contracts, month, defaultRate, compedRate)

	count := 0
	for _, m := range byProduct {
		_, err := tx.Exec(ctx, `
			INSERT INTO monthly_sales (
				product_id, author_id, month,
				web_sum_normal, web_sum_ticket, web_sum_refund, web_fee, web_rate,
				ios_sum_normal, ios_sum_ticket, ios_sum_refund, ios_fee, ios_rate,
				playstore_sum_normal, playstore_sum_ticket, playstore_sum_refund, playstore_fee, playstore_rate,
				onestore_sum_normal, onestore_sum_ticket, onestore_sum_refund, onestore_fee, onestore_rate,
				sum_comped_ticket, sum_refund_comped, fee_comped, rate_comped
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
			ON CONFLICT (product_id, month) DO UPDATE SET
				web_sum_normal = EXCLUDED.web_sum_normal,
				web_sum_ticket = EXCLUDED.web_sum_ticket,
				web_sum_refund = EXCLUDED.web_sum_refund,
				ios_sum_normal = EXCLUDED.ios_sum_normal,
				ios_sum_ticket = EXCLUDED.ios_sum_ticket,
				ios_sum_refund = EXCLUDED.ios_sum_refund,
				playstore_sum_normal = EXCLUDED.playstore_sum_normal,
				playstore_sum_ticket = EXCLUDED.playstore_sum_ticket,
				playstore_sum_refund = EXCLUDED.playstore_sum_refund,
				onestore_sum_normal = EXCLUDED.onestore_sum_normal,
				onestore_sum_ticket = EXCLUDED.onestore_sum_ticket,
				onestore_sum_refund = EXCLUDED.onestore_sum_refund,
				web_rate = EXCLUDED.web_rate,
				ios_rate = EXCLUDED.ios_rate,
				playstore_rate = EXCLUDED.playstore_rate,
				onestore_rate = EXCLUDED.onestore_rate,
				sum_comped_ticket = EXCLUDED.sum_comped_ticket,
				sum_refund_comped = EXCLUDED.sum_refund_comped,
				rate_comped = EXCLUDED.rate_comped,
				updated_at = NOW()
		`, m.ProductID, m.AuthorID, m.Month,
			m.Web.SumNormal, m.Web.SumTicket, m.Web.SumRefund, m.Web.Fee, m.Web.SettlementRate,
			m.IOS.SumNormal, m.IOS.SumTicket, m.IOS.SumRefund, m.IOS.Fee, m.IOS.SettlementRate,
			m.Playstore.SumNormal, m.Playstore.SumTicket, m.Playstore.SumRefund, m.Playstore.Fee, m.Playstore.SettlementRate,
			m.Onestore.SumNormal, m.Onestore.SumTicket, m.Onestore.SumRefund, m.Onestore.Fee, m.Onestore.SettlementRate,
			m.SumCompedTicket, m.SumRefundComped, m.FeeComped, m.RateComped)
		if err != nil {
			return 0, fmt.Errorf("ошибка записи строки расчёта: %w", err)
		}
		count++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return count, nil
}

// GetMonthly возвращает строку расчёта произведения за месяц.
func (r *Repository) GetMonthly(ctx context.Context, productID int64, month string) (*MonthlySales, error) {
	m, err := scanMonthly(r.db.QueryRow(ctx,
		`SELECT `+monthlyColumns+` FROM monthly_sales WHERE product_id = $1 AND month = $2`,
		productID, month))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrSettlementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения расчёта: %w", err)
	}
	return m, nil
}

// Видимость по ролям собирается во фрагмент WHERE: author видит свои
// произведения, partner — законтрактованные через product_contract_offer,
// admin — все.
func scopePredicate(role string, actorID int64) (string, []any) {
	switch role {
	case "author":
		return `author_id = $2`, []any{actorID}
	case "partner":
		return `product_id IN (SELECT product_id FROM product_contract_offer WHERE partner_id = $2)`, []any{actorID}
	default:
		return `TRUE`, nil
	}
}

// ListMonthly возвращает строки расчёта за месяц в пределах
// видимости роли.
func (r *Repository) ListMonthly(ctx context.Context, month, role string, actorID int64) ([]*MonthlySales, error) {
	pred, extra := scopePredicate(role, actorID)
	args := append([]any{month}, extra...)
	rows, err := r.db.Query(ctx,
		`SELECT `+monthlyColumns+` FROM monthly_sales WHERE month = $1 AND `+pred+` ORDER BY product_id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения расчётов: %w", err)
	}
	defer rows.Close()

	var out []*MonthlySales
	for rows.Next() {
		m, err := scanMonthly(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения строки расчёта: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// VisibleToRole проверяет, попадает ли произведение в область
// видимости роли.
func (r *Repository) VisibleToRole(ctx context.Context, productID int64, role string, actorID int64) (bool, error) {
	switch role {
	case "admin":
		return true, nil
	case "author":
		var ok bool
		err := r.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1 AND author_id = $2)`,
			productID, actorID).Scan(&ok)
		if err != nil {
			return false, fmt.Errorf("ошибка проверки авторства: %w", err)
		}
		return ok, nil
	case "partner":
		var ok bool
		err := r.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM product_contract_offer WHERE product_id = $1 AND partner_id = $2)`,
			productID, actorID).Scan(&ok)
		if err != nil {
			return false, fmt.Errorf("ошибка проверки контракта: %w", err)
		}
		return ok, nil
	}
	return false, nil
}

// SetTaxOverride выставляет ручной налог на строке расчёта.
func (r *Repository) SetTaxOverride(ctx context.Context, productID int64, month string, tax int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE monthly_sales SET tax_override = $3, updated_at = NOW() WHERE product_id = $1 AND month = $2`,
		productID, month, tax)
	if err != nil {
		return fmt.Errorf("ошибка записи налога: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrSettlementNotFound
	}
	return nil
}

// AddIncomeRecord добавляет прочий доход произведения.
func (r *Repository) AddIncomeRecord(ctx context.Context, rec *IncomeRecord) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO income_records (product_id, month, kind, amount, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, rec.ProductID, rec.Month, rec.Kind, rec.Amount, rec.Comment).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи дохода: %w", err)
	}
	return nil
}

// ListIncomeRecords возвращает прочие доходы произведения за месяц.
func (r *Repository) ListIncomeRecords(ctx context.Context, productID int64, month string) ([]*IncomeRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, month, kind, amount, comment, created_at
		FROM income_records
		WHERE product_id = $1 AND month = $2
		ORDER BY id
	`, productID, month)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения доходов: %w", err)
	}
	defer rows.Close()

	var out []*IncomeRecord
	for rows.Next() {
		var rec IncomeRecord
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.Month, &rec.Kind, &rec.Amount, &rec.Comment, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки дохода: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// GetSponsorship возвращает состояние спонсорского расчёта произведения.
// nil без ошибки, если строки ещё нет (состояние not_in_settlement).
func (r *Repository) GetSponsorship(ctx context.Context, productID int64) (*SponsorshipSummary, error) {
	var s SponsorshipSummary
	err := r.db.QueryRow(ctx, `
		SELECT id, product_id, author_id, gross_amount, net_amount, status, created_at, updated_at
		FROM sponsorship_summary
		WHERE product_id = $1
	`, productID).Scan(&s.ID, &s.ProductID, &s.AuthorID, &s.GrossAmount, &s.NetAmount, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения спонсорского расчёта: %w", err)
	}
	return &s, nil
}

// sponsorshipGross суммирует спонсорские взносы произведения внутри
// транзакции.
func sponsorshipGross(ctx context.Context, tx pgx.Tx, productID int64) (gross, authorID int64, err error) {
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0), COALESCE(MAX(author_id), 0)
		FROM sponsorship_records
		WHERE product_id = $1
	`, productID).Scan(&gross, &authorID)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка суммирования взносов: %w", err)
	}
	return gross, authorID, nil
}

// BuildSponsorshipTemp переводит произведение в temp_summary:
// синтезирует строку из сырых взносов. Идемпотентно — существующая
// строка temp_summary пересчитывается, completed не трогается.
func (r *Repository) BuildSponsorshipTemp(ctx context.Context, productID int64) (*SponsorshipSummary, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM sponsorship_summary WHERE product_id = $1 FOR UPDATE`,
		productID).Scan(&status)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ошибка чтения статуса: %w", err)
	}
	if status == SponsorCompleted {
		return nil, common.ErrSettlementCompleted
	}

	gross, authorID, err := sponsorshipGross(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	net := SponsorshipNet(gross)

	var s SponsorshipSummary
	err = tx.QueryRow(ctx, `
		INSERT INTO sponsorship_summary (product_id, author_id, gross_amount, net_amount, status)
		VALUES ($1, $2, $3, $4, 'temp_summary')
		ON CONFLICT (product_id) DO UPDATE SET
			gross_amount = EXCLUDED.gross_amount,
			net_amount = EXCLUDED.net_amount,
			status = 'temp_summary',
			updated_at = NOW()
		RETURNING id, product_id, author_id, gross_amount, net_amount, status, created_at, updated_at
	`, productID, authorID, gross, net).Scan(&s.ID, &s.ProductID, &s.AuthorID, &s.GrossAmount, &s.NetAmount, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка записи спонсорского расчёта: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &s, nil
}

// CompleteSponsorship переводит произведение в completed. Из
// not_in_settlement строка синтезируется на лету. Повторный вызов
// по completed идемпотентен и возвращает существующую строку.
func (r *Repository) CompleteSponsorship(ctx context.Context, productID int64) (*SponsorshipSummary, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var s SponsorshipSummary
	err = tx.QueryRow(ctx, `
		SELECT id, product_id, author_id, gross_amount, net_amount, status, created_at, updated_at
		FROM sponsorship_summary
		WHERE product_id = $1
		FOR UPDATE
	`, productID).Scan(&s.ID, &s.ProductID, &s.AuthorID, &s.GrossAmount, &s.NetAmount, &s.Status, &s.CreatedAt, &s.UpdatedAt)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// not_in_settlement → completed: строка синтезируется на лету
		gross, authorID, aggErr := sponsorshipGross(ctx, tx, productID)
		if aggErr != nil {
			return nil, aggErr
		}
		net := SponsorshipNet(gross)
		err = tx.QueryRow(ctx, `
			INSERT INTO sponsorship_summary (product_id, author_id, gross_amount, net_amount, status)
			VALUES ($1, $2, $3, $4, 'completed')
			RETURNING id, product_id, author_id, gross_amount, net_amount, status, created_at, updated_at
		`, productID, authorID, gross, net).Scan(&s.ID, &s.ProductID, &s.AuthorID, &s.GrossAmount, &s.NetAmount, &s.Status, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("ошибка записи спонсорского расчёта: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("ошибка чтения спонсорского расчёта: %w", err)
	case s.Status == SponsorCompleted:
		// Терминальное состояние, идемпотентный повтор
		return &s, tx.Commit(ctx)
	default:
		_, err = tx.Exec(ctx,
			`UPDATE sponsorship_summary SET status = 'completed', updated_at = NOW() WHERE product_id = $1`,
			productID)
		if err != nil {
			return nil, fmt.Errorf("ошибка завершения расчёта: %w", err)
		}
		s.Status = SponsorCompleted
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &s, nil
}
