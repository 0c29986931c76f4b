package settlement

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
)

// Store описывает хранилище расчётов.
type Store interface {
	BuildMonth(ctx context.Context, month string, from, to time.Time, defaultRate, compedRate int64) (int, error)
	GetMonthly(ctx context.Context, productID int64, month string) (*MonthlySales, error)
	ListMonthly(ctx context.Context, month, role string, actorID int64) ([]*MonthlySales, error)
	VisibleToRole(ctx context.Context, productID int64, role string, actorID int64) (bool, error)
	SetTaxOverride(ctx context.Context, productID int64, month string, tax int64) error
	AddIncomeRecord(ctx context.Context, rec *IncomeRecord) error
	ListIncomeRecords(ctx context.Context, productID int64, month string) ([]*IncomeRecord, error)
	GetSponsorship(ctx context.Context, productID int64) (*SponsorshipSummary, error)
	BuildSponsorshipTemp(ctx context.Context, productID int64) (*SponsorshipSummary, error)
	CompleteSponsorship(ctx context.Context, productID int64) (*SponsorshipSummary, error)
}

// Service — бизнес-логика расчётов с видимостью по ролям.
type Service struct {
	store Store
	loc   *time.Location

	defaultRate int64 // Доля автора по умолчанию, %
	compedRate  int64 // Доля по comped-полосе, %
}

// NewService создаёт сервис расчётов.
func NewService(store Store, loc *time.Location, defaultRate, compedRate int64) *Service {
	return &Service{store: store, loc: loc, defaultRate: defaultRate, compedRate: compedRate}
}

// BuildMonth собирает строки расчёта за месяц вида "2006-01".
func (s *Service) BuildMonth(ctx context.Context, month string) (int, error) {
	from, to, err := common.MonthBounds(month, s.loc)
	if err != nil {
		return 0, err
	}
	count, err := s.store.BuildMonth(ctx, month, from, to, s.defaultRate, s.compedRate)
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{
		"month": month,
		"rows":  count,
	}).Info("Помесячный расчёт собран")
	return count, nil
}

// BuildPreviousMonth собирает расчёт за предыдущий календарный месяц.
// Вызывается планировщиком в начале месяца.
func (s *Service) BuildPreviousMonth(ctx context.Context, now time.Time) (int, error) {
	prev := now.In(s.loc).AddDate(0, -1, 0)
	return s.BuildMonth(ctx, prev.Format("2006-01"))
}

// checkVisible проверяет доступ роли к произведению.
func (s *Service) checkVisible(ctx context.Context, productID int64, role string, actorID int64) error {
	ok, err := s.store.VisibleToRole(ctx, productID, role, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrSettlementForbidden
	}
	return nil
}

// GetMonthly возвращает строку расчёта с пересчитанными производными
// полями.
func (s *Service) GetMonthly(ctx context.Context, productID int64, month, role string, actorID int64) (*MonthlyView, error) {
	if err := s.checkVisible(ctx, productID, role, actorID); err != nil {
		return nil, err
	}
	m, err := s.store.GetMonthly(ctx, productID, month)
	if err != nil {
		return nil, err
	}
	return &MonthlyView{MonthlySales: *m, Computed: Compute(m)}, nil
}

// ListMonthly возвращает расчёты за месяц в пределах видимости роли.
func (s *Service) ListMonthly(ctx context.Context, month, role string, actorID int64) ([]*MonthlyView, error) {
	rows, err := s.store.ListMonthly(ctx, month, role, actorID)
	if err != nil {
		return nil, err
	}
	out := make([]*MonthlyView, 0, len(rows))
	for _, m := range rows {
		out = append(out, &MonthlyView{MonthlySales: *m, Computed: Compute(m)})
	}
	return out, nil
}

// SetTaxOverride выставляет ручной налог (только admin).
func (s *Service) SetTaxOverride(ctx context.Context, productID int64, month string, tax int64, role string) error {
	if role != "admin" {
		return common.ErrNotAdmin
	}
	if tax < 0 {
		return common.ErrInvalidAmount
	}
	return s.store.SetTaxOverride(ctx, productID, month, tax)
}

// AddIncomeRecord добавляет прочий доход произведения (только admin).
func (s *Service) AddIncomeRecord(ctx context.Context, rec *IncomeRecord, role string) error {
	if role != "admin" {
		return common.ErrNotAdmin
	}
	if rec.Amount <= 0 {
		return common.ErrInvalidAmount
	}
	if err := s.store.AddIncomeRecord(ctx, rec); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"product_id": rec.ProductID,
		"month":      rec.Month,
		"kind":       rec.Kind,
		"amount":     rec.Amount,
	}).Info("Прочий доход добавлен")
	return nil
}

// ListIncomeRecords возвращает прочие доходы произведения за месяц.
func (s *Service) ListIncomeRecords(ctx context.Context, productID int64, month, role string, actorID int64) ([]*IncomeRecord, error) {
	if err := s.checkVisible(ctx, productID, role, actorID); err != nil {
		return nil, err
	}
	return s.store.ListIncomeRecords(ctx, productID, month)
}

// GetSponsorship возвращает состояние спонсорского расчёта.
// Отсутствующая строка означает not_in_settlement.
func (s *Service) GetSponsorship(ctx context.Context, productID int64, role string, actorID int64) (*SponsorshipSummary, error) {
	if err := s.checkVisible(ctx, productID, role, actorID); err != nil {
		return nil, err
	}
	sum, err := s.store.GetSponsorship(ctx, productID)
	if err != nil {
		return nil, err
	}
	if sum == nil {
		return &SponsorshipSummary{ProductID: productID, Status: SponsorNotInSettlement}, nil
	}
	return sum, nil
}

// BuildSponsorshipTemp переводит спонсорский расчёт в temp_summary
// (только admin).
func (s *Service) BuildSponsorshipTemp(ctx context.Context, productID int64, role string) (*SponsorshipSummary, error) {
	if role != "admin" {
		return nil, common.ErrNotAdmin
	}
	sum, err := s.store.BuildSponsorshipTemp(ctx, productID)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"product_id": productID,
		"gross":      sum.GrossAmount,
		"net":        sum.NetAmount,
	}).Info("Спонсорский расчёт переведён в temp_summary")
	return sum, nil
}

// CompleteSponsorship завершает спонсорский расчёт (только admin).
func (s *Service) CompleteSponsorship(ctx context.Context, productID int64, role string) (*SponsorshipSummary, error) {
	if role != "admin" {
		return nil, common.ErrNotAdmin
	}
	sum, err := s.store.CompleteSponsorship(ctx, productID)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"product_id": productID,
		"net":        sum.NetAmount,
	}).Info("Спонсорский расчёт завершён")
	return sum, nil
}
