// Package promotion — service.go содержит бизнес-логику движка акций.
// Вся выдача билетов идёт через подарочный конвейер: у заявочных акций —
// ежедневной задачей, у прямых — хуком первого чтения или заявкой
// пользователя под недельной квотой.
package promotion

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/common"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/catalog"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/giftbox"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/wallet"
)

// Store — операции хранилища акций. Реализуется *Repository.
type Store interface {
	CreateApplied(ctx context.Context, productID int64, promoType string, startDate time.Time, numPerPerson int) (int64, error)
	GetApplied(ctx context.Context, id int64) (*AppliedPromotion, error)
	TransitionApplied(ctx context.Context, id int64, from, to string, actor int64, endDate *time.Time) error
	ListActiveApplied(ctx context.Context, now time.Time) ([]*AppliedPromotion, error)
	QualifyingUsersWithoutIssue(ctx context.Context, promo *AppliedPromotion, dayStart time.Time) ([]int64, error)
	GetDirect(ctx context.Context, id int64) (*DirectPromotion, error)
	ListDirectByProduct(ctx context.Context, productID int64) ([]*DirectPromotion, error)
	ClaimWeekly(ctx context.Context, promotionID, userID int64, weekStart time.Time, weekIndex int) (int64, error)
	DeleteClaim(ctx context.Context, claimID int64) error
	LastClaim(ctx context.Context, promotionID, userID int64) (*DirectClaim, error)
}

// GiftIssuer — подарочный конвейер, единственный путь выдачи билетов.
type GiftIssuer interface {
	Issue(ctx context.Context, spec giftbox.IssueSpec) (int64, error)
	IssueAndReceive(ctx context.Context, spec giftbox.IssueSpec) error
}

// CatalogReader — данные каталога, нужные движку акций.
type CatalogReader interface {
	GetProduct(ctx context.Context, productID int64) (*catalog.Product, error)
	IsFirstVisit(ctx context.Context, userID, productID int64) (bool, error)
}

// Service управляет акциями.
type Service struct {
	store   Store
	gifts   GiftIssuer
	catalog CatalogReader
	loc     *time.Location
	now     func() time.Time
}

// NewService создаёт сервис акций. loc — серверный часовой пояс,
// от него считаются недельные и дневные границы.
func NewService(store Store, gifts GiftIssuer, cat CatalogReader, loc *time.Location) *Service {
	return &Service{
		store:   store,
		gifts:   gifts,
		catalog: cat,
		loc:     loc,
		now:     time.Now,
	}
}

// SetClock подменяет источник времени (для тестов).
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// --- Заявочные акции ---

// Apply регистрирует заявку автора на бесплатную программу.
func (s *Service) Apply(ctx context.Context, productID, authorID int64, promoType string, startDate time.Time, numPerPerson int) (int64, error) {
	if promoType != TypeWaitingForFree && promoType != TypeSixNinePath {
		return 0, fmt.Errorf("неизвестный тип заявочной акции %q", promoType)
	}
	if numPerPerson <= 0 {
		return 0, common.ErrInvalidAmount
	}
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	if product.AuthorID != authorID {
		return 0, common.ErrTicketForbidden
	}
	return s.store.CreateApplied(ctx, productID, promoType, startDate, numPerPerson)
}

// Accept — админ принимает заявку: apply → ing, фиксируется end_date.
// Порядок end_date относительно start_date при приёмке не проверяется.
func (s *Service) Accept(ctx context.Context, id, admin int64, endDate *time.Time) error {
	return s.transition(ctx, id, StatusIng, admin, endDate)
}

// Deny — админ отклоняет заявку: apply → deny.
func (s *Service) Deny(ctx context.Context, id, admin int64) error {
	return s.transition(ctx, id, StatusDeny, admin, nil)
}

// End — админ завершает идущую акцию: ing → end.
// Если end_date пуст, он становится моментом завершения.
func (s *Service) End(ctx context.Context, id, admin int64) error {
	now := s.now()
	return s.transition(ctx, id, StatusEnd, admin, &now)
}

// Cancel — автор отзывает свою заявку: apply → cancel.
func (s *Service) Cancel(ctx context.Context, id, authorID int64) error {
	promo, err := s.store.GetApplied(ctx, id)
	if err != nil {
		return err
	}
	product, err := s.catalog.GetProduct(ctx, promo.ProductID)
	if err != nil {
		return err
	}
	if product.AuthorID != authorID {
		return common.ErrTicketForbidden
	}
	return s.transition(ctx, id, StatusCancel, authorID, nil)
}

func (s *Service) transition(ctx context.Context, id int64, to string, actor int64, endDate *time.Time) error {
	promo, err := s.store.GetApplied(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(promo.Status, to) {
		return common.ErrInvalidTransition
	}
	if err := s.store.TransitionApplied(ctx, id, promo.Status, to, actor, endDate); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"promotion": id,
		"from":      promo.Status,
		"to":        to,
		"actor":     actor,
	}).Info("Переход статуса заявочной акции")
	return nil
}

// RunDailyIssuance — ежедневная выдача по идущим заявочным акциям:
// каждому читателю произведения, ещё не получившему сегодняшнюю выдачу,
// выдаётся num_of_ticket_per_person арендных билетов на произведение.
func (s *Service) RunDailyIssuance(ctx context.Context) error {
	now := s.now()
	promos, err := s.store.ListActiveApplied(ctx, now)
	if err != nil {
		return err
	}

	local := now.In(s.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)

	for _, promo := range promos {
		users, err := s.store.QualifyingUsersWithoutIssue(ctx, promo, dayStart)
		if err != nil {
			log.WithError(err).WithField("promotion", promo.ID).Error("Ошибка выборки кандидатов")
			continue
		}

		promoType := promo.Type
		issued := 0
		for _, userID := range users {
			_, err := s.gifts.Issue(ctx, giftbox.IssueSpec{
				UserID:          userID,
				Scope:           wallet.Scope{ProductID: &promo.ProductID},
				OwnType:         wallet.OwnTypeRental,
				TicketType:      wallet.TicketComped,
				AcquisitionType: wallet.AcqAppliedPromotion,
				AcquisitionID:   &promo.ID,
				PromotionType:   &promoType,
				Amount:          promo.NumPerPerson,
				Reason:          fmt.Sprintf("Ежедневная выдача акции %d", promo.ID),
			})
			if err != nil {
				log.WithError(err).WithFields(log.Fields{
					"promotion": promo.ID,
					"user":      userID,
				}).Error("Ошибка выдачи по акции")
				continue
			}
			issued++
		}

		log.WithFields(log.Fields{
			"promotion": promo.ID,
			"type":      promo.Type,
			"users":     issued,
		}).Info("Ежедневная выдача выполнена")
	}
	return nil
}

// --- Прямые акции ---

// AutoIssueOnFirstRead выдаёт и сразу получает один арендный билет
// на произведение, если по нему идёт free-for-first и пользователь —
// новый читатель. Возвращает true, если билет выдан.
func (s *Service) AutoIssueOnFirstRead(ctx context.Context, userID int64, product *catalog.Product) (bool, error) {
	promos, err := s.store.ListDirectByProduct(ctx, product.ID)
	if err != nil {
		return false, err
	}

	var active *DirectPromotion
	for _, p := range promos {
		if p.Type == TypeFreeForFirst && p.Status == DirectIng {
			active = p
			break
		}
	}
	if active == nil {
		return false, nil
	}

	first, err := s.catalog.IsFirstVisit(ctx, userID, product.ID)
	if err != nil {
		return false, err
	}
	if !first {
		return false, nil
	}

	promoType := TypeFreeForFirst
	err = s.gifts.IssueAndReceive(ctx, giftbox.IssueSpec{
		UserID:          userID,
		Scope:           wallet.Scope{ProductID: &product.ID},
		OwnType:         wallet.OwnTypeRental,
		TicketType:      wallet.TicketComped,
		AcquisitionType: wallet.AcqDirectPromotion,
		AcquisitionID:   &active.ID,
		PromotionType:   &promoType,
		Amount:          1,
		Reason:          fmt.Sprintf("Первое чтение «%s»", product.Title),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ClaimReaderOfPrev — заявка пользователя по акции reader-of-prev.
// Квота: не больше одной выдачи на ISO-неделю (сброс в понедельник
// 00:00 серверного пояса). При успехе создаётся num_of_ticket_per_person
// подарочных записей.
func (s *Service) ClaimReaderOfPrev(ctx context.Context, promotionID, userID, profileID int64) (int, error) {
	promo, err := s.store.GetDirect(ctx, promotionID)
	if err != nil {
		return 0, err
	}
	if promo.Type != TypeReaderOfPrev {
		return 0, common.ErrPromotionNotFound
	}
	if promo.Status != DirectIng {
		return 0, common.ErrPromotionNotActive
	}

	now := s.now()
	weekStart := common.WeekStart(now, s.loc)
	weekIndex := common.WeekIndex(now, s.loc)

	claimID, err := s.store.ClaimWeekly(ctx, promotionID, userID, weekStart, weekIndex)
	if err != nil {
		return 0, err
	}

	promoType := TypeReaderOfPrev
	issued := 0
	for i := 0; i < promo.NumPerPerson; i++ {
		_, err := s.gifts.Issue(ctx, giftbox.IssueSpec{
			UserID:          userID,
			ProfileID:       profileID,
			Scope:           wallet.Scope{ProductID: &promo.ProductID},
			OwnType:         wallet.OwnTypeRental,
			TicketType:      wallet.TicketComped,
			AcquisitionType: wallet.AcqDirectPromotion,
			AcquisitionID:   &promo.ID,
			PromotionType:   &promoType,
			Amount:          1,
			Reason:          fmt.Sprintf("Недельная выдача акции %d", promo.ID),
		})
		if err != nil {
			// Выдача не удалась — возвращаем пользователю попытку на этой неделе
			if issued == 0 {
				if delErr := s.store.DeleteClaim(ctx, claimID); delErr != nil {
					log.WithError(delErr).WithField("claim", claimID).Error("Ошибка отката фиксации выдачи")
				}
			}
			return issued, err
		}
		issued++
	}
	return issued, nil
}

// ListDirectForUser возвращает прямые акции произведения глазами
// пользователя: reader-of-prev с выдачей на этой неделе показывается
// как stop (per-user исчерпание), значение в БД не меняется.
func (s *Service) ListDirectForUser(ctx context.Context, productID, userID int64) ([]*DirectView, error) {
	promos, err := s.store.ListDirectByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	weekStart := common.WeekStart(now, s.loc)

	var views []*DirectView
	for _, p := range promos {
		v := &DirectView{DirectPromotion: *p, DisplayStatus: p.Status}
		if p.Type == TypeReaderOfPrev {
			last, err := s.store.LastClaim(ctx, p.ID, userID)
			if err != nil {
				return nil, err
			}
			if last != nil {
				v.LastIssuedAt = &last.CreatedAt
				next := common.WeekStart(last.CreatedAt, s.loc).AddDate(0, 0, 7)
				v.NextEligible = &next
				if !last.CreatedAt.Before(weekStart) {
					v.DisplayStatus = DirectStop
				}
			}
		}
		views = append(views, v)
	}
	return views, nil
}
