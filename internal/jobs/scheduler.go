// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежедневную выдачу по активным
// акциям, разметку просроченных подарков и помесячный сбор расчётов.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/giftbox"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/promotion"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/settlement"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron              *cron.Cron
	promotionService  *promotion.Service
	giftboxService    *giftbox.Service
	settlementService *settlement.Service
	loc               *time.Location
}

// NewScheduler создаёт планировщик задач в часовом поясе сервиса.
func NewScheduler(promotionService *promotion.Service, giftboxService *giftbox.Service, settlementService *settlement.Service, loc *time.Location) *Scheduler {
	return &Scheduler{
		cron:              cron.New(cron.WithLocation(loc)),
		promotionService:  promotionService,
		giftboxService:    giftboxService,
		settlementService: settlementService,
		loc:               loc,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Ежедневная выдача по активным акциям в 00:05
	s.cron.AddFunc("5 0 * * *", func() {
		log.Info("[CRON] Ежедневная выдача по акциям")
		if err := s.promotionService.RunDailyIssuance(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка выдачи по акциям")
		}
	})

	// Разметка просроченных подарков каждый час
	s.cron.AddFunc("0 * * * *", func() {
		log.Debug("[CRON] Разметка просроченных подарков")
		if err := s.giftboxService.SweepExpired(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка разметки подарков")
		}
	})

	// Сбор расчётов за предыдущий месяц 1-го числа в 02:00
	s.cron.AddFunc("0 2 1 * *", func() {
		log.Info("[CRON] Сбор помесячных расчётов")
		if _, err := s.settlementService.BuildPreviousMonth(ctx, time.Now()); err != nil {
			log.WithError(err).Error("[CRON] Ошибка сбора расчётов")
		}
	})

	s.cron.Start()
	log.Infof("Планировщик задач запущен (%s)", s.loc)
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
