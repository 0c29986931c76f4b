// Package app инициализирует все компоненты сервиса.
// app.go — точка сборки: создаёт БД-пул, клиентов внешних систем,
// репозитории, сервисы, обработчики и собирает HTTP-сервер.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/clients/identity"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/clients/payguard"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/clients/push"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/clients/storage"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/config"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/db/postgres"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/catalog"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/giftbox"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/ledger"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/payment"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/promotion"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/settlement"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/wallet"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/jobs"
)

// App содержит все компоненты сервиса.
type App struct {
	Server    *http.Server
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loc := cfg.Location()

	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Клиенты внешних систем ===
	pgClient := payguard.New(cfg.PayguardBaseURL, cfg.PayguardAPIKey, cfg.PayguardTimeout)
	identityClient := identity.New(cfg.IdentityBaseURL, cfg.IdentityTimeout)
	pushClient := push.New(cfg.PushBaseURL, cfg.PushServerKey, cfg.PushTimeout)
	presigner := storage.New(cfg.StorageBaseURL, cfg.StorageBucket, cfg.StoragePresignSecret, cfg.StoragePresignTTL)

	// Расчётные ставки задаются конфигурацией
	settlement.DefaultTaxPercent = decimal.NewFromFloat(cfg.SettlementTaxPercent)
	settlement.SponsorshipFeePercent = decimal.NewFromFloat(cfg.SponsorshipFeePercent)

	// === 3. Репозитории ===
	catalogRepo := catalog.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	walletRepo := wallet.NewRepository(pool)
	giftboxRepo := giftbox.NewRepository(pool)
	promotionRepo := promotion.NewRepository(pool)
	paymentRepo := payment.NewRepository(pool)
	settlementRepo := settlement.NewRepository(pool)

	// === 4. Сервисы ===
	catalogService := catalog.NewService(catalogRepo)
	ledgerService := ledger.NewService(ledgerRepo)
	walletService := wallet.NewService(walletRepo, catalogService, cfg.RentalHours)
	giftboxService := giftbox.NewService(giftboxRepo, pushClient, cfg.GiftValidityDays)
	promotionService := promotion.NewService(promotionRepo, giftboxService, catalogService, loc)
	paymentService := payment.NewService(paymentRepo, pgClient, catalogService, cfg.EpisodePurchasePrice, cfg.TopUpBonusPercent)
	settlementService := settlement.NewService(settlementRepo, loc, cfg.SettlementDefaultRate, cfg.SettlementCompedRate)

	// Автовыдача билетов при первом чтении идёт через движок акций
	walletService.SetAutoIssuer(promotionService)

	// === 5. Обработчики ===
	walletHandler := wallet.NewHandler(walletService)
	giftboxHandler := giftbox.NewHandler(giftboxService)
	promotionHandler := promotion.NewHandler(promotionService)
	paymentHandler := payment.NewHandler(paymentService)
	ledgerHandler := ledger.NewHandler(ledgerService, catalogService)
	// Подписант выдаёт ссылки на обложки в отчётах расчётов
	settlementHandler := settlement.NewHandler(settlementService, presigner)

	// === 6. HTTP-сервер ===
	router := newRouter(cfg, identityClient, routerHandlers{
		wallet:     walletHandler,
		giftbox:    giftboxHandler,
		promotion:  promotionHandler,
		payment:    paymentHandler,
		ledger:     ledgerHandler,
		settlement: settlementHandler,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	// === 7. Планировщик задач ===
	scheduler := jobs.NewScheduler(promotionService, giftboxService, settlementService, loc)

	return &App{
		Server:    server,
		Scheduler: scheduler,
		DB:        pool,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.EnsureMigrationTable(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Catalog},
		{2, migration002Ledger},
		{3, migration003Wallet},
		{4, migration004Giftbox},
		{5, migration005Promotion},
		{6, migration006Payment},
		{7, migration007Settlement},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}
