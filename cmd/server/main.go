// Package main — точка входа сервиса.
// Загружает конфигурацию, инициализирует приложение и запускает
// HTTP-сервер. Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/app"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/config"
)

func main() {
	setupLogging()

	log.Info("=== Сервис монетизации запускается ===")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	level, err := log.ParseLevel(cfg.AppLogLevel)
	if err == nil {
		log.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать приложение")
	}
	defer application.DB.Close()

	application.Scheduler.Start(ctx)
	defer application.Scheduler.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Infof("HTTP-сервер слушает %s", cfg.HTTPAddr)
		if err := application.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP-сервер упал")
		}
	}()

	log.Info("=== Сервис готов к работе ===")

	sig := <-quit
	log.Infof("Получен сигнал %s, останавливаемся...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer shutdownCancel()
	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Ошибка остановки HTTP-сервера")
	}

	cancel()
	log.Info("=== Сервис остановлен ===")
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
