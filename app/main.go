// Файл: main.go

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"gauge-system/internal/listeners"
	"gauge-system/internal/repositories"
	"gauge-system/internal/services"
	"gauge-system/migrations"
	"gauge-system/pkg/config"
	"gauge-system/pkg/database/postgresql"
	"gauge-system/pkg/eventbus"
	applogger "gauge-system/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func main() {
	// 1. Конфиг и логгер.
	cfg := config.New()
	logger := applogger.NewLogger()
	defer logger.Sync()

	// 2. Подключаемся к базам.
	dbConn := postgresql.ConnectDB(cfg.Postgres.DSN)
	defer dbConn.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Fatal("не удалось подключиться к Redis", zap.Error(err), zap.String("address", cfg.Redis.Address))
	}

	// 3. Накатываем миграции из встроенной файловой системы.
	goose.SetBaseFS(migrations.Embed)
	if err := goose.SetDialect("postgres"); err != nil {
		logger.Fatal("Ошибка настройки миграций", zap.Error(err))
	}
	migrationDB := stdlib.OpenDBFromPool(dbConn)
	if err := goose.Up(migrationDB, "."); err != nil {
		logger.Fatal("Ошибка применения миграций", zap.Error(err))
	}
	if err := migrationDB.Close(); err != nil {
		logger.Warn("Ошибка закрытия соединения миграций", zap.Error(err))
	}

	// 4. Репозитории и шина событий.
	txManager := repositories.NewTxManager(dbConn, cfg.Engine.LockTimeout, cfg.Engine.OpTimeout)
	gaugeRepo := repositories.NewGaugeRepository(dbConn)
	auditRepo := repositories.NewAuditRepository(dbConn)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)

	bus := eventbus.New(logger)
	listeners.NewOverdueListener(nil, logger).Register(bus)

	// 5. Фоновый пересчёт сроков поверки. Движок переходов в этом процессе
	// не поднимается - его вызывает внешний слой, демону он не нужен.
	scheduler := services.NewSchedulerService(
		txManager, gaugeRepo, auditRepo, cacheRepo, bus,
		cfg.Scheduler.Interval, cfg.Scheduler.WorkerLimit,
		time.Duration(cfg.Scheduler.DueSoonDays)*24*time.Hour, cfg.Scheduler.JobLockTTL,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Run(ctx)
	}()

	logger.Info("🚀 Демон пересчёта сроков поверки запущен",
		zap.Duration("interval", cfg.Scheduler.Interval),
		zap.Int("workerLimit", cfg.Scheduler.WorkerLimit),
	)

	<-ctx.Done()
	logger.Info("Получен сигнал остановки, завершаем работу")

	select {
	case <-done:
	case <-time.After(cfg.Server.ShutdownTimeout):
		logger.Warn("Пересчёт не успел завершиться за таймаут остановки")
	}
}
