package services

import (
	"context"
	"time"

	"gauge-system/internal/entities"
	"gauge-system/internal/events"
	"gauge-system/internal/repositories"
	"gauge-system/pkg/constants"
	"gauge-system/pkg/eventbus"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const recalcJobName = "calibration-recalc"

type SchedulerServiceInterface interface {
	Run(ctx context.Context)
	RecalcDueStatuses(ctx context.Context) (int, error)
}

// SchedulerService - фоновый пересчёт сроков поверки. Раз в сутки проходит
// по всему действующему парку и помечает просроченные единицы. Каждая
// единица обрабатывается в своей короткой транзакции: сбой по одной не
// трогает остальные, а конкурирующая выдача просто выигрывает блокировку.
type SchedulerService struct {
	txm           repositories.TxManagerInterface
	gaugeRepo     repositories.GaugeRepositoryInterface
	auditRepo     repositories.AuditRepositoryInterface
	cache         repositories.CacheRepositoryInterface
	bus           *eventbus.Bus
	interval      time.Duration
	workerLimit   int
	dueSoonWindow time.Duration
	jobLockTTL    time.Duration
	logger        *zap.Logger
}

func NewSchedulerService(
	txm repositories.TxManagerInterface,
	gaugeRepo repositories.GaugeRepositoryInterface,
	auditRepo repositories.AuditRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	bus *eventbus.Bus,
	interval time.Duration,
	workerLimit int,
	dueSoonWindow time.Duration,
	jobLockTTL time.Duration,
	logger *zap.Logger,
) SchedulerServiceInterface {
	return &SchedulerService{
		txm:           txm,
		gaugeRepo:     gaugeRepo,
		auditRepo:     auditRepo,
		cache:         cache,
		bus:           bus,
		interval:      interval,
		workerLimit:   workerLimit,
		dueSoonWindow: dueSoonWindow,
		jobLockTTL:    jobLockTTL,
		logger:        logger,
	}
}

// Run крутит пересчёт по тикеру до отмены контекста. Первый проход
// выполняется сразу при старте.
func (s *SchedulerService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if flagged, err := s.RecalcDueStatuses(ctx); err != nil {
			s.logger.Error("Пересчёт сроков поверки завершился с ошибкой", zap.Error(err))
		} else {
			s.logger.Info("Пересчёт сроков поверки завершён", zap.Int("flagged", flagged))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RecalcDueStatuses - один проход пересчёта. Распределённая блокировка в
// Redis не даёт двум экземплярам сервиса гонять пересчёт одновременно.
func (s *SchedulerService) RecalcDueStatuses(ctx context.Context) (int, error) {
	acquired, err := s.cache.SetNX(ctx, repositories.RecalcJobLockKey, recalcJobName, s.jobLockTTL)
	if err != nil {
		return 0, err
	}
	if !acquired {
		s.logger.Info("Пересчёт уже выполняется другим экземпляром, проход пропущен")
		return 0, nil
	}
	defer func() {
		if err := s.cache.Del(context.Background(), repositories.RecalcJobLockKey); err != nil {
			s.logger.Warn("Не удалось снять блокировку задачи пересчёта", zap.Error(err))
		}
	}()

	ids, err := s.gaugeRepo.ListActiveForRecalc(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	flagged := make(chan events.GaugeBecameOverdueEvent, len(ids))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerLimit)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			event, err := s.recalcOne(groupCtx, id, now)
			if err != nil {
				// Одна зависшая строка не должна останавливать проход.
				s.logger.Warn("Не удалось пересчитать срок поверки", zap.Uint64("gaugeId", id), zap.Error(err))
				return nil
			}
			if event != nil {
				flagged <- *event
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	close(flagged)

	count := 0
	for event := range flagged {
		count++
		s.bus.Publish(ctx, event)
	}
	return count, nil
}

// recalcOne перепроверяет одну единицу под блокировкой строки. Переход
// выполняется только из AVAILABLE: оборудование на руках или в поверке
// не трогаем, его статус важнее флага просрочки.
func (s *SchedulerService) recalcOne(ctx context.Context, id uint64, now time.Time) (*events.GaugeBecameOverdueEvent, error) {
	var event *events.GaugeBecameOverdueEvent
	txID := uuid.New()

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		g, err := s.gaugeRepo.FindGaugeForUpdateInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if g.Status != constants.StatusAvailable {
			return nil
		}
		if !g.CalibrationDueAt.Valid {
			return nil
		}

		switch ClassifyDue(g.CalibrationDueAt.Time, now, s.dueSoonWindow) {
		case DueStateCurrent:
			return nil
		case DueStateDueSoon:
			s.logger.Info("Срок поверки подходит",
				zap.String("number", g.Number),
				zap.Time("dueAt", g.CalibrationDueAt.Time))
			return nil
		}

		oldValue := snapshotJSON(g)
		if err := s.gaugeRepo.UpdateGaugeInTx(ctx, tx, g.ID, map[string]interface{}{
			"status": constants.StatusCalibrationDue,
		}); err != nil {
			return err
		}

		g.Status = constants.StatusCalibrationDue
		entry := &entities.AuditEntry{
			EntityType: constants.AuditEntityGauge,
			EntityID:   g.ID,
			Action:     constants.AuditActionOverdueFlag,
			OldValue:   oldValue,
			NewValue:   snapshotJSON(g),
			Actor:      entities.SystemActor(recalcJobName),
			TxID:       txID,
		}
		if err := s.auditRepo.CreateInTx(ctx, tx, entry); err != nil {
			return err
		}

		event = &events.GaugeBecameOverdueEvent{
			GaugeID:   g.ID,
			Number:    g.Number,
			GaugeName: g.Name,
			DueAt:     g.CalibrationDueAt.Time,
			FlaggedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if event != nil {
		if err := s.cache.Del(ctx, repositories.GaugeCacheKey(id)); err != nil {
			s.logger.Warn("Не удалось сбросить кеш снимка", zap.Uint64("gaugeId", id), zap.Error(err))
		}
	}
	return event, nil
}
