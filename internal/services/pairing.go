package services

import (
	"context"

	"gauge-system/internal/dto"
	"gauge-system/internal/entities"
	"gauge-system/internal/repositories"
	"gauge-system/pkg/constants"
	apperrors "gauge-system/pkg/errors"

	"github.com/aarondl/null/v8"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PairingServiceInterface interface {
	Pair(ctx context.Context, pairData dto.PairDTO) (*dto.GaugeDTO, *dto.GaugeDTO, error)
	Unpair(ctx context.Context, unpairData dto.UnpairDTO) (*dto.GaugeDTO, error)
}

// PairingService поддерживает двунаправленные комплекты ПР/НЕ (GO/NO-GO).
// Обе строки пары всегда блокируются как одно целое, в порядке возрастания
// id, поэтому взаимная блокировка с конкурентными операциями исключена.
type PairingService struct {
	txm       repositories.TxManagerInterface
	gaugeRepo repositories.GaugeRepositoryInterface
	auditRepo repositories.AuditRepositoryInterface
	cache     repositories.CacheRepositoryInterface
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewPairingService(
	txm repositories.TxManagerInterface,
	gaugeRepo repositories.GaugeRepositoryInterface,
	auditRepo repositories.AuditRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	validate *validator.Validate,
	logger *zap.Logger,
) *PairingService {
	return &PairingService{
		txm:       txm,
		gaugeRepo: gaugeRepo,
		auditRepo: auditRepo,
		cache:     cache,
		validate:  validate,
		logger:    logger,
	}
}

// lockBothInTx блокирует обе строки по возрастанию id и возвращает их в
// порядке (idA, idB) запроса.
func (s *PairingService) lockBothInTx(ctx context.Context, tx pgx.Tx, idA, idB uint64) (*entities.Gauge, *entities.Gauge, error) {
	first, second := idA, idB
	if second < first {
		first, second = second, first
	}

	lockedFirst, err := s.gaugeRepo.FindGaugeForUpdateInTx(ctx, tx, first)
	if err != nil {
		return nil, nil, err
	}
	lockedSecond, err := s.gaugeRepo.FindGaugeForUpdateInTx(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}

	if lockedFirst.ID == idA {
		return lockedFirst, lockedSecond, nil
	}
	return lockedSecond, lockedFirst, nil
}

func checkPairable(g *entities.Gauge) error {
	if !constants.IsPairableCategory(g.Category) {
		return apperrors.NewInvalidStateError("оборудование №%s (%s) не образует комплектов", g.Number, g.Category)
	}
	if g.Status == constants.StatusRetired {
		return apperrors.NewInvalidStateError("оборудование №%s списано", g.Number)
	}
	if g.IsSpare {
		return apperrors.NewInvalidStateError("оборудование №%s - запасной экземпляр, в комплект не ставится", g.Number)
	}
	if g.IsPaired() {
		return apperrors.NewConflictError("оборудование №%s уже состоит в комплекте", g.Number)
	}
	return nil
}

func (s *PairingService) Pair(ctx context.Context, pairData dto.PairDTO) (*dto.GaugeDTO, *dto.GaugeDTO, error) {
	if err := s.validate.Struct(pairData); err != nil {
		return nil, nil, apperrors.NewValidationError("неверные данные для создания комплекта: %v", err)
	}

	var dtoA, dtoB dto.GaugeDTO
	txID := uuid.New()

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		a, b, err := s.lockBothInTx(ctx, tx, pairData.GaugeAID, pairData.GaugeBID)
		if err != nil {
			return err
		}
		if err := checkPairable(a); err != nil {
			return err
		}
		if err := checkPairable(b); err != nil {
			return err
		}

		// Суффиксы детерминированы: явной ролью ПР/НЕ, иначе порядком создания.
		suffixA, suffixB := constants.PairSuffixA, constants.PairSuffixB
		switch pairData.RoleA {
		case constants.PairRoleGo:
			// ПР-калибр всегда получает суффикс A.
		case constants.PairRoleNoGo:
			suffixA, suffixB = constants.PairSuffixB, constants.PairSuffixA
		default:
			if b.ID < a.ID {
				suffixA, suffixB = constants.PairSuffixB, constants.PairSuffixA
			}
		}

		oldA, oldB := snapshotJSON(a), snapshotJSON(b)

		if err := s.gaugeRepo.UpdateGaugeInTx(ctx, tx, a.ID, map[string]interface{}{
			"companion_id": b.ID,
			"pair_suffix":  suffixA,
		}); err != nil {
			return err
		}
		if err := s.gaugeRepo.UpdateGaugeInTx(ctx, tx, b.ID, map[string]interface{}{
			"companion_id": a.ID,
			"pair_suffix":  suffixB,
		}); err != nil {
			return err
		}

		// Проверка инварианта перед коммитом: обе ссылки разрешаются и
		// указывают друг на друга. Иначе транзакция целиком откатывается -
		// односторонняя пара не должна быть наблюдаема.
		freshA, err := s.gaugeRepo.FindGaugeInTx(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		freshB, err := s.gaugeRepo.FindGaugeInTx(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if !freshA.CompanionID.Valid || freshA.CompanionID.Uint64 != freshB.ID ||
			!freshB.CompanionID.Valid || freshB.CompanionID.Uint64 != freshA.ID {
			return apperrors.NewConflictError("связь комплекта несимметрична, операция отменена")
		}

		actor := entities.UserActor(pairData.ActorID)
		if err := s.writePairAudit(ctx, tx, freshA, oldA, constants.AuditActionPair, actor, txID); err != nil {
			return err
		}
		if err := s.writePairAudit(ctx, tx, freshB, oldB, constants.AuditActionPair, actor, txID); err != nil {
			return err
		}

		dtoA, dtoB = gaugeToDTO(freshA), gaugeToDTO(freshB)
		return nil
	})
	if err != nil {
		s.logger.Warn("Создание комплекта отклонено",
			zap.Uint64("gaugeA", pairData.GaugeAID),
			zap.Uint64("gaugeB", pairData.GaugeBID),
			zap.Error(err))
		return nil, nil, err
	}

	s.invalidate(ctx, pairData.GaugeAID, pairData.GaugeBID)
	return &dtoA, &dtoB, nil
}

func (s *PairingService) Unpair(ctx context.Context, unpairData dto.UnpairDTO) (*dto.GaugeDTO, error) {
	if err := s.validate.Struct(unpairData); err != nil {
		return nil, apperrors.NewValidationError("неверные данные для разъединения комплекта: %v", err)
	}

	var result dto.GaugeDTO
	var companionID uint64
	txID := uuid.New()

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		// Сначала читаем без блокировки, чтобы узнать id пары и залочить
		// обе строки в возрастающем порядке.
		preview, err := s.gaugeRepo.FindGaugeInTx(ctx, tx, unpairData.GaugeID)
		if err != nil {
			return err
		}
		if !preview.IsPaired() {
			return apperrors.NewInvalidStateError("оборудование №%s не состоит в комплекте", preview.Number)
		}
		companionID = preview.CompanionID.Uint64

		g, companion, err := s.lockBothInTx(ctx, tx, unpairData.GaugeID, companionID)
		if err != nil {
			return err
		}
		// Перепроверка после захвата блокировок: пара могла измениться.
		if !g.IsPaired() || g.CompanionID.Uint64 != companion.ID {
			return apperrors.NewConflictError("состав комплекта изменился, повторите операцию")
		}

		actor := entities.UserActor(unpairData.ActorID)
		fresh, err := s.unpairLockedInTx(ctx, tx, g, companion, actor, txID)
		if err != nil {
			return err
		}

		result = gaugeToDTO(fresh)
		return nil
	})
	if err != nil {
		s.logger.Warn("Разъединение комплекта отклонено",
			zap.Uint64("gaugeId", unpairData.GaugeID), zap.Error(err))
		return nil, err
	}

	s.invalidate(ctx, unpairData.GaugeID, companionID)
	return &result, nil
}

// unpairLockedInTx очищает обе стороны пары. Обе строки уже должны быть
// заблокированы вызывающим. Используется и из операции списания движка.
func (s *PairingService) unpairLockedInTx(ctx context.Context, tx pgx.Tx, g, companion *entities.Gauge, actor entities.Actor, txID uuid.UUID) (*entities.Gauge, error) {
	oldG, oldCompanion := snapshotJSON(g), snapshotJSON(companion)

	clear := map[string]interface{}{
		"companion_id": nil,
		"pair_suffix":  nil,
	}
	if err := s.gaugeRepo.UpdateGaugeInTx(ctx, tx, g.ID, clear); err != nil {
		return nil, err
	}
	if err := s.gaugeRepo.UpdateGaugeInTx(ctx, tx, companion.ID, map[string]interface{}{
		"companion_id": nil,
		"pair_suffix":  nil,
	}); err != nil {
		return nil, err
	}

	freshG, err := s.gaugeRepo.FindGaugeInTx(ctx, tx, g.ID)
	if err != nil {
		return nil, err
	}
	freshCompanion, err := s.gaugeRepo.FindGaugeInTx(ctx, tx, companion.ID)
	if err != nil {
		return nil, err
	}

	if err := s.writePairAudit(ctx, tx, freshG, oldG, constants.AuditActionUnpair, actor, txID); err != nil {
		return nil, err
	}
	if err := s.writePairAudit(ctx, tx, freshCompanion, oldCompanion, constants.AuditActionUnpair, actor, txID); err != nil {
		return nil, err
	}
	return freshG, nil
}

func (s *PairingService) writePairAudit(ctx context.Context, tx pgx.Tx, g *entities.Gauge, oldValue null.String, action string, actor entities.Actor, txID uuid.UUID) error {
	return s.auditRepo.CreateInTx(ctx, tx, &entities.AuditEntry{
		EntityType: constants.AuditEntityGauge,
		EntityID:   g.ID,
		Action:     action,
		OldValue:   oldValue,
		NewValue:   snapshotJSON(g),
		Actor:      actor,
		TxID:       txID,
	})
}

func (s *PairingService) invalidate(ctx context.Context, ids ...uint64) {
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if err := s.cache.Del(ctx, repositories.GaugeCacheKey(id)); err != nil {
			s.logger.Warn("Не удалось сбросить кеш снимка", zap.Uint64("gaugeId", id), zap.Error(err))
		}
	}
}
