package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

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

type LifecycleServiceInterface interface {
	CreateGauge(ctx context.Context, gaugeData dto.CreateGaugeDTO) (*dto.GaugeDTO, error)
	FindGauge(ctx context.Context, id uint64) (*dto.GaugeDTO, error)
	Checkout(ctx context.Context, checkoutData dto.CheckoutDTO) (*dto.CheckoutStateDTO, error)
	Return(ctx context.Context, returnData dto.ReturnDTO) (*dto.GaugeDTO, error)
	QCAccept(ctx context.Context, acceptData dto.QCAcceptDTO) (*dto.GaugeDTO, error)
	Transfer(ctx context.Context, transferData dto.TransferDTO) (*dto.CheckoutStateDTO, error)
	RequestUnseal(ctx context.Context, requestData dto.RequestUnsealDTO) (*dto.UnsealRequestDTO, error)
	DecideUnseal(ctx context.Context, decideData dto.DecideUnsealDTO) (*dto.GaugeDTO, error)
	CancelUnseal(ctx context.Context, cancelData dto.CancelUnsealDTO) (*dto.UnsealRequestDTO, error)
	SendToCalibration(ctx context.Context, sendData dto.SendToCalibrationDTO) (*dto.BatchOutcomeDTO, error)
	ReceiveCalibration(ctx context.Context, receiveData dto.ReceiveCalibrationDTO) (*dto.GaugeDTO, error)
	Recover(ctx context.Context, recoverData dto.RecoverDTO) (*dto.GaugeDTO, error)
	Retire(ctx context.Context, retireData dto.RetireDTO) (*dto.GaugeDTO, error)
}

// LifecycleService - движок жизненного цикла оборудования. Каждый переход:
// валидация входа -> одна транзакция -> перечитывание строки FOR UPDATE ->
// проверка предусловий -> мутации -> запись аудита -> коммит. Все проверки
// идут до первой записи; любая ошибка внутри транзакции откатывает её
// целиком. Движок никогда не повторяет переход сам - ретраи принадлежат
// вызывающему слою.
type LifecycleService struct {
	txm             repositories.TxManagerInterface
	gaugeRepo       repositories.GaugeRepositoryInterface
	checkoutRepo    repositories.CheckoutRepositoryInterface
	unsealRepo      repositories.UnsealRepositoryInterface
	calibrationRepo repositories.CalibrationRepositoryInterface
	auditRepo       repositories.AuditRepositoryInterface
	counterRepo     repositories.CounterRepositoryInterface
	pairing         *PairingService
	cache           repositories.CacheRepositoryInterface
	cacheTTL        time.Duration
	validate        *validator.Validate
	logger          *zap.Logger
}

func NewLifecycleService(
	txm repositories.TxManagerInterface,
	gaugeRepo repositories.GaugeRepositoryInterface,
	checkoutRepo repositories.CheckoutRepositoryInterface,
	unsealRepo repositories.UnsealRepositoryInterface,
	calibrationRepo repositories.CalibrationRepositoryInterface,
	auditRepo repositories.AuditRepositoryInterface,
	counterRepo repositories.CounterRepositoryInterface,
	pairing *PairingService,
	cache repositories.CacheRepositoryInterface,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) LifecycleServiceInterface {
	return &LifecycleService{
		txm:             txm,
		gaugeRepo:       gaugeRepo,
		checkoutRepo:    checkoutRepo,
		unsealRepo:      unsealRepo,
		calibrationRepo: calibrationRepo,
		auditRepo:       auditRepo,
		counterRepo:     counterRepo,
		pairing:         pairing,
		cache:           cache,
		cacheTTL:        cacheTTL,
		validate:        validate,
		logger:          logger,
	}
}

func (s *LifecycleService) validateInput(input interface{}) error {
	if err := s.validate.Struct(input); err != nil {
		return apperrors.NewValidationError("неверные входные данные: %v", err)
	}
	return nil
}

func (s *LifecycleService) writeAudit(ctx context.Context, tx pgx.Tx, g *entities.Gauge, action string, oldValue null.String, actor entities.Actor, reason string, txID uuid.UUID) error {
	return s.auditRepo.CreateInTx(ctx, tx, &entities.AuditEntry{
		EntityType: constants.AuditEntityGauge,
		EntityID:   g.ID,
		Action:     action,
		OldValue:   oldValue,
		NewValue:   snapshotJSON(g),
		Actor:      actor,
		Reason:     null.NewString(reason, reason != ""),
		TxID:       txID,
	})
}

func (s *LifecycleService) invalidateCache(ctx context.Context, ids ...uint64) {
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if err := s.cache.Del(ctx, repositories.GaugeCacheKey(id)); err != nil {
			s.logger.Warn("Не удалось сбросить кеш снимка", zap.Uint64("gaugeId", id), zap.Error(err))
		}
	}
}

// CreateGauge заводит новую единицу оборудования. Системный номер берётся
// из счётчика категории под блокировкой - в той же транзакции, что и
// вставка строки.
func (s *LifecycleService) CreateGauge(ctx context.Context, gaugeData dto.CreateGaugeDTO) (*dto.GaugeDTO, error) {
	if err := s.validateInput(gaugeData); err != nil {
		return nil, err
	}

	var result dto.GaugeDTO
	txID := uuid.New()

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		seq, err := s.counterRepo.NextValueInTx(ctx, tx, gaugeData.Category)
		if err != nil {
			return err
		}

		now := time.Now()
		g := &entities.Gauge{
			Number:                  fmt.Sprintf("%s-%05d", constants.CategoryPrefixes[gaugeData.Category], seq),
			Name:                    gaugeData.Name,
			Category:                gaugeData.Category,
			Status:                  constants.StatusAvailable,
			Sealed:                  gaugeData.Sealed,
			CalibrationIntervalDays: gaugeData.CalibrationIntervalDays,
			Location:                null.NewString(gaugeData.Location, gaugeData.Location != ""),
			IsSpare:                 gaugeData.IsSpare,
		}
		// Срок поверки не бывает пустым: для опломбированной единицы он
		// идёт от даты заведения (как от сертификата), для распломбированной
		// фиксируется момент снятия пломбы.
		if gaugeData.Sealed {
			g.CalibrationDueAt = null.TimeFrom(DueFromCertificate(now, g.CalibrationIntervalDays))
		} else {
			g.UnsealedAt = null.TimeFrom(now)
			g.CalibrationDueAt = null.TimeFrom(DueFromUnseal(now, g.CalibrationIntervalDays))
		}

		newID, err := s.gaugeRepo.CreateGaugeInTx(ctx, tx, g)
		if err != nil {
			return err
		}

		fresh, err := s.gaugeRepo.FindGaugeInTx(ctx, tx, newID)
		if err != nil {
			return err
		}
		if err := s.writeAudit(ctx, tx, fresh, constants.AuditActionCreate, null.String{}, entities.UserActor(gaugeData.ActorID), "", txID); err != nil {
			return err
		}

		result = gaugeToDTO(fresh)
		return nil
	})
	if err != nil {
		s.logger.Error("Не удалось создать оборудование", zap.String("name", gaugeData.Name), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Создано оборудование", zap.String("number", result.Number), zap.Uint64("id", result.ID))
	return &result, nil
}

// FindGauge - чтение снимка с кешем.
func (s *LifecycleService) FindGauge(ctx context.Context, id uint64) (*dto.GaugeDTO, error) {
	cacheKey := repositories.GaugeCacheKey(id)
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		var snapshot dto.GaugeDTO
		if err := json.Unmarshal([]byte(cached), &snapshot); err == nil {
			return &snapshot, nil
		}
	}

	g, err := s.gaugeRepo.FindGauge(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshot := gaugeToDTO(g)

	if serialized, err := json.Marshal(snapshot); err == nil {
		if err := s.cache.Set(ctx, cacheKey, serialized, s.cacheTTL); err != nil {
			s.logger.Warn("Не удалось записать снимок в кеш", zap.Uint64("gaugeId", id), zap.Error(err))
		}
	}
	return &snapshot, nil
}

// Checkout - выдача на руки (available -> checked_out).
func (s *LifecycleService) Checkout(ctx context.Context, checkoutData dto.CheckoutDTO) (*dto.CheckoutStateDTO, error) {
	if err := s.validateInput(checkoutData); err != nil {
		return nil, err
	}

	holderID := checkoutData.TargetID
	if holderID == 0 {
		holderID = checkoutData.ActorID
	}

	var result dto.CheckoutStateDTO
	txID := uuid.New()

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		g, err := s.gaugeRepo.FindGaugeForUpdateInTx(ctx, tx, checkoutData.GaugeID)
		if err != nil {
			return err
		}

		if g.Status == constants.StatusCheckedOut {
			holder, fio, err := s.checkoutRepo.FindOpenHolderFioInTx(ctx, tx, g.ID)
			if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
				return err
			}
			return &apperrors.CheckoutConflictError{GaugeID: g.ID, HolderID: holder, HolderFio: fio}
		}
		if constants.IsCheckoutBlocked(g.Status) {
			return apperrors.NewBlockedError("выдача №%s запрещена: статус %s", g.Number, g.Status)
		}
		if g.Sealed {
			return apperrors.NewBlockedError("оборудование №%s опломбировано: сначала оформите заявку на распломбировку", g.Number)
		}

		oldValue := snapshotJSON(g)

		checkout, err := s.checkoutRepo.OpenInTx(ctx, tx, g.ID, checkoutData.ActorID, holderID, checkoutData.Note)
		if err != nil {
			return err
		}
		if err := s.gaugeRepo.UpdateGaugeInTx(ctx, tx, g.ID, map[string]interface{}{
			"status": constants.StatusCheckedOut,
		}); err != nil {
			return err
		}

		g.Status = constants.StatusCheckedOut
		if err := s.writeAudit(ctx, tx, g, constants.AuditActionCheckout, oldValue, entities.UserActor(checkoutData.ActorID), checkoutData.Note, txID); err != nil {
			return err
		}

		result = dto.CheckoutStateDTO{Gauge: gaugeToDTO(g), Checkout: checkoutToDTO(checkout)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, checkoutData.GaugeID)
	return &result, nil
}

// Return - возврат (checked_out -> pending_qc). Вернуть может любой, не
// только держатель: оборудование нередко сдаёт сменщик.
func (s *LifecycleService) Return(ctx context.Context, returnData dto.ReturnDTO) (*dto.GaugeDTO, error) {
	if err := s.validateInput(returnData); err != nil {
		return nil, err
	}

	var result dto.GaugeDTO
	txID := uuid.New()

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		g, err := s.gaugeRepo.FindGaugeForUpdateInTx(ctx, tx, returnData.GaugeID)
		if err != nil {
			return err
		}
		if g.Status != constants.StatusCheckedOut {
			return apperrors.NewInvalidStateError("оборудование №%s не выдано на руки (статус %s)", g.Number, g.Status)
		}

		checkout, err := s.checkoutRepo.FindOpenByGaugeInTx(ctx, tx, g.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewInvalidStateError("по оборудованию №%s нет открытой записи выдачи", g.Number)
			}
			return err
		}
		if err := s.checkoutRepo.CloseInTx(ctx, tx, checkout.ID, returnData.Condition); err != nil {
			return err
		}

		oldValue := snapshotJSON(g)
		if err := s.gaugeRepo.UpdateGaugeInTx(ctx, tx, g.ID, map[string]interface{}{
			"status": constants.StatusPendingQC,
		}); err != nil {
			return err
		}

		g.Status = constants.StatusPendingQC
		if err := s.writeAudit(ctx, tx, g, constants.AuditActionReturn, oldValue, entities.UserActor(returnData.ActorID), returnData.Note, txID); err != nil {
			return err
		}

		result = gaugeToDTO(g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, returnData.GaugeID)
	return &result, nil
}

// QCAccept - приёмка ОТК (pending_qc -> available), с необязательным
// обновлением места хранения. Право на операцию проверяет вызывающий
// слой; движок фиксирует актора в аудите.
func (s *LifecycleService) QCAccept(ctx context.Context, acceptData dto.QCAcceptDTO) (*dto.GaugeDTO, error) {
	if err := s.validateInput(acceptData); err != nil {
		return nil, err
	}

	var result dto.GaugeDTO
	txID := uuid.New()

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		g, err := s.gaugeRepo.FindGaugeForUpdateInTx(ctx, tx, acceptData.GaugeID)
		if err != nil {
			return err
		}
		if g.Status != constants.StatusPendingQC {
			return apperrors.NewInvalidStateError("оборудование №%s не ожидает приёмки (статус %s)", g.Number, g.Status)
		}

		oldValue := snapshotJSON(g)
		set := map[string]interface{}{"status": constants.StatusAvailable}
		if acceptData.Location != "" {
			set["location"] = acceptData.Location
		}
		if err := s.gaugeRepo.UpdateGaugeInTx(ctx, tx, g.ID, set); err != nil {
			return err
		}

		g.Status = constants.StatusAvailable
		if acceptData.Location != "" {
			g.Location = null.StringFrom(acceptData.Location)
		}
		if err := s.writeAudit(ctx, tx, g, constants.AuditActionQCAccept, oldValue, entities.UserActor(acceptData.ActorID), "", txID); err != nil {
			return err
		}

		result = gaugeToDTO(g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, acceptData.GaugeID)
	return &result, nil
}

// Transfer - передача между держателями. Инициировать может только
// текущий держатель. Старая запись закрывается и новая открывается в
// одной транзакции: двух открытых записей не бывает.
func (s *LifecycleService) Transfer(ctx context.Context, transferData dto.TransferDTO) (*dto.CheckoutStateDTO, error) {
	if err := s.validateInput(transferData); err != nil {
		return nil, err
	}

	var result dto.CheckoutStateDTO
	txID := uuid.New()

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		g, err := s.gaugeRepo.FindGaugeForUpdateInTx(ctx, tx, transferData.GaugeID)
		if err != nil {
			return err
		}
		if g.Status != constants.StatusCheckedOut {
			return apperrors.NewInvalidStateError("оборудование №%s не выдано на руки (статус %s)", g.Number, g.Status)
		}

		current, err := s.checkoutRepo.FindOpenByGaugeInTx(ctx, tx, g.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewInvalidStateError("по оборудованию №%s нет открытой записи выдачи", g.Number)
			}
			return err
		}
		if current.HolderID != transferData.ActorID {
			return apperrors.NewForbiddenError("передать оборудование №%s может только текущий держатель", g.Number)
		}

		if err := s.checkoutRepo.CloseInTx(ctx, tx, current.ID, constants.ReturnConditionOK); err != nil {
			return err
		}
		next, err := s.checkoutRepo.OpenInTx(ctx, tx, g.ID, transferData.ActorID, transferData.ToUserID, transferData.Note)
		if err != nil {
			return err
		}

		// Статус не меняется, но аудит фиксирует смену держателя.
		if err := s.writeAudit(ctx, tx, g, constants.AuditActionTransfer, snapshotJSON(g), entities.UserActor(transferData.ActorID),
			fmt.Sprintf("держатель %d -> %d", current.HolderID, transferData.ToUserID), txID); err != nil {
			return err
		}

		result = dto.CheckoutStateDTO{Gauge: gaugeToDTO(g), Checkout: checkoutToDTO(next)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, transferData.GaugeID)
	return &result, nil
}

// RequestUnseal - заявка на распломбировку опломбированного оборудования.
func (s *LifecycleService) RequestUnseal(ctx context.Context, requestData dto.RequestUnsealDTO) (*dto.UnsealRequestDTO, error) {
	if err := s.validateInput(requestData); err != nil {
		return nil, err
	}

	var result dto.UnsealRequestDTO
	txID := uuid.New()

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		g, err := s.gaugeRepo.FindGaugeForUpdateInTx(ctx, tx, requestData.GaugeID)
		if err != nil {
			return err
		}
		if !g.Sealed {
			return apperrors.NewInvalidStateError("оборудование №%s не опломбировано", g.Number)
		}

		pending, err := s.unsealRepo.HasPendingByGaugeInTx(ctx, tx, g.ID)
		if err != nil {
			return err
		}
		if pending {
			return apperrors.NewConflictError("по оборудованию №%s уже есть нерассмотренная заявка", g.Number)
		}

		request, err := s.unsealRepo.CreateInTx(ctx, tx, g.ID, requestData.RequesterID, requestData.Reason)
		if err != nil {
			return err
		}
		if err := s.writeAudit(ctx, tx, g, constants.AuditActionUnsealRequest, snapshotJSON(g), entities.UserActor(requestData.RequesterID), requestData.Reason, txID); err != nil {
			return err
		}

		result = unsealToDTO(request)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DecideUnseal - решение по заявке. Одобрение снимает пломбу, фиксирует
// unsealed_at и пересчитывает срок поверки: с этого момента часы идут от
// даты распломбировки.
func (s *LifecycleService) DecideUnseal(ctx context.Context, decideData dto.DecideUnsealDTO) (*dto.GaugeDTO, error) {
	if err := s.validateInput(decideData); err != nil {
		return nil, err
	}

	var result dto.GaugeDTO
	var gaugeID uint64
	txID := uuid.New()

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		request, err := s.unsealRepo.FindForUpdateInTx(ctx, tx, decideData.RequestID)
		if err != nil {
			return err
		}
		if request.Status != constants.UnsealPending {
			return apperrors.NewInvalidStateError("заявка №%d уже решена (статус %s)", request.ID, request.Status)
		}

		g, err := s.gaugeRepo.FindGaugeForUpdateInTx(ctx, tx, request.GaugeID)
		if err != nil {
			return err
		}
		gaugeID = g.ID

		if !decideData.Approve {
			if err := s.unsealRepo.DecideInTx(ctx, tx, request.ID, constants.UnsealDenied, decideData.ActorID, decideData.Reason); err != nil {
				return err
			}
			if err := s.writeAudit(ctx, tx, g, constants.AuditActionUnsealDeny, snapshotJSON(g), entities.UserActor(decideData.ActorID), decideData.Reason, txID); err != nil {
				return err
			}
			result = gaugeToDTO(g)
			return nil
		}

		if g.Status == constants.StatusAtCalibration {
			return apperrors.NewConflictError("оборудование №%s сейчас в поверке, распломбировка невозможна", g.Number)
		}
		if !g.Sealed {
			return apperrors.NewInvalidStateError("оборудование №%s уже распломбировано", g.Number)
		}

		oldValue := snapshotJSON(g)
		now := time.Now()
		dueAt := DueFromUnseal(now, g.CalibrationIntervalDays)

		if err := s.gaugeRepo.UpdateGaugeInTx(ctx, tx, g.ID, map[string]interface{}{
			"sealed":             false,
			"unsealed_at":        now,
			"calibration_due_at": dueAt,
		}); err != nil {
			return err
		}
		if err := s.unsealRepo.DecideInTx(ctx, tx, request.ID, constants.UnsealApproved, decideData.ActorID, decideData.Reason); err != nil {
			return err
		}

		g.Sealed = false
		g.UnsealedAt = null.TimeFrom(now)
		g.CalibrationDueAt = null.TimeFrom(dueAt)
		if err := s.writeAudit(ctx, tx, g, constants.AuditActionUnsealApprove, oldValue, entities.UserActor(decideData.ActorID), decideData.Reason, txID); err != nil {
			return err
		}

		result = gaugeToDTO(g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, gaugeID)
	return &result, nil
}

// CancelUnseal - отзыв заявки на распломбировку её автором до решения.
// Пломба остаётся на месте, после отзыва можно подать новую заявку.
func (s *LifecycleService) CancelUnseal(ctx context.Context, cancelData dto.CancelUnsealDTO) (*dto.UnsealRequestDTO, error) {
	if err := s.validateInput(cancelData); err != nil {
		return nil, err
	}

	var result dto.UnsealRequestDTO
	txID := uuid.New()

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		request, err := s.unsealRepo.FindForUpdateInTx(ctx, tx, cancelData.RequestID)
		if err != nil {
			return err
		}
		if constants.IsUnsealFinal(request.Status) {
			return apperrors.NewInvalidStateError("заявка №%d уже решена (статус %s)", request.ID, request.Status)
		}
		if request.RequesterID != cancelData.ActorID {
			return apperrors.NewForbiddenError("отозвать заявку №%d может только её автор", request.ID)
		}

		g, err := s.gaugeRepo.FindGaugeForUpdateInTx(ctx, tx, request.GaugeID)
		if err != nil {
			return err
		}
		if err := s.unsealRepo.DecideInTx(ctx, tx, request.ID, constants.UnsealCancelled, cancelData.ActorID, cancelData.Reason); err != nil {
			return err
		}
		if err := s.writeAudit(ctx, tx, g, constants.AuditActionUnsealCancel, snapshotJSON(g), entities.UserActor(cancelData.ActorID), cancelData.Reason, txID); err != nil {
			return err
		}

		request.Status = constants.UnsealCancelled
		request.DecidedBy = null.Uint64From(cancelData.ActorID)
		request.DecidedAt = null.TimeFrom(time.Now())
		result = unsealToDTO(request)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SendToCalibration - групповая отправка в поверку. Одна транзакция на
// весь набор: блокировки берутся в порядке возрастания id (защита от
// взаимных блокировок с другими групповыми операциями), при отказе по
// любой единице откатывается весь набор.
func (s *LifecycleService) SendToCalibration(ctx context.Context, sendData dto.SendToCalibrationDTO) (*dto.BatchOutcomeDTO, error) {
	if err := s.validateInput(sendData); err != nil {
		return nil, err
	}

	ids := make([]uint64, len(sendData.GaugeIDs))
	copy(ids, sendData.GaugeIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	txID := uuid.New()
	actor := entities.UserActor(sendData.ActorID)

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		for _, id := range ids {
			g, err := s.gaugeRepo.FindGaugeForUpdateInTx(ctx, tx, id)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return apperrors.NewValidationError("оборудование с id %d не найдено, набор отклонён", id)
				}
				return err
			}

			switch g.Status {
			case constants.StatusRetired:
				return apperrors.NewInvalidStateError("оборудование №%s списано, набор отклонён", g.Number)
			case constants.StatusAtCalibration:
				return apperrors.NewInvalidStateError("оборудование №%s уже в поверке, набор отклонён", g.Number)
			case constants.StatusCheckedOut:
				return apperrors.NewConflictError("оборудование №%s на руках, сначала верните его", g.Number)
			}

			oldValue := snapshotJSON(g)
			if err := s.gaugeRepo.UpdateGaugeInTx(ctx, tx, g.ID, map[string]interface{}{
				"status": constants.StatusAtCalibration,
			}); err != nil {
				return err
			}

			g.Status = constants.StatusAtCalibration
			if err := s.writeAudit(ctx, tx, g, constants.AuditActionCalibrationSend, oldValue, actor, "", txID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, ids...)
	return &dto.BatchOutcomeDTO{Sent: len(ids), GaugeIDs: ids}, nil
}

// ReceiveCalibration - приём из поверки. Положительный результат пломбирует
// оборудование: unsealed_at очищается, срок идёт от даты сертификата
// (опломбировка сбрасывает базу отсчёта). Отрицательный - выводит из
// эксплуатации. Сертификат обязателен для пройденной внешней поверки и
// проверяется до каких-либо записей.
func (s *LifecycleService) ReceiveCalibration(ctx context.Context, receiveData dto.ReceiveCalibrationDTO) (*dto.GaugeDTO, error) {
	if err := s.validateInput(receiveData); err != nil {
		return nil, err
	}
	if receiveData.Passed && receiveData.Method == constants.CalibrationMethodExternal && receiveData.CertificateRef == "" {
		return nil, apperrors.NewValidationError("для пройденной внешней поверки обязателен номер сертификата")
	}

	var result dto.GaugeDTO
	txID := uuid.New()

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		g, err := s.gaugeRepo.FindGaugeForUpdateInTx(ctx, tx, receiveData.GaugeID)
		if err != nil {
			return err
		}
		if g.Status != constants.StatusAtCalibration {
			return apperrors.NewInvalidStateError("оборудование №%s не находится в поверке (статус %s)", g.Number, g.Status)
		}

		record := &entities.CalibrationRecord{
			GaugeID:        g.ID,
			Method:         receiveData.Method,
			Passed:         receiveData.Passed,
			CertificateRef: null.NewString(receiveData.CertificateRef, receiveData.CertificateRef != ""),
			Notes:          null.NewString(receiveData.Notes, receiveData.Notes != ""),
			TechnicianID:   receiveData.TechnicianID,
		}
		if _, err := s.calibrationRepo.CreateInTx(ctx, tx, record); err != nil {
			return err
		}

		oldValue := snapshotJSON(g)

		if receiveData.Passed {
			dueAt := DueFromCertificate(record.PerformedAt, g.CalibrationIntervalDays)
			if err := s.gaugeRepo.UpdateGaugeInTx(ctx, tx, g.ID, map[string]interface{}{
				"status":             constants.StatusAvailable,
				"sealed":             true,
				"unsealed_at":        nil,
				"calibration_due_at": dueAt,
			}); err != nil {
				return err
			}
			g.Status = constants.StatusAvailable
			g.Sealed = true
			g.UnsealedAt = null.Time{}
			g.CalibrationDueAt = null.TimeFrom(dueAt)
		} else {
			if err := s.gaugeRepo.UpdateGaugeInTx(ctx, tx, g.ID, map[string]interface{}{
				"status": constants.StatusOutOfService,
			}); err != nil {
				return err
			}
			g.Status = constants.StatusOutOfService
		}

		if err := s.writeAudit(ctx, tx, g, constants.AuditActionCalibrationReceive, oldValue, entities.UserActor(receiveData.TechnicianID), receiveData.Notes, txID); err != nil {
			return err
		}

		result = gaugeToDTO(g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, receiveData.GaugeID)
	return &result, nil
}

// Recover - ремонт зависших статусов (pending_transfer / pending_qc).
// Новый статус выбирается сравнением срока поверки с текущим моментом.
// Пломба, unsealed_at и история поверок не затрагиваются: это источник
// истины, который восстановление не переписывает.
func (s *LifecycleService) Recover(ctx context.Context, recoverData dto.RecoverDTO) (*dto.GaugeDTO, error) {
	if err := s.validateInput(recoverData); err != nil {
		return nil, err
	}

	var result dto.GaugeDTO
	txID := uuid.New()

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		g, err := s.gaugeRepo.FindGaugeForUpdateInTx(ctx, tx, recoverData.GaugeID)
		if err != nil {
			return err
		}
		if !constants.IsRecoverable(g.Status) {
			return apperrors.NewInvalidStateError("статус %s оборудования №%s восстановлению не подлежит", g.Status, g.Number)
		}

		newStatus := constants.StatusAvailable
		if g.CalibrationDueAt.Valid && IsOverdue(g.CalibrationDueAt.Time, time.Now()) {
			newStatus = constants.StatusCalibrationDue
		}

		oldValue := snapshotJSON(g)
		if err := s.gaugeRepo.UpdateGaugeInTx(ctx, tx, g.ID, map[string]interface{}{
			"status": newStatus,
		}); err != nil {
			return err
		}

		g.Status = newStatus
		if err := s.writeAudit(ctx, tx, g, constants.AuditActionRecover, oldValue, entities.UserActor(recoverData.ActorID), recoverData.Reason, txID); err != nil {
			return err
		}

		result = gaugeToDTO(g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, recoverData.GaugeID)
	return &result, nil
}

// Retire - списание. Жёсткого удаления нет: строка остаётся, статус
// становится терминальным. Парный калибр предварительно отсоединяется в
// той же транзакции - инвариант пары действует только для несписанных.
func (s *LifecycleService) Retire(ctx context.Context, retireData dto.RetireDTO) (*dto.GaugeDTO, error) {
	if err := s.validateInput(retireData); err != nil {
		return nil, err
	}

	var result dto.GaugeDTO
	var companionID uint64
	txID := uuid.New()

	err := s.txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		preview, err := s.gaugeRepo.FindGaugeInTx(ctx, tx, retireData.GaugeID)
		if err != nil {
			return err
		}

		var g *entities.Gauge
		actor := entities.UserActor(retireData.ActorID)

		if preview.IsPaired() {
			companionID = preview.CompanionID.Uint64
			locked, companion, err := s.pairing.lockBothInTx(ctx, tx, retireData.GaugeID, companionID)
			if err != nil {
				return err
			}
			if locked.IsPaired() {
				// Состав комплекта мог измениться между предварительным чтением
				// и взятием блокировки.
				if locked.CompanionID.Uint64 != companion.ID {
					return apperrors.NewConflictError("состав комплекта №%s изменился, повторите операцию", locked.Number)
				}
				if _, err := s.pairing.unpairLockedInTx(ctx, tx, locked, companion, actor, txID); err != nil {
					return err
				}
				locked.CompanionID = null.Uint64{}
				locked.PairSuffix = null.String{}
			}
			g = locked
		} else {
			g, err = s.gaugeRepo.FindGaugeForUpdateInTx(ctx, tx, retireData.GaugeID)
			if err != nil {
				return err
			}
			if g.IsPaired() {
				return apperrors.NewConflictError("оборудование №%s вошло в комплект, повторите операцию", g.Number)
			}
		}

		if g.Status == constants.StatusRetired {
			return apperrors.NewInvalidStateError("оборудование №%s уже списано", g.Number)
		}
		if g.Status == constants.StatusCheckedOut {
			return apperrors.NewConflictError("оборудование №%s на руках, списание невозможно", g.Number)
		}

		oldValue := snapshotJSON(g)
		now := time.Now()
		if err := s.gaugeRepo.UpdateGaugeInTx(ctx, tx, g.ID, map[string]interface{}{
			"status":     constants.StatusRetired,
			"deleted_at": now,
		}); err != nil {
			return err
		}

		g.Status = constants.StatusRetired
		g.DeletedAt = null.TimeFrom(now)
		if err := s.writeAudit(ctx, tx, g, constants.AuditActionRetire, oldValue, actor, retireData.Reason, txID); err != nil {
			return err
		}

		result = gaugeToDTO(g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, retireData.GaugeID, companionID)
	return &result, nil
}
