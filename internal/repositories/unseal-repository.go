package repositories

import (
	"context"
	"errors"
	"fmt"

	"gauge-system/internal/entities"
	"gauge-system/pkg/constants"
	apperrors "gauge-system/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const unsealFields = `id, gauge_id, requester_id, reason, status,
	decided_by, decided_at, decision_reason, created_at`

type UnsealRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, gaugeID, requesterID uint64, reason string) (*entities.UnsealRequest, error)
	FindForUpdateInTx(ctx context.Context, tx pgx.Tx, requestID uint64) (*entities.UnsealRequest, error)
	HasPendingByGaugeInTx(ctx context.Context, tx pgx.Tx, gaugeID uint64) (bool, error)
	DecideInTx(ctx context.Context, tx pgx.Tx, requestID uint64, status string, actorID uint64, reason string) error
}

type UnsealRepository struct {
	storage *pgxpool.Pool
}

func NewUnsealRepository(storage *pgxpool.Pool) UnsealRepositoryInterface {
	return &UnsealRepository{storage: storage}
}

func scanUnsealRequest(row pgx.Row) (*entities.UnsealRequest, error) {
	var req entities.UnsealRequest
	err := row.Scan(
		&req.ID, &req.GaugeID, &req.RequesterID, &req.Reason, &req.Status,
		&req.DecidedBy, &req.DecidedAt, &req.DecisionReason, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования заявки на распломбировку: %w", err)
	}
	return &req, nil
}

func (r *UnsealRepository) CreateInTx(ctx context.Context, tx pgx.Tx, gaugeID, requesterID uint64, reason string) (*entities.UnsealRequest, error) {
	query := fmt.Sprintf(`
		INSERT INTO unseal_requests (gauge_id, requester_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING %s`, unsealFields)

	return scanUnsealRequest(tx.QueryRow(ctx, query, gaugeID, requesterID, reason, constants.UnsealPending))
}

func (r *UnsealRepository) FindForUpdateInTx(ctx context.Context, tx pgx.Tx, requestID uint64) (*entities.UnsealRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM unseal_requests WHERE id = $1 FOR UPDATE`, unsealFields)
	return scanUnsealRequest(tx.QueryRow(ctx, query, requestID))
}

func (r *UnsealRepository) HasPendingByGaugeInTx(ctx context.Context, tx pgx.Tx, gaugeID uint64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM unseal_requests WHERE gauge_id = $1 AND status = $2)`
	if err := tx.QueryRow(ctx, query, gaugeID, constants.UnsealPending).Scan(&exists); err != nil {
		return false, fmt.Errorf("ошибка проверки активных заявок: %w", err)
	}
	return exists, nil
}

// DecideInTx переводит заявку в терминальный статус. Условие по текущему
// статусу защищает неизменяемость уже решённых заявок.
func (r *UnsealRepository) DecideInTx(ctx context.Context, tx pgx.Tx, requestID uint64, status string, actorID uint64, reason string) error {
	query := `
		UPDATE unseal_requests
		SET status = $1, decided_by = $2, decided_at = NOW(), decision_reason = NULLIF($3, '')
		WHERE id = $4 AND status = $5`

	result, err := tx.Exec(ctx, query, status, actorID, reason, requestID, constants.UnsealPending)
	if err != nil {
		return fmt.Errorf("ошибка решения по заявке: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewInvalidStateError("заявка №%d уже решена или не существует", requestID)
	}
	return nil
}
