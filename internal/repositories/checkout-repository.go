package repositories

import (
	"context"
	"errors"
	"fmt"

	"gauge-system/internal/entities"
	apperrors "gauge-system/pkg/errors"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const checkoutFields = `id, gauge_id, actor_id, holder_id, note,
	checked_out_at, returned_at, return_condition`

type CheckoutRepositoryInterface interface {
	OpenInTx(ctx context.Context, tx pgx.Tx, gaugeID, actorID, holderID uint64, note string) (*entities.GaugeCheckout, error)
	CloseInTx(ctx context.Context, tx pgx.Tx, checkoutID uint64, condition string) error
	FindOpenByGaugeInTx(ctx context.Context, tx pgx.Tx, gaugeID uint64) (*entities.GaugeCheckout, error)
	FindOpenHolderFioInTx(ctx context.Context, tx pgx.Tx, gaugeID uint64) (uint64, string, error)
}

type CheckoutRepository struct {
	storage *pgxpool.Pool
}

func NewCheckoutRepository(storage *pgxpool.Pool) CheckoutRepositoryInterface {
	return &CheckoutRepository{storage: storage}
}

func scanCheckout(row pgx.Row) (*entities.GaugeCheckout, error) {
	var c entities.GaugeCheckout
	err := row.Scan(
		&c.ID, &c.GaugeID, &c.ActorID, &c.HolderID, &c.Note,
		&c.CheckedOutAt, &c.ReturnedAt, &c.ReturnCondition,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования записи выдачи: %w", err)
	}
	return &c, nil
}

// OpenInTx открывает запись выдачи. Частичный уникальный индекс по
// (gauge_id) WHERE returned_at IS NULL гарантирует не более одной
// открытой записи на единицу даже при гонке.
func (r *CheckoutRepository) OpenInTx(ctx context.Context, tx pgx.Tx, gaugeID, actorID, holderID uint64, note string) (*entities.GaugeCheckout, error) {
	query := fmt.Sprintf(`
		INSERT INTO gauge_checkouts (gauge_id, actor_id, holder_id, note, checked_out_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING %s`, checkoutFields)

	return scanCheckout(tx.QueryRow(ctx, query, gaugeID, actorID, holderID, null.NewString(note, note != "")))
}

// CloseInTx закрывает запись выдачи. Записи не удаляются: история
// владения остаётся полной.
func (r *CheckoutRepository) CloseInTx(ctx context.Context, tx pgx.Tx, checkoutID uint64, condition string) error {
	query := `
		UPDATE gauge_checkouts
		SET returned_at = NOW(), return_condition = $1
		WHERE id = $2 AND returned_at IS NULL`

	result, err := tx.Exec(ctx, query, condition, checkoutID)
	if err != nil {
		return fmt.Errorf("ошибка закрытия записи выдачи: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *CheckoutRepository) FindOpenByGaugeInTx(ctx context.Context, tx pgx.Tx, gaugeID uint64) (*entities.GaugeCheckout, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM gauge_checkouts
		WHERE gauge_id = $1 AND returned_at IS NULL`, checkoutFields)

	return scanCheckout(tx.QueryRow(ctx, query, gaugeID))
}

// FindOpenHolderFioInTx возвращает текущего держателя с ФИО - для
// сообщения об ошибке Conflict при попытке повторной выдачи.
func (r *CheckoutRepository) FindOpenHolderFioInTx(ctx context.Context, tx pgx.Tx, gaugeID uint64) (uint64, string, error) {
	query := `
		SELECT c.holder_id, u.fio
		FROM gauge_checkouts c
		JOIN users u ON u.id = c.holder_id
		WHERE c.gauge_id = $1 AND c.returned_at IS NULL`

	var holderID uint64
	var fio string
	err := tx.QueryRow(ctx, query, gaugeID).Scan(&holderID, &fio)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", apperrors.ErrNotFound
		}
		return 0, "", fmt.Errorf("ошибка поиска текущего держателя: %w", err)
	}
	return holderID, fio, nil
}
