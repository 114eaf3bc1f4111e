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

const gaugeFields = `id, number, name, category, status, sealed, unsealed_at,
	calibration_due_at, calibration_interval_days, companion_id, pair_suffix,
	location, is_spare, deleted_at, created_at, updated_at`

type GaugeRepositoryInterface interface {
	FindGauge(ctx context.Context, id uint64) (*entities.Gauge, error)
	FindGaugeInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Gauge, error)
	FindGaugeForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Gauge, error)
	CreateGaugeInTx(ctx context.Context, tx pgx.Tx, gauge *entities.Gauge) (uint64, error)
	UpdateGaugeInTx(ctx context.Context, tx pgx.Tx, id uint64, set map[string]interface{}) error
	ListActiveForRecalc(ctx context.Context) ([]uint64, error)
}

type GaugeRepository struct {
	storage *pgxpool.Pool
}

func NewGaugeRepository(storage *pgxpool.Pool) GaugeRepositoryInterface {
	return &GaugeRepository{storage: storage}
}

func scanGauge(row pgx.Row) (*entities.Gauge, error) {
	var g entities.Gauge
	err := row.Scan(
		&g.ID, &g.Number, &g.Name, &g.Category, &g.Status, &g.Sealed, &g.UnsealedAt,
		&g.CalibrationDueAt, &g.CalibrationIntervalDays, &g.CompanionID, &g.PairSuffix,
		&g.Location, &g.IsSpare, &g.DeletedAt, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования оборудования: %w", err)
	}
	return &g, nil
}

func (r *GaugeRepository) FindGauge(ctx context.Context, id uint64) (*entities.Gauge, error) {
	query := fmt.Sprintf(`SELECT %s FROM gauges WHERE id = $1`, gaugeFields)
	return scanGauge(r.storage.QueryRow(ctx, query, id))
}

// FindGaugeInTx - чтение внутри транзакции без блокировки строки.
// Нужен для предварительного определения набора строк, которые затем
// блокируются в порядке возрастания id.
func (r *GaugeRepository) FindGaugeInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Gauge, error) {
	query := fmt.Sprintf(`SELECT %s FROM gauges WHERE id = $1`, gaugeFields)
	return scanGauge(tx.QueryRow(ctx, query, id))
}

// FindGaugeForUpdateInTx перечитывает строку оборудования под FOR UPDATE.
// Все переходы начинаются с этого вызова: он сериализует конкурентные
// мутации одной и той же единицы.
func (r *GaugeRepository) FindGaugeForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Gauge, error) {
	query := fmt.Sprintf(`SELECT %s FROM gauges WHERE id = $1 FOR UPDATE`, gaugeFields)
	return scanGauge(tx.QueryRow(ctx, query, id))
}

func (r *GaugeRepository) CreateGaugeInTx(ctx context.Context, tx pgx.Tx, gauge *entities.Gauge) (uint64, error) {
	query := `
		INSERT INTO gauges (number, name, category, status, sealed, unsealed_at,
			calibration_due_at, calibration_interval_days, location, is_spare,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id`

	var newID uint64
	err := tx.QueryRow(ctx, query,
		gauge.Number, gauge.Name, gauge.Category, gauge.Status, gauge.Sealed,
		gauge.UnsealedAt, gauge.CalibrationDueAt, gauge.CalibrationIntervalDays,
		gauge.Location, gauge.IsSpare,
	).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания записи оборудования: %w", err)
	}
	return newID, nil
}

// UpdateGaugeInTx применяет частичное обновление через схемный доступ:
// набор колонок проверяется по allow-list до построения SQL.
func (r *GaugeRepository) UpdateGaugeInTx(ctx context.Context, tx pgx.Tx, id uint64, set map[string]interface{}) error {
	query, args, err := BuildUpdateByID("gauges", set, id)
	if err != nil {
		return err
	}

	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления оборудования: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListActiveForRecalc отдаёт идентификаторы всех действующих единиц для
// ежедневного пересчёта. Только id: каждая единица потом обрабатывается
// в своей короткой транзакции, без удержания блокировок на весь проход.
func (r *GaugeRepository) ListActiveForRecalc(ctx context.Context) ([]uint64, error) {
	query := `
		SELECT id FROM gauges
		WHERE deleted_at IS NULL AND status <> $1
		ORDER BY id`

	rows, err := r.storage.Query(ctx, query, constants.StatusRetired)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки оборудования для пересчёта: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
