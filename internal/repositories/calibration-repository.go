package repositories

import (
	"context"
	"errors"
	"fmt"

	"gauge-system/internal/entities"
	apperrors "gauge-system/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CalibrationRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, record *entities.CalibrationRecord) (uint64, error)
	FindLatestPassed(ctx context.Context, gaugeID uint64) (*entities.CalibrationRecord, error)
}

// CalibrationRepository - журнал поверок. Только вставка: результат
// поверки после записи не редактируется.
type CalibrationRepository struct {
	storage *pgxpool.Pool
}

func NewCalibrationRepository(storage *pgxpool.Pool) CalibrationRepositoryInterface {
	return &CalibrationRepository{storage: storage}
}

func (r *CalibrationRepository) CreateInTx(ctx context.Context, tx pgx.Tx, record *entities.CalibrationRecord) (uint64, error) {
	query := `
		INSERT INTO calibration_records (gauge_id, method, passed, certificate_ref, notes, technician_id, performed_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, performed_at`

	err := tx.QueryRow(ctx, query,
		record.GaugeID, record.Method, record.Passed,
		record.CertificateRef, record.Notes, record.TechnicianID,
	).Scan(&record.ID, &record.PerformedAt)
	if err != nil {
		return 0, fmt.Errorf("ошибка записи результата поверки: %w", err)
	}
	return record.ID, nil
}

func (r *CalibrationRepository) FindLatestPassed(ctx context.Context, gaugeID uint64) (*entities.CalibrationRecord, error) {
	query := `
		SELECT id, gauge_id, method, passed, certificate_ref, notes, technician_id, performed_at
		FROM calibration_records
		WHERE gauge_id = $1 AND passed = TRUE
		ORDER BY performed_at DESC, id DESC
		LIMIT 1`

	var rec entities.CalibrationRecord
	err := r.storage.QueryRow(ctx, query, gaugeID).Scan(
		&rec.ID, &rec.GaugeID, &rec.Method, &rec.Passed,
		&rec.CertificateRef, &rec.Notes, &rec.TechnicianID, &rec.PerformedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска последней поверки: %w", err)
	}
	return &rec, nil
}
