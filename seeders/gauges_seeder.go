package seeders

import (
	"context"
	"fmt"
	"log"

	"gauge-system/pkg/constants"

	"github.com/jackc/pgx/v5/pgxpool"
)

// seedGauges заводит демонстрационный парк напрямую в базу. Счётчики
// категорий двигаются в той же транзакции, поэтому номера не разойдутся
// с теми, что потом выдаст движок.
func seedGauges(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - Наполнение таблицы 'gauges'...")

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, g := range gaugesData {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM gauges WHERE name = $1)`, g.Name,
		).Scan(&exists); err != nil {
			return err
		}
		if exists {
			continue
		}

		var seq int64
		if err := tx.QueryRow(ctx, `
			INSERT INTO category_counters (category, last_value) VALUES ($1, 1)
			ON CONFLICT (category) DO UPDATE SET last_value = category_counters.last_value + 1
			RETURNING last_value`, g.Category,
		).Scan(&seq); err != nil {
			return err
		}
		number := fmt.Sprintf("%s-%05d", constants.CategoryPrefixes[g.Category], seq)

		query := `
			INSERT INTO gauges (number, name, category, status, sealed, unsealed_at,
				calibration_due_at, calibration_interval_days, location)
			VALUES ($1, $2, $3, 'AVAILABLE', $4,
				CASE WHEN $4 THEN NULL ELSE NOW() END,
				NOW() + ($5 || ' days')::interval, $5, $6)`
		if _, err := tx.Exec(ctx, query, number, g.Name, g.Category, g.Sealed, g.CalibrationIntervalDays, g.Location); err != nil {
			log.Printf("Ошибка при вставке оборудования '%s': %v", g.Name, err)
			return err
		}
	}

	return tx.Commit(ctx)
}
