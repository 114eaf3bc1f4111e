package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CounterRepositoryInterface interface {
	NextValueInTx(ctx context.Context, tx pgx.Tx, category string) (int64, error)
}

// CounterRepository - счётчики системных номеров, по строке на категорию.
// Инкремент идёт одним upsert внутри транзакции создания: строка счётчика
// блокируется самим запросом, конкурентное создание (включая первое в
// категории) не даёт ни дублей, ни ошибок уникальности.
type CounterRepository struct {
	storage *pgxpool.Pool
}

func NewCounterRepository(storage *pgxpool.Pool) CounterRepositoryInterface {
	return &CounterRepository{storage: storage}
}

func (r *CounterRepository) NextValueInTx(ctx context.Context, tx pgx.Tx, category string) (int64, error) {
	var next int64
	err := tx.QueryRow(ctx,
		`INSERT INTO category_counters (category, last_value) VALUES ($1, 1)
		 ON CONFLICT (category) DO UPDATE SET last_value = category_counters.last_value + 1
		 RETURNING last_value`,
		category,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("ошибка инкремента счётчика категории %q: %w", category, err)
	}
	return next, nil
}
