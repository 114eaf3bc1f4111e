package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "gauge-system/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE 55P03 - lock_not_available (истёк lock_timeout).
const pgLockNotAvailable = "55P03"

type TxManagerInterface interface {
	RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// TxManager выполняет бизнес-функцию в рамках одной транзакции.
// Каждая транзакция получает общий дедлайн (opTimeout) и ограничение на
// ожидание строковых блокировок (SET LOCAL lock_timeout): вызов не может
// зависнуть навсегда, при исчерпании лимита вернётся ошибка класса Timeout.
type TxManager struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
	opTimeout   time.Duration
}

func NewTxManager(pool *pgxpool.Pool, lockTimeout, opTimeout time.Duration) TxManagerInterface {
	return &TxManager{pool: pool, lockTimeout: lockTimeout, opTimeout: opTimeout}
}

func (m *TxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return translateTxError(fmt.Errorf("не удалось начать транзакцию: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.Background())
			panic(p)
		} else if err != nil {
			// Откат через фоновый контекст: даже если вызывающий отменил
			// запрос, транзакция не должна остаться открытой.
			_ = tx.Rollback(context.Background())
			err = translateTxError(err)
		} else {
			err = tx.Commit(ctx)
			if err != nil {
				err = translateTxError(fmt.Errorf("ошибка при коммите транзакции: %w", err))
			}
		}
	}()

	lockMs := m.lockTimeout.Milliseconds()
	if _, err = tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockMs)); err != nil {
		return fmt.Errorf("не удалось установить lock_timeout: %w", err)
	}

	err = fn(tx)
	return err
}

// translateTxError сводит инфраструктурные ошибки ожидания к классу Timeout.
func translateTxError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}
	return err
}
