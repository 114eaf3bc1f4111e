package repositories

import (
	"context"
	"fmt"
	"time"
)

// Ключи кеша снимков оборудования. Запись инвалидируется после каждого
// принятого перехода.
func GaugeCacheKey(gaugeID uint64) string {
	return fmt.Sprintf("gauge:snapshot:%d", gaugeID)
}

// Ключ распределённой блокировки задачи пересчёта сроков поверки.
const RecalcJobLockKey = "gauge:recalc:lock"

type CacheRepositoryInterface interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key ...string) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}
