package repositories

import (
	"context"
	"fmt"

	"gauge-system/internal/entities"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, entry *entities.AuditEntry) error
	FindByEntity(ctx context.Context, entityType string, entityID uint64) ([]entities.AuditEntry, error)
}

// AuditRepository - журнал аудита, только добавление. Запись идёт в той же
// транзакции, что и бизнес-мутация: не записался аудит - не прошёл переход.
type AuditRepository struct {
	storage *pgxpool.Pool
}

func NewAuditRepository(storage *pgxpool.Pool) AuditRepositoryInterface {
	return &AuditRepository{storage: storage}
}

func (r *AuditRepository) CreateInTx(ctx context.Context, tx pgx.Tx, entry *entities.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (entity_type, entity_id, action, old_value, new_value,
			actor_type, actor_id, actor_label, reason, tx_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`

	var actorID interface{}
	if entry.Actor.Type == entities.ActorTypeUser {
		actorID = entry.Actor.UserID
	}

	_, err := tx.Exec(ctx, query,
		entry.EntityType, entry.EntityID, entry.Action,
		entry.OldValue, entry.NewValue,
		entry.Actor.Type, actorID, null.NewString(entry.Actor.Label, entry.Actor.Label != ""),
		entry.Reason, entry.TxID,
	)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал аудита: %w", err)
	}
	return nil
}

func (r *AuditRepository) FindByEntity(ctx context.Context, entityType string, entityID uint64) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, entity_type, entity_id, action, old_value, new_value,
			actor_type, COALESCE(actor_id, 0), COALESCE(actor_label, ''), reason, tx_id, created_at
		FROM audit_entries
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at ASC, id ASC`

	rows, err := r.storage.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала аудита: %w", err)
	}
	defer rows.Close()

	var result []entities.AuditEntry
	for rows.Next() {
		var e entities.AuditEntry
		if err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.OldValue, &e.NewValue,
			&e.Actor.Type, &e.Actor.UserID, &e.Actor.Label, &e.Reason, &e.TxID, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи аудита: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
