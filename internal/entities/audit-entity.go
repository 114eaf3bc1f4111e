package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
)

// --- АКТОР АУДИТА ---
// Действие совершает либо человек, либо системная задача. Это размеченный
// вариант, а не nullable-ссылка на пользователя с неявным смыслом NULL.
const (
	ActorTypeUser   = "USER"
	ActorTypeSystem = "SYSTEM"
)

type Actor struct {
	Type   string
	UserID uint64 // заполнен только для ActorTypeUser
	Label  string // для ActorTypeSystem - имя задачи
}

func UserActor(userID uint64) Actor {
	return Actor{Type: ActorTypeUser, UserID: userID}
}

func SystemActor(job string) Actor {
	return Actor{Type: ActorTypeSystem, Label: job}
}

// AuditEntry - запись журнала аудита: одна строка на каждый принятый переход.
// Пишется в той же транзакции, что и сама мутация.
type AuditEntry struct {
	ID         uint64
	EntityType string
	EntityID   uint64
	Action     string
	OldValue   null.String // JSON-снимок состояния до перехода
	NewValue   null.String // JSON-снимок состояния после перехода
	Actor      Actor
	Reason     null.String
	TxID       uuid.UUID // группирует записи одного перехода
	CreatedAt  time.Time
}
