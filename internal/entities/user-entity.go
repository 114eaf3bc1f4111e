package entities

import "time"

// User - минимальный справочник сотрудников-держателей.
// Аутентификация и роли живут во внешнем слое.
type User struct {
	ID        uint64
	Fio       string
	Position  string
	CreatedAt time.Time
}
