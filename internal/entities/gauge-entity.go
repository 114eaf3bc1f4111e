package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// Gauge - единица измерительного оборудования (калибр, инструмент, эталон).
// Номер, наименование и категория неизменяемы после создания.
type Gauge struct {
	ID                      uint64
	Number                  string
	Name                    string
	Category                string
	Status                  string
	Sealed                  bool
	UnsealedAt              null.Time
	CalibrationDueAt        null.Time
	CalibrationIntervalDays int
	CompanionID             null.Uint64
	PairSuffix              null.String
	Location                null.String
	IsSpare                 bool
	DeletedAt               null.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// IsPaired - есть ли у калибра парный (ПР/НЕ).
func (g *Gauge) IsPaired() bool {
	return g.CompanionID.Valid && g.CompanionID.Uint64 != 0
}
