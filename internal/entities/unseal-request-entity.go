package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// UnsealRequest - заявка на распломбировку. Терминальные статусы неизменяемы.
type UnsealRequest struct {
	ID             uint64
	GaugeID        uint64
	RequesterID    uint64
	Reason         string
	Status         string
	DecidedBy      null.Uint64
	DecidedAt      null.Time
	DecisionReason null.String
	CreatedAt      time.Time
}
