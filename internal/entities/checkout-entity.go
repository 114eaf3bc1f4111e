package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// GaugeCheckout - запись о выдаче оборудования на руки.
// Закрывается при возврате, никогда не удаляется.
type GaugeCheckout struct {
	ID              uint64
	GaugeID         uint64
	ActorID         uint64 // кто оформил выдачу
	HolderID        uint64 // у кого оборудование на руках
	Note            null.String
	CheckedOutAt    time.Time
	ReturnedAt      null.Time
	ReturnCondition null.String
}

func (c *GaugeCheckout) IsOpen() bool {
	return !c.ReturnedAt.Valid
}
