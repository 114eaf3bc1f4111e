package events

import "time"

const GaugeBecameOverdueEventName = "gauge.calibration.overdue"

// GaugeBecameOverdueEvent публикуется после коммита транзакции, переведшей
// оборудование в статус "срок поверки истёк".
type GaugeBecameOverdueEvent struct {
	GaugeID   uint64
	Number    string
	GaugeName string
	DueAt     time.Time
	FlaggedAt time.Time
}

func (e GaugeBecameOverdueEvent) Name() string {
	return GaugeBecameOverdueEventName
}
