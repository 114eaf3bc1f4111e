package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// CalibrationRecord - результат поверки. Только добавление, без обновлений.
// CertificateRef обязателен для внешней поверки с положительным результатом.
type CalibrationRecord struct {
	ID             uint64
	GaugeID        uint64
	Method         string
	Passed         bool
	CertificateRef null.String
	Notes          null.String
	TechnicianID   uint64
	PerformedAt    time.Time
}
