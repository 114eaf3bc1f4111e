package services

import "time"

// Часы поверки. Чистые функции без I/O: сроки считаются из явно переданных
// дат, состояние оборудования сюда не попадает.
//
// Две взаимоисключающие базы отсчёта:
//   - после распломбировки срок идёт от даты снятия пломбы;
//   - после поверки с опломбировкой срок идёт от даты сертификата
//     (опломбировка сбрасывает базу отсчёта).

type DueState string

const (
	DueStateCurrent DueState = "CURRENT"
	DueStateDueSoon DueState = "DUE_SOON"
	DueStateOverdue DueState = "OVERDUE"
)

// DueFromUnseal - срок поверки от даты распломбировки.
func DueFromUnseal(unsealedAt time.Time, intervalDays int) time.Time {
	return unsealedAt.AddDate(0, 0, intervalDays)
}

// DueFromCertificate - срок поверки от даты сертификата.
func DueFromCertificate(certifiedAt time.Time, intervalDays int) time.Time {
	return certifiedAt.AddDate(0, 0, intervalDays)
}

// ClassifyDue относит срок к одной из трёх зон относительно момента now.
func ClassifyDue(dueAt, now time.Time, dueSoonWindow time.Duration) DueState {
	if now.After(dueAt) {
		return DueStateOverdue
	}
	if !now.Before(dueAt.Add(-dueSoonWindow)) {
		return DueStateDueSoon
	}
	return DueStateCurrent
}

// IsOverdue - просрочен ли срок на момент now.
func IsOverdue(dueAt, now time.Time) bool {
	return now.After(dueAt)
}
