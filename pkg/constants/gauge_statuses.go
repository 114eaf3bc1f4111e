package constants

// --- СТАТУСЫ ОБОРУДОВАНИЯ (совпадают с кодами в БД) ---
const (
	StatusAvailable       = "AVAILABLE"
	StatusCheckedOut      = "CHECKED_OUT"
	StatusPendingQC       = "PENDING_QC"
	StatusPendingTransfer = "PENDING_TRANSFER"
	StatusAtCalibration   = "AT_CALIBRATION"
	StatusCalibrationDue  = "CALIBRATION_DUE"
	StatusOutOfService    = "OUT_OF_SERVICE"
	StatusRetired         = "RETIRED"
)

// Статусы, из которых выдача на руки запрещена (помимо конфликта выдачи).
var CheckoutBlockedStatuses = []string{
	StatusCalibrationDue,
	StatusAtCalibration,
	StatusPendingQC,
	StatusRetired,
}

func IsCheckoutBlocked(status string) bool {
	for _, s := range CheckoutBlockedStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Статусы, которые чинит операция восстановления.
var RecoverableStatuses = []string{
	StatusPendingTransfer,
	StatusPendingQC,
}

func IsRecoverable(status string) bool {
	for _, s := range RecoverableStatuses {
		if s == status {
			return true
		}
	}
	return false
}
