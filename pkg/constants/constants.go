package constants

// --- КАТЕГОРИИ ОБОРУДОВАНИЯ ---
const (
	CategoryThreadGauge         = "THREAD_GAUGE"
	CategoryHandTool            = "HAND_TOOL"
	CategoryCalibrationStandard = "CALIBRATION_STANDARD"
)

// Префиксы системных номеров по категориям.
var CategoryPrefixes = map[string]string{
	CategoryThreadGauge:         "TG",
	CategoryHandTool:            "HT",
	CategoryCalibrationStandard: "CS",
}

// Парные комплекты (ПР/НЕ - GO/NO-GO) возможны только для резьбовых калибров.
func IsPairableCategory(category string) bool {
	return category == CategoryThreadGauge
}

// --- РОЛИ В ПАРЕ И СУФФИКСЫ ---
const (
	PairRoleGo   = "GO"
	PairRoleNoGo = "NO_GO"

	PairSuffixA = "A"
	PairSuffixB = "B"
)

// --- МЕТОДЫ ПОВЕРКИ ---
const (
	CalibrationMethodExternal = "EXTERNAL"
	CalibrationMethodInternal = "INTERNAL"
)

// --- СТАТУСЫ ЗАЯВОК НА РАСПЛОМБИРОВКУ ---
const (
	UnsealPending   = "PENDING_APPROVAL"
	UnsealApproved  = "APPROVED"
	UnsealDenied    = "DENIED"
	UnsealCancelled = "CANCELLED"
)

// Терминальные статусы заявки неизменяемы.
var UnsealFinalStatuses = []string{UnsealApproved, UnsealDenied, UnsealCancelled}

func IsUnsealFinal(status string) bool {
	for _, s := range UnsealFinalStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// --- СОСТОЯНИЯ ОБОРУДОВАНИЯ ПРИ ВОЗВРАТЕ ---
const (
	ReturnConditionOK            = "OK"
	ReturnConditionDamaged       = "DAMAGED"
	ReturnConditionNeedsCleaning = "NEEDS_CLEANING"
)

// --- ДЕЙСТВИЯ АУДИТА ---
const (
	AuditActionCreate             = "CREATE"
	AuditActionCheckout           = "CHECKOUT"
	AuditActionReturn             = "RETURN"
	AuditActionQCAccept           = "QC_ACCEPT"
	AuditActionTransfer           = "TRANSFER"
	AuditActionUnsealRequest      = "UNSEAL_REQUEST"
	AuditActionUnsealApprove      = "UNSEAL_APPROVE"
	AuditActionUnsealDeny         = "UNSEAL_DENY"
	AuditActionUnsealCancel       = "UNSEAL_CANCEL"
	AuditActionCalibrationSend    = "CALIBRATION_SEND"
	AuditActionCalibrationReceive = "CALIBRATION_RECEIVE"
	AuditActionRecover            = "RECOVER"
	AuditActionPair               = "PAIR"
	AuditActionUnpair             = "UNPAIR"
	AuditActionRetire             = "RETIRE"
	AuditActionOverdueFlag        = "OVERDUE_FLAG"
)

const AuditEntityGauge = "GAUGE"
