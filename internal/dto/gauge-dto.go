package dto

// GaugeDTO - авторитетный снимок состояния оборудования после перехода.
type GaugeDTO struct {
	ID                      uint64  `json:"id"`
	Number                  string  `json:"number"`
	Name                    string  `json:"name"`
	Category                string  `json:"category"`
	Status                  string  `json:"status"`
	Sealed                  bool    `json:"sealed"`
	UnsealedAt              string  `json:"unsealed_at,omitempty"`
	CalibrationDueAt        string  `json:"calibration_due_at,omitempty"`
	CalibrationIntervalDays int     `json:"calibration_interval_days"`
	CompanionID             *uint64 `json:"companion_id,omitempty"`
	PairSuffix              string  `json:"pair_suffix,omitempty"`
	Location                string  `json:"location,omitempty"`
	IsSpare                 bool    `json:"is_spare"`
	CreatedAt               string  `json:"created_at"`
	UpdatedAt               string  `json:"updated_at"`
}

// CreateGaugeDTO - заведение новой единицы оборудования.
// Категория и характеристики фиксируются при создании и не меняются.
type CreateGaugeDTO struct {
	Name                    string `json:"name" validate:"required,min=3,max=200"`
	Category                string `json:"category" validate:"required,oneof=THREAD_GAUGE HAND_TOOL CALIBRATION_STANDARD"`
	CalibrationIntervalDays int    `json:"calibration_interval_days" validate:"required,min=1,max=3650"`
	Location                string `json:"location" validate:"omitempty,max=120"`
	IsSpare                 bool   `json:"is_spare"`
	Sealed                  bool   `json:"sealed"`
	ActorID                 uint64 `json:"actor_id" validate:"required"`
}

type CheckoutStateDTO struct {
	Gauge    GaugeDTO         `json:"gauge"`
	Checkout GaugeCheckoutDTO `json:"checkout"`
}

type GaugeCheckoutDTO struct {
	ID              uint64 `json:"id"`
	GaugeID         uint64 `json:"gauge_id"`
	ActorID         uint64 `json:"actor_id"`
	HolderID        uint64 `json:"holder_id"`
	Note            string `json:"note,omitempty"`
	CheckedOutAt    string `json:"checked_out_at"`
	ReturnedAt      string `json:"returned_at,omitempty"`
	ReturnCondition string `json:"return_condition,omitempty"`
}

type UnsealRequestDTO struct {
	ID             uint64 `json:"id"`
	GaugeID        uint64 `json:"gauge_id"`
	RequesterID    uint64 `json:"requester_id"`
	Reason         string `json:"reason"`
	Status         string `json:"status"`
	DecidedBy      uint64 `json:"decided_by,omitempty"`
	DecidedAt      string `json:"decided_at,omitempty"`
	DecisionReason string `json:"decision_reason,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// BatchOutcomeDTO - результат групповой отправки в поверку.
type BatchOutcomeDTO struct {
	Sent     int      `json:"sent"`
	GaugeIDs []uint64 `json:"gauge_ids"`
}
