package dto

// Входные данные операций движка жизненного цикла.
// Валидация (теги validate) отрабатывает до открытия транзакции.

type CheckoutDTO struct {
	GaugeID  uint64 `json:"gauge_id" validate:"required"`
	ActorID  uint64 `json:"actor_id" validate:"required"`
	TargetID uint64 `json:"target_id" validate:"omitempty"` // кому выдаётся; 0 = самому актору
	Note     string `json:"note" validate:"omitempty,max=500"`
}

type ReturnDTO struct {
	GaugeID   uint64 `json:"gauge_id" validate:"required"`
	ActorID   uint64 `json:"actor_id" validate:"required"`
	Condition string `json:"condition" validate:"required,oneof=OK DAMAGED NEEDS_CLEANING"`
	Note      string `json:"note" validate:"omitempty,max=500"`
}

type QCAcceptDTO struct {
	GaugeID  uint64 `json:"gauge_id" validate:"required"`
	ActorID  uint64 `json:"actor_id" validate:"required"`
	Location string `json:"location" validate:"omitempty,max=120"`
}

type TransferDTO struct {
	GaugeID  uint64 `json:"gauge_id" validate:"required"`
	ActorID  uint64 `json:"actor_id" validate:"required"`
	ToUserID uint64 `json:"to_user_id" validate:"required,nefield=ActorID"`
	Note     string `json:"note" validate:"omitempty,max=500"`
}

type RequestUnsealDTO struct {
	GaugeID     uint64 `json:"gauge_id" validate:"required"`
	RequesterID uint64 `json:"requester_id" validate:"required"`
	Reason      string `json:"reason" validate:"required,min=5,max=500"`
}

type DecideUnsealDTO struct {
	RequestID uint64 `json:"request_id" validate:"required"`
	ActorID   uint64 `json:"actor_id" validate:"required"`
	Approve   bool   `json:"approve"`
	Reason    string `json:"reason" validate:"omitempty,max=500"`
}

type CancelUnsealDTO struct {
	RequestID uint64 `json:"request_id" validate:"required"`
	ActorID   uint64 `json:"actor_id" validate:"required"`
	Reason    string `json:"reason" validate:"omitempty,max=500"`
}

type SendToCalibrationDTO struct {
	GaugeIDs []uint64 `json:"gauge_ids" validate:"required,min=1,unique,dive,required"`
	ActorID  uint64   `json:"actor_id" validate:"required"`
}

type ReceiveCalibrationDTO struct {
	GaugeID        uint64 `json:"gauge_id" validate:"required"`
	Passed         bool   `json:"passed"`
	Method         string `json:"method" validate:"required,oneof=EXTERNAL INTERNAL"`
	CertificateRef string `json:"certificate_ref" validate:"omitempty,max=120"`
	Notes          string `json:"notes" validate:"omitempty,max=1000"`
	TechnicianID   uint64 `json:"technician_id" validate:"required"`
}

type RecoverDTO struct {
	GaugeID uint64 `json:"gauge_id" validate:"required"`
	ActorID uint64 `json:"actor_id" validate:"required"`
	Reason  string `json:"reason" validate:"required,min=5,max=500"`
}

type RetireDTO struct {
	GaugeID uint64 `json:"gauge_id" validate:"required"`
	ActorID uint64 `json:"actor_id" validate:"required"`
	Reason  string `json:"reason" validate:"required,min=5,max=500"`
}

type PairDTO struct {
	GaugeAID uint64 `json:"gauge_a_id" validate:"required"`
	GaugeBID uint64 `json:"gauge_b_id" validate:"required,nefield=GaugeAID"`
	// Роль первого калибра в комплекте; пустая = суффиксы по порядку создания.
	RoleA   string `json:"role_a" validate:"omitempty,oneof=GO NO_GO"`
	ActorID uint64 `json:"actor_id" validate:"required"`
}

type UnpairDTO struct {
	GaugeID uint64 `json:"gauge_id" validate:"required"`
	ActorID uint64 `json:"actor_id" validate:"required"`
}
