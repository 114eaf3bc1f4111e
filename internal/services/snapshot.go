package services

import (
	"encoding/json"

	"gauge-system/internal/dto"
	"gauge-system/internal/entities"

	"github.com/aarondl/null/v8"
)

const timeLayout = "2006-01-02 15:04:05"

func gaugeToDTO(g *entities.Gauge) dto.GaugeDTO {
	out := dto.GaugeDTO{
		ID:                      g.ID,
		Number:                  g.Number,
		Name:                    g.Name,
		Category:                g.Category,
		Status:                  g.Status,
		Sealed:                  g.Sealed,
		CalibrationIntervalDays: g.CalibrationIntervalDays,
		PairSuffix:              g.PairSuffix.String,
		Location:                g.Location.String,
		IsSpare:                 g.IsSpare,
		CreatedAt:               g.CreatedAt.Local().Format(timeLayout),
		UpdatedAt:               g.UpdatedAt.Local().Format(timeLayout),
	}
	if g.UnsealedAt.Valid {
		out.UnsealedAt = g.UnsealedAt.Time.Local().Format(timeLayout)
	}
	if g.CalibrationDueAt.Valid {
		out.CalibrationDueAt = g.CalibrationDueAt.Time.Local().Format(timeLayout)
	}
	if g.CompanionID.Valid {
		companion := g.CompanionID.Uint64
		out.CompanionID = &companion
	}
	return out
}

func checkoutToDTO(c *entities.GaugeCheckout) dto.GaugeCheckoutDTO {
	out := dto.GaugeCheckoutDTO{
		ID:           c.ID,
		GaugeID:      c.GaugeID,
		ActorID:      c.ActorID,
		HolderID:     c.HolderID,
		Note:         c.Note.String,
		CheckedOutAt: c.CheckedOutAt.Local().Format(timeLayout),
	}
	if c.ReturnedAt.Valid {
		out.ReturnedAt = c.ReturnedAt.Time.Local().Format(timeLayout)
	}
	if c.ReturnCondition.Valid {
		out.ReturnCondition = c.ReturnCondition.String
	}
	return out
}

func unsealToDTO(req *entities.UnsealRequest) dto.UnsealRequestDTO {
	out := dto.UnsealRequestDTO{
		ID:          req.ID,
		GaugeID:     req.GaugeID,
		RequesterID: req.RequesterID,
		Reason:      req.Reason,
		Status:      req.Status,
		CreatedAt:   req.CreatedAt.Local().Format(timeLayout),
	}
	if req.DecidedBy.Valid {
		out.DecidedBy = req.DecidedBy.Uint64
	}
	if req.DecidedAt.Valid {
		out.DecidedAt = req.DecidedAt.Time.Local().Format(timeLayout)
	}
	if req.DecisionReason.Valid {
		out.DecisionReason = req.DecisionReason.String
	}
	return out
}

// gaugeSnapshot - компактный снимок состояния для журнала аудита
// (до/после перехода).
type gaugeSnapshot struct {
	Number           string  `json:"number"`
	Status           string  `json:"status"`
	Sealed           bool    `json:"sealed"`
	UnsealedAt       string  `json:"unsealed_at,omitempty"`
	CalibrationDueAt string  `json:"calibration_due_at,omitempty"`
	CompanionID      *uint64 `json:"companion_id,omitempty"`
	PairSuffix       string  `json:"pair_suffix,omitempty"`
	Location         string  `json:"location,omitempty"`
}

func snapshotJSON(g *entities.Gauge) null.String {
	snap := gaugeSnapshot{
		Number:     g.Number,
		Status:     g.Status,
		Sealed:     g.Sealed,
		PairSuffix: g.PairSuffix.String,
		Location:   g.Location.String,
	}
	if g.UnsealedAt.Valid {
		snap.UnsealedAt = g.UnsealedAt.Time.UTC().Format(timeLayout)
	}
	if g.CalibrationDueAt.Valid {
		snap.CalibrationDueAt = g.CalibrationDueAt.Time.UTC().Format(timeLayout)
	}
	if g.CompanionID.Valid {
		companion := g.CompanionID.Uint64
		snap.CompanionID = &companion
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		// Снимок не должен ронять переход; пустое значение допустимо.
		return null.String{}
	}
	return null.StringFrom(string(raw))
}
