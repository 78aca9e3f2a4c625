package batches

import (
	"time"

	"cellarbook/models"
)

const (
	StatusPlanned      = "planned"
	StatusFermenting   = "fermenting"
	StatusAging        = "aging"
	StatusConditioning = "conditioning"
	StatusPackaged     = "packaged"
	StatusArchived     = "archived"
)

var Statuses = []string{StatusPlanned, StatusFermenting, StatusAging, StatusConditioning, StatusPackaged, StatusArchived}

// BondedStatuses are the statuses whose volume sits in the bulk ledger.
var BondedStatuses = []string{StatusFermenting, StatusAging, StatusConditioning, StatusPackaged}

var ProductTypes = []string{"cider", "perry", "wine", "mead"}

var VesselTypes = []string{"tank", "brite", "barrel", "carboy", "keg"}

// transitions lists the statuses each status may move to. Archiving is
// handled separately.
var transitions = map[string][]string{
	StatusPlanned:      {StatusFermenting},
	StatusFermenting:   {StatusAging},
	StatusAging:        {StatusFermenting, StatusConditioning},
	StatusConditioning: {StatusPackaged},
	StatusPackaged:     {},
}

// CanTransition reports whether a batch in from may move to to.
func CanTransition(from, to string) bool {
	if from == StatusArchived {
		return false
	}
	if to == StatusArchived {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type CreateBatchInput struct {
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	ProductType     string     `json:"product_type"`
	VesselID        *int64     `json:"vessel_id"`
	VolumeL         float64    `json:"volume_l"`
	Status          string     `json:"status"`
	OriginalGravity *float64   `json:"original_gravity"`
	Notes           string     `json:"notes"`
	StartedAt       *time.Time `json:"started_at"`
}

type UpdateBatchInput struct {
	Name     string  `json:"name"`
	VesselID *int64  `json:"vessel_id"`
	Notes    *string `json:"notes"`
}

type TransitionInput struct {
	Status string `json:"status"`
}

type MeasurementInput struct {
	TakenAt         *time.Time `json:"taken_at"`
	SpecificGravity *float64   `json:"specific_gravity"`
	TemperatureC    *float64   `json:"temperature_c"`
	PH              *float64   `json:"ph"`
	TAGPL           *float64   `json:"ta_gpl"`
	Notes           string     `json:"notes"`
	// Final marks the gravity reading as the final gravity.
	Final bool `json:"final"`
}

// VolumeAdjustmentInput sets the measured bulk volume of a batch. Reason
// "loss" books the difference as a loss instead of an inventory adjustment.
type VolumeAdjustmentInput struct {
	VolumeL   float64 `json:"volume_l"`
	Reason    string  `json:"reason"`
	Reference string  `json:"reference"`
}

type CreateVesselInput struct {
	Name           string  `json:"name"`
	VesselType     string  `json:"vessel_type"`
	CapacityL      float64 `json:"capacity_l"`
	MaxPressurePSI float64 `json:"max_pressure_psi"`
}

// BatchView is a batch with display strings in the user's units.
type BatchView struct {
	models.Batch
	VolumeDisplay string `json:"volume_display"`
	TaxClassLabel string `json:"tax_class_label"`
}

type BatchDetail struct {
	BatchView
	Vessel       *models.Vessel            `json:"vessel,omitempty"`
	Measurements []models.BatchMeasurement `json:"measurements"`
}
