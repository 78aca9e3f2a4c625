package carbonation

import (
	"time"

	co2 "cellarbook/infrastructure/carbonation"
	"cellarbook/models"
)

const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// PlanRequest feeds the calculators. BatchID and VesselID are optional; when
// given they supply the volume, starting CO2 and vessel rating.
type PlanRequest struct {
	BatchID        *int64   `json:"batch_id"`
	VesselID       *int64   `json:"vessel_id"`
	Method         string   `json:"method"`
	PackageType    string   `json:"package_type"`
	VolumeL        float64  `json:"volume_l"`
	CurrentVolumes *float64 `json:"current_volumes"`
	TargetVolumes  float64  `json:"target_volumes"`
	TemperatureC   float64  `json:"temperature_c"`
	PressurePSI    float64  `json:"pressure_psi"`
	Sugar          string   `json:"sugar"`
}

type StartInput struct {
	PlanRequest
	Override bool `json:"override"`
}

type CompleteInput struct {
	FinalVolumes *float64   `json:"final_volumes"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// BlockedError carries the danger findings that stopped an operation.
type BlockedError struct {
	Findings []co2.Finding
}

type OperationView struct {
	models.CarbonationOperation
	Findings            []co2.Finding `json:"findings"`
	TemperatureDisplay  string        `json:"temperature_display"`
	PressureDisplay     string        `json:"pressure_display"`
	EstimatedCompletion time.Time     `json:"estimated_completion"`
}
