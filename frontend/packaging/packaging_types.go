package packaging

import (
	"time"

	"cellarbook/models"
)

const (
	StatusCompleted = "completed"
	StatusVoided    = "voided"
)

var PackageTypes = []string{"bottle", "can", "keg"}

// DefaultFillTolerancePct is the accepted fill variance when none is given.
const DefaultFillTolerancePct = 2.0

type CreateRunInput struct {
	BatchID                int64      `json:"batch_id"`
	CarbonationOperationID *int64     `json:"carbonation_operation_id"`
	PackageType            string     `json:"package_type"`
	UnitSizeML             float64    `json:"unit_size_ml"`
	UnitsProduced          int64      `json:"units_produced"`
	VolumeTakenL           float64    `json:"volume_taken_l"`
	PackagedAt             *time.Time `json:"packaged_at"`
	Notes                  string     `json:"notes"`
	// SKU of the finished good; derived from batch, package and size when empty.
	SKU string `json:"sku"`
}

type FillCheckInput struct {
	ActualML     float64  `json:"actual_ml"`
	TargetML     *float64 `json:"target_ml"`
	TolerancePct *float64 `json:"tolerance_pct"`
}

type FillStats struct {
	Count           int     `json:"count"`
	MeanML          float64 `json:"mean_ml"`
	StdDevML        float64 `json:"stddev_ml"`
	MeanVariancePct float64 `json:"mean_variance_pct"`
	OutOfTolerance  int     `json:"out_of_tolerance"`
}

// RunView is the packaging.get response.
type RunView struct {
	models.PackagingRun
	BatchCode       string             `json:"batch_code"`
	BatchName       string             `json:"batch_name"`
	ItemID          *int64             `json:"item_id,omitempty"`
	PackagedL       float64            `json:"packaged_l"`
	PackagedDisplay string             `json:"packaged_display"`
	LossDisplay     string             `json:"loss_display"`
	FillStats       FillStats          `json:"fill_stats"`
	FillChecks      []models.FillCheck `json:"fill_checks"`
}
