package packaging

import (
	"fmt"
	"math"
	"strings"
	"time"

	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/units"
	"cellarbook/models"
)

// ComputeLoss returns the packaged volume and the volume lost between the
// tank and the packages.
func ComputeLoss(unitsProduced int64, unitSizeML, volumeTakenL float64) (packagedL, lossL, lossPct float64, err error) {
	if unitsProduced <= 0 {
		return 0, 0, 0, api.Invalid("units_produced", "must be > 0")
	}
	if unitSizeML <= 0 {
		return 0, 0, 0, api.Invalid("unit_size_ml", "must be > 0")
	}
	if volumeTakenL <= 0 {
		return 0, 0, 0, api.Invalid("volume_taken_l", "must be > 0")
	}
	packagedL = float64(unitsProduced) * unitSizeML / 1000
	lossL = volumeTakenL - packagedL
	if lossL < -1e-9 {
		return packagedL, lossL, 0, api.Invalid("volume_taken_l", "%.2f L packaged exceeds %.2f L taken", packagedL, volumeTakenL)
	}
	if lossL < 0 {
		lossL = 0
	}
	return packagedL, units.Round(lossL, 3), units.Round(lossL/volumeTakenL*100, 2), nil
}

// LotCode formats <BATCHCODE>-<YYMMDD>-<n>.
func LotCode(batchCode string, packagedAt time.Time, n int) string {
	return fmt.Sprintf("%s%d", lotPrefix(batchCode, packagedAt), n)
}

func lotPrefix(batchCode string, packagedAt time.Time) string {
	return strings.ToUpper(batchCode) + "-" + packagedAt.UTC().Format("060102") + "-"
}

// FillVariance compares an actual fill to its target.
func FillVariance(targetML, actualML, tolerancePct float64) (varianceML, variancePct float64, within bool) {
	varianceML = actualML - targetML
	if targetML > 0 {
		variancePct = varianceML / targetML * 100
	}
	within = math.Abs(variancePct) <= tolerancePct+1e-9
	return units.Round(varianceML, 2), units.Round(variancePct, 2), within
}

// ComputeFillStats summarises fill checks. StdDevML is the sample standard
// deviation of the actual fills.
func ComputeFillStats(checks []models.FillCheck) FillStats {
	stats := FillStats{Count: len(checks)}
	if len(checks) == 0 {
		return stats
	}
	var sum, sumPct float64
	for _, c := range checks {
		sum += c.ActualML
		sumPct += c.VariancePct
		if !c.WithinTolerance {
			stats.OutOfTolerance++
		}
	}
	n := float64(len(checks))
	mean := sum / n
	if len(checks) > 1 {
		var ss float64
		for _, c := range checks {
			d := c.ActualML - mean
			ss += d * d
		}
		stats.StdDevML = units.Round(math.Sqrt(ss/(n-1)), 2)
	}
	stats.MeanML = units.Round(mean, 2)
	stats.MeanVariancePct = units.Round(sumPct/n, 2)
	return stats
}

// DefaultSKU names the finished good a run produces.
func DefaultSKU(batchCode, packageType string, unitSizeML float64) string {
	return fmt.Sprintf("%s-%s-%s", strings.ToUpper(batchCode), strings.ToUpper(packageType), strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", unitSizeML), "0"), "."))
}
