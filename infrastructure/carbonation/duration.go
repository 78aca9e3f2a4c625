package carbonation

import (
	"fmt"
	"math"
)

// Absorption rate constants per hour at 10 °C.
const (
	rateSetAndForget = 0.012
	rateBurst        = 0.35
)

// Bottle conditioning reference: two weeks at 20 °C, doubling every 10 °C colder.
const (
	conditioningReferenceDays = 14.0
	conditioningReferenceC    = 20.0
	conditioningMinDays       = 7.0
)

// Attainment at which force carbonation is considered done.
const forceAttainment = 0.95

// DurationEstimate is the predicted time for a carbonation operation.
type DurationEstimate struct {
	Hours              float64 `json:"hours"`
	Days               float64 `json:"days"`
	EquilibriumVolumes float64 `json:"equilibrium_volumes"`
}

func temperatureRateFactor(tempC float64) float64 {
	if tempC < 10 {
		return math.Min(1.3, math.Pow(1.03, 10-tempC))
	}
	return math.Max(0.5, math.Pow(0.97, tempC-10))
}

// EstimateCarbonationDuration predicts how long it takes to go from
// currentVolumes to targetVolumes. Force methods approach the equilibrium
// set by pressurePSI exponentially; bottle conditioning depends only on
// temperature.
func EstimateCarbonationDuration(method Method, currentVolumes, targetVolumes, tempC, pressurePSI float64) (DurationEstimate, error) {
	if currentVolumes < 0 || targetVolumes < 0 || targetVolumes > MaxVolumes {
		return DurationEstimate{}, fmt.Errorf("%w: volumes must be between 0 and %.0f", ErrInvalidInput, MaxVolumes)
	}

	switch method {
	case MethodBottleConditioned:
		days := conditioningReferenceDays * math.Pow(2, (conditioningReferenceC-tempC)/10)
		days = math.Max(days, conditioningMinDays)
		return DurationEstimate{Hours: days * 24, Days: days, EquilibriumVolumes: targetVolumes}, nil
	case MethodForceSet, MethodForceBurst:
	default:
		return DurationEstimate{}, fmt.Errorf("%w: unknown method %q", ErrInvalidInput, method)
	}

	eq, err := CalculateCO2Volumes(tempC, pressurePSI)
	if err != nil {
		return DurationEstimate{}, err
	}
	if targetVolumes <= currentVolumes {
		return DurationEstimate{EquilibriumVolumes: eq}, nil
	}
	if eq <= targetVolumes {
		return DurationEstimate{EquilibriumVolumes: eq}, fmt.Errorf("%w: equilibrium %.2f vol <= target %.2f vol", ErrUnreachable, eq, targetVolumes)
	}

	k := rateSetAndForget
	if method == MethodForceBurst {
		k = rateBurst
	}
	k *= temperatureRateFactor(tempC)

	f := (targetVolumes - currentVolumes) / (eq - currentVolumes)
	hours := -math.Log(1-f) / k
	// Burst carbonation still needs the set-pressure tail to settle.
	if method == MethodForceBurst {
		hours = math.Max(hours, 1)
	}
	return DurationEstimate{Hours: hours, Days: hours / 24, EquilibriumVolumes: eq}, nil
}

// HoursToAttain is the time for a force operation to reach the attainment
// ratio of its equilibrium, used when no explicit target is given.
func HoursToAttain(method Method, tempC float64) float64 {
	k := rateSetAndForget
	if method == MethodForceBurst {
		k = rateBurst
	}
	return -math.Log(1-forceAttainment) / (k * temperatureRateFactor(tempC))
}
