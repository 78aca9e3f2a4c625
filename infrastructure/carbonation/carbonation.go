// Package carbonation holds the CO2 math used when planning force carbonation
// and bottle conditioning. Temperatures are taken in Celsius; the empirical
// equations are expressed in Fahrenheit and psig internally.
package carbonation

import (
	"errors"
	"fmt"
	"math"

	"cellarbook/infrastructure/units"
)

// Coefficients of P = c0 + c1·T + c2·T² + c3·T·V + c4·V + c5·V² (T in °F, P in psig).
const (
	c0 = -16.6999
	c1 = -0.0101059
	c2 = 0.00116512
	c3 = 0.173354
	c4 = 4.24267
	c5 = -0.0684226
)

// MaxVolumes bounds every calculator input.
const MaxVolumes = 6.0

var (
	ErrInvalidInput = errors.New("invalid carbonation input")
	ErrUnreachable  = errors.New("target carbonation is not reachable at this pressure and temperature")
)

type Method string

const (
	MethodForceSet          Method = "force_set"
	MethodForceBurst        Method = "force_burst"
	MethodBottleConditioned Method = "bottle_conditioned"
)

func ParseMethod(raw string) (Method, error) {
	switch Method(raw) {
	case MethodForceSet, MethodForceBurst, MethodBottleConditioned:
		return Method(raw), nil
	}
	return "", fmt.Errorf("%w: unknown method %q", ErrInvalidInput, raw)
}

// IsForced reports whether CO2 is supplied from a gas cylinder.
func (m Method) IsForced() bool {
	return m == MethodForceSet || m == MethodForceBurst
}

// CalculateCO2Volumes returns the equilibrium CO2 volumes for liquid held at
// tempC under pressurePSI of head pressure. Results below zero clamp to zero.
func CalculateCO2Volumes(tempC, pressurePSI float64) (float64, error) {
	if math.IsNaN(tempC) || math.IsNaN(pressurePSI) || pressurePSI < 0 {
		return 0, fmt.Errorf("%w: pressure must be >= 0", ErrInvalidInput)
	}
	t := units.CelsiusToFahrenheit(tempC)
	a := c5
	b := c3*t + c4
	c := c0 + c1*t + c2*t*t - pressurePSI
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, fmt.Errorf("%w: no solution at %.1f°C / %.1f psi", ErrInvalidInput, tempC, pressurePSI)
	}
	v := (-b + math.Sqrt(disc)) / (2 * a)
	if v < 0 {
		return 0, nil
	}
	return v, nil
}

// CalculateRequiredPressure returns the head pressure (psig) that holds
// targetVolumes in solution at tempC. Negative results clamp to zero.
func CalculateRequiredPressure(targetVolumes, tempC float64) (float64, error) {
	if targetVolumes < 0 || targetVolumes > MaxVolumes {
		return 0, fmt.Errorf("%w: volumes must be between 0 and %.0f", ErrInvalidInput, MaxVolumes)
	}
	t := units.CelsiusToFahrenheit(tempC)
	v := targetVolumes
	p := c0 + c1*t + c2*t*t + c3*t*v + c4*v + c5*v*v
	if p < 0 {
		return 0, nil
	}
	return p, nil
}

// ResidualCO2 is the CO2 left in solution after fermentation at tempC,
// the warmest temperature the liquid reached since fermentation ended.
func ResidualCO2(tempC float64) float64 {
	t := units.CelsiusToFahrenheit(tempC)
	v := 3.0378 - 0.050062*t + 0.00026555*t*t
	if v < 0 {
		return 0
	}
	return v
}
