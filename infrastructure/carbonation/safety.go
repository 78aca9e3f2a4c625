package carbonation

import (
	"fmt"
	"strings"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Finding is a single safety-range observation.
type Finding struct {
	Level   Level  `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PackageLimits is the maximum CO2 volumes each package type may hold.
var PackageLimits = map[string]float64{
	"bottle":           3.0,
	"champagne_bottle": 5.0,
	"can":              4.0,
	"keg":              3.0,
}

// Force carbonation is planned for cold liquid only.
const (
	forceMinTempC = 0.0
	forceMaxTempC = 25.0
)

// SafetyParams describes a proposed carbonation.
type SafetyParams struct {
	Method              Method
	PackageType         string
	TargetVolumes       float64
	TemperatureC        float64
	PressurePSI         float64
	VesselMaxPSI        float64
	VesselPressureKnown bool
}

// CheckSafety evaluates p against package, vessel and temperature limits.
func CheckSafety(p SafetyParams) ([]Finding, error) {
	pkg := strings.ToLower(strings.TrimSpace(p.PackageType))
	if pkg == "" {
		pkg = "bottle"
	}
	limit, ok := PackageLimits[pkg]
	if !ok {
		return nil, fmt.Errorf("%w: unknown package type %q", ErrInvalidInput, p.PackageType)
	}

	findings := make([]Finding, 0)
	if p.TargetVolumes < 0 || p.TargetVolumes > MaxVolumes {
		findings = append(findings, Finding{
			Level:   LevelDanger,
			Code:    "volumes_out_of_range",
			Message: fmt.Sprintf("target %.2f volumes is outside 0-%.0f", p.TargetVolumes, MaxVolumes),
		})
	}

	switch {
	case p.TargetVolumes > limit:
		findings = append(findings, Finding{
			Level:   LevelDanger,
			Code:    "exceeds_package_limit",
			Message: fmt.Sprintf("target %.2f volumes exceeds %s limit of %.1f", p.TargetVolumes, pkg, limit),
		})
	case p.TargetVolumes >= 0.9*limit:
		findings = append(findings, Finding{
			Level:   LevelWarning,
			Code:    "near_package_limit",
			Message: fmt.Sprintf("target %.2f volumes is within 10%% of %s limit of %.1f", p.TargetVolumes, pkg, limit),
		})
	}

	if p.Method.IsForced() {
		if p.VesselPressureKnown && p.VesselMaxPSI <= 0 {
			findings = append(findings, Finding{
				Level:   LevelDanger,
				Code:    "vessel_not_pressure_rated",
				Message: "vessel has no pressure rating; force carbonation is not allowed",
			})
		} else if p.VesselMaxPSI > 0 {
			switch {
			case p.PressurePSI > p.VesselMaxPSI:
				findings = append(findings, Finding{
					Level:   LevelDanger,
					Code:    "exceeds_vessel_pressure",
					Message: fmt.Sprintf("required %.1f psi exceeds vessel rating of %.1f psi", p.PressurePSI, p.VesselMaxPSI),
				})
			case p.PressurePSI > 0.8*p.VesselMaxPSI:
				findings = append(findings, Finding{
					Level:   LevelWarning,
					Code:    "near_vessel_pressure",
					Message: fmt.Sprintf("required %.1f psi is above 80%% of vessel rating %.1f psi", p.PressurePSI, p.VesselMaxPSI),
				})
			}
		}
		if p.TemperatureC < forceMinTempC || p.TemperatureC > forceMaxTempC {
			findings = append(findings, Finding{
				Level:   LevelWarning,
				Code:    "temperature_out_of_range",
				Message: fmt.Sprintf("%.1f°C is outside the %.0f-%.0f°C force carbonation range", p.TemperatureC, forceMinTempC, forceMaxTempC),
			})
		}
	}

	if p.Method == MethodBottleConditioned && p.TargetVolumes <= ResidualCO2(p.TemperatureC) {
		findings = append(findings, Finding{
			Level:   LevelInfo,
			Code:    "no_priming_needed",
			Message: "residual CO2 already meets the target",
		})
	}
	return findings, nil
}

// HasDanger reports whether any finding blocks the operation.
func HasDanger(findings []Finding) bool {
	for _, f := range findings {
		if f.Level == LevelDanger {
			return true
		}
	}
	return false
}
