package carbonation

import "fmt"

// PlanInput collects everything needed to plan a carbonation operation.
type PlanInput struct {
	Method         Method  `json:"method"`
	PackageType    string  `json:"package_type"`
	VolumeL        float64 `json:"volume_l"`
	CurrentVolumes float64 `json:"current_volumes"`
	TargetVolumes  float64 `json:"target_volumes"`
	TemperatureC   float64 `json:"temperature_c"`
	// PressurePSI overrides the computed set pressure for force methods when > 0.
	PressurePSI         float64 `json:"pressure_psi"`
	Sugar               Sugar   `json:"sugar"`
	VesselMaxPSI        float64 `json:"vessel_max_psi"`
	VesselPressureKnown bool    `json:"-"`
}

// Plan is the computed outcome of a PlanInput.
type Plan struct {
	Method           Method           `json:"method"`
	RequiredPressure float64          `json:"required_pressure_psi"`
	AppliedPressure  float64          `json:"applied_pressure_psi"`
	Duration         DurationEstimate `json:"duration"`
	Priming          *PrimingResult   `json:"priming,omitempty"`
	Findings         []Finding        `json:"findings"`
	Blocked          bool             `json:"blocked"`
}

// BuildPlan runs the calculators and safety checks for in.
func BuildPlan(in PlanInput) (Plan, error) {
	plan := Plan{Method: in.Method}
	switch in.Method {
	case MethodForceSet, MethodForceBurst:
		required, err := CalculateRequiredPressure(in.TargetVolumes, in.TemperatureC)
		if err != nil {
			return plan, err
		}
		plan.RequiredPressure = required
		plan.AppliedPressure = required
		if in.PressurePSI > 0 {
			plan.AppliedPressure = in.PressurePSI
		}
		// Set-and-forget at exactly the equilibrium pressure never arrives; plan
		// against the attainment ratio instead.
		if in.PressurePSI <= 0 {
			plan.Duration = DurationEstimate{EquilibriumVolumes: in.TargetVolumes}
			if in.TargetVolumes > in.CurrentVolumes {
				plan.Duration.Hours = HoursToAttain(in.Method, in.TemperatureC)
				plan.Duration.Days = plan.Duration.Hours / 24
			}
		} else {
			d, err := EstimateCarbonationDuration(in.Method, in.CurrentVolumes, in.TargetVolumes, in.TemperatureC, plan.AppliedPressure)
			if err != nil {
				return plan, err
			}
			plan.Duration = d
		}
	case MethodBottleConditioned:
		sugar := in.Sugar
		if sugar == "" {
			sugar = Sucrose
		}
		priming, err := CalculatePrimingSugar(in.VolumeL, in.TargetVolumes, in.TemperatureC, sugar)
		if err != nil {
			return plan, err
		}
		plan.Priming = &priming
		d, err := EstimateCarbonationDuration(in.Method, in.CurrentVolumes, in.TargetVolumes, in.TemperatureC, 0)
		if err != nil {
			return plan, err
		}
		plan.Duration = d
	default:
		return plan, fmt.Errorf("%w: unknown method %q", ErrInvalidInput, in.Method)
	}

	findings, err := CheckSafety(SafetyParams{
		Method:              in.Method,
		PackageType:         in.PackageType,
		TargetVolumes:       in.TargetVolumes,
		TemperatureC:        in.TemperatureC,
		PressurePSI:         plan.AppliedPressure,
		VesselMaxPSI:        in.VesselMaxPSI,
		VesselPressureKnown: in.VesselPressureKnown,
	})
	if err != nil {
		return plan, err
	}
	plan.Findings = findings
	plan.Blocked = HasDanger(findings)
	return plan, nil
}
