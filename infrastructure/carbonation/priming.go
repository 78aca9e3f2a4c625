package carbonation

import (
	"fmt"
	"strings"

	"cellarbook/infrastructure/units"
)

// SucroseGramsPerLiterVolume is the sucrose needed to add one volume of CO2 to
// one litre (15.195 g per US gallon).
const SucroseGramsPerLiterVolume = 15.195 / units.LitersPerGallon

type Sugar string

const (
	Sucrose          Sugar = "sucrose"
	Dextrose         Sugar = "dextrose"
	Honey            Sugar = "honey"
	MapleSyrup       Sugar = "maple_syrup"
	AppleConcentrate Sugar = "apple_concentrate"
)

var sugarFactors = map[Sugar]float64{
	Sucrose:          1.0,
	Dextrose:         1.15,
	Honey:            1.25,
	MapleSyrup:       1.50,
	AppleConcentrate: 1.45,
}

func ParseSugar(raw string) (Sugar, error) {
	s := Sugar(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return Sucrose, nil
	}
	if _, ok := sugarFactors[s]; !ok {
		return "", fmt.Errorf("%w: unknown sugar %q", ErrInvalidInput, raw)
	}
	return s, nil
}

// PrimingResult is the dose for one bottle-conditioning operation.
type PrimingResult struct {
	Sugar           Sugar   `json:"sugar"`
	Grams           float64 `json:"grams"`
	GramsPerLiter   float64 `json:"grams_per_liter"`
	ResidualVolumes float64 `json:"residual_volumes"`
	AddedVolumes    float64 `json:"added_volumes"`
	Note            string  `json:"note,omitempty"`
}

// CalculatePrimingSugar doses sugar so volumeL of liquid that finished
// fermenting at tempC reaches targetVolumes once sealed.
func CalculatePrimingSugar(volumeL, targetVolumes, tempC float64, sugar Sugar) (PrimingResult, error) {
	factor, ok := sugarFactors[sugar]
	if !ok {
		return PrimingResult{}, fmt.Errorf("%w: unknown sugar %q", ErrInvalidInput, sugar)
	}
	if volumeL <= 0 {
		return PrimingResult{}, fmt.Errorf("%w: volume must be > 0", ErrInvalidInput)
	}
	if targetVolumes < 0 || targetVolumes > MaxVolumes {
		return PrimingResult{}, fmt.Errorf("%w: volumes must be between 0 and %.0f", ErrInvalidInput, MaxVolumes)
	}

	residual := ResidualCO2(tempC)
	res := PrimingResult{Sugar: sugar, ResidualVolumes: residual}
	if targetVolumes <= residual {
		res.Note = "residual CO2 already meets target; no priming sugar needed"
		return res, nil
	}
	res.AddedVolumes = targetVolumes - residual
	res.GramsPerLiter = res.AddedVolumes * SucroseGramsPerLiterVolume * factor
	res.Grams = res.GramsPerLiter * volumeL
	return res, nil
}
