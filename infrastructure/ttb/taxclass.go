// Package ttb aggregates the bulk volume ledger into TTB Form 5120.17
// (Report of Wine Premises Operations) and computes excise tax with the
// small producer credit.
package ttb

import (
	"errors"
	"fmt"
	"strings"

	"cellarbook/infrastructure/carbonation"
)

// TaxClass is a 5120.17 column.
type TaxClass string

const (
	ClassStill16        TaxClass = "a" // not over 16% ABV
	ClassStill21        TaxClass = "b" // over 16 to 21% ABV
	ClassStill24        TaxClass = "c" // over 21 to 24% ABV
	ClassArtificialCarb TaxClass = "d"
	ClassSparkling      TaxClass = "e"
	ClassHardCider      TaxClass = "f"
)

// AllClasses is the column order of the form.
var AllClasses = []TaxClass{ClassStill16, ClassStill21, ClassStill24, ClassArtificialCarb, ClassSparkling, ClassHardCider}

var classLabels = map[TaxClass]string{
	ClassStill16:        "Not over 16%",
	ClassStill21:        "Over 16 to 21%",
	ClassStill24:        "Over 21 to 24%",
	ClassArtificialCarb: "Artificially carbonated",
	ClassSparkling:      "Sparkling",
	ClassHardCider:      "Hard cider",
}

func (c TaxClass) Label() string {
	return classLabels[c]
}

func (c TaxClass) Valid() bool {
	_, ok := classLabels[c]
	return ok
}

func ParseTaxClass(raw string) (TaxClass, error) {
	c := TaxClass(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown tax class %q", ErrInvalidInput, raw)
	}
	return c, nil
}

var ErrInvalidInput = errors.New("invalid ttb input")

// One volume of CO2 is roughly 0.2 g per 100 mL.
const gramsPer100mLPerVolume = 0.2

const (
	stillCO2LimitGrams     = 0.392
	hardCiderCO2LimitGrams = 0.64
	hardCiderMinABV        = 0.5
	hardCiderMaxABV        = 8.5
)

// Thresholds in CO2 volumes.
var (
	StillMaxCO2Volumes     = stillCO2LimitGrams / gramsPer100mLPerVolume
	HardCiderMaxCO2Volumes = hardCiderCO2LimitGrams / gramsPer100mLPerVolume
)

// ClassifyBatch picks the tax class for a product.
func ClassifyBatch(productType string, abv, co2Volumes float64, method carbonation.Method) (TaxClass, error) {
	if abv < 0 || abv > 24 {
		return "", fmt.Errorf("%w: abv %.2f is outside the wine range", ErrInvalidInput, abv)
	}
	if co2Volumes < 0 {
		return "", fmt.Errorf("%w: co2 volumes must be >= 0", ErrInvalidInput)
	}

	pt := strings.ToLower(strings.TrimSpace(productType))
	if (pt == "cider" || pt == "perry") &&
		abv >= hardCiderMinABV && abv < hardCiderMaxABV &&
		co2Volumes <= HardCiderMaxCO2Volumes {
		return ClassHardCider, nil
	}

	if co2Volumes > StillMaxCO2Volumes {
		if method == carbonation.MethodBottleConditioned {
			return ClassSparkling, nil
		}
		return ClassArtificialCarb, nil
	}

	switch {
	case abv <= 16:
		return ClassStill16, nil
	case abv <= 21:
		return ClassStill21, nil
	default:
		return ClassStill24, nil
	}
}

// ProvisionalABV stands in for an ABV that has not been measured yet. Cider
// and perry are assumed to finish inside the hard cider range.
func ProvisionalABV(productType string) float64 {
	switch strings.ToLower(strings.TrimSpace(productType)) {
	case "cider", "perry":
		return provisionalCiderABV
	default:
		return 0
	}
}

const provisionalCiderABV = 6.0

// ABVFromGravity estimates alcohol by volume from original and final gravity.
func ABVFromGravity(og, fg float64) (float64, error) {
	if og <= 0 || fg <= 0 {
		return 0, fmt.Errorf("%w: gravity must be > 0", ErrInvalidInput)
	}
	if fg > og {
		return 0, fmt.Errorf("%w: final gravity %.3f above original %.3f", ErrInvalidInput, fg, og)
	}
	return (og - fg) * 131.25, nil
}
