// Package units converts between storage units (litres, kilograms, Celsius, psi)
// and the display units users pick in their preferences.
package units

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	LitersPerGallon   = 3.785411784
	LitersPerHecto    = 100.0
	LitersPerBarrel   = 117.347765 // US fluid barrel, 31 gal
	KilogramsPerPound = 0.45359237
	PSIPerBar         = 14.5037738
)

// ErrUnknownUnit is returned for unit codes outside the supported set.
var ErrUnknownUnit = errors.New("unknown unit")

type Volume string

const (
	Liters      Volume = "L"
	Milliliters Volume = "mL"
	Hectoliters Volume = "hL"
	Gallons     Volume = "gal"
	Barrels     Volume = "bbl"
)

type Weight string

const (
	Kilograms Weight = "kg"
	Grams     Weight = "g"
	Pounds    Weight = "lb"
	Ounces    Weight = "oz"
)

type Temperature string

const (
	Celsius    Temperature = "C"
	Fahrenheit Temperature = "F"
)

type Pressure string

const (
	PSI Pressure = "psi"
	Bar Pressure = "bar"
)

func LitersToGallons(l float64) float64 { return l / LitersPerGallon }
func GallonsToLiters(g float64) float64 { return g * LitersPerGallon }
func CelsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }
func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }
func PSIToBar(p float64) float64 { return p / PSIPerBar }
func BarToPSI(b float64) float64 { return b * PSIPerBar }

// ParseVolume normalizes a user supplied unit code.
func ParseVolume(raw string) (Volume, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "l", "liter", "liters", "litre", "litres":
		return Liters, nil
	case "ml":
		return Milliliters, nil
	case "hl":
		return Hectoliters, nil
	case "gal", "gallon", "gallons":
		return Gallons, nil
	case "bbl", "barrel", "barrels":
		return Barrels, nil
	}
	return "", fmt.Errorf("%w: volume %q", ErrUnknownUnit, raw)
}

func ParseWeight(raw string) (Weight, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "kg":
		return Kilograms, nil
	case "g":
		return Grams, nil
	case "lb", "lbs":
		return Pounds, nil
	case "oz":
		return Ounces, nil
	}
	return "", fmt.Errorf("%w: weight %q", ErrUnknownUnit, raw)
}

func ParseTemperature(raw string) (Temperature, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "C", "°C":
		return Celsius, nil
	case "F", "°F":
		return Fahrenheit, nil
	}
	return "", fmt.Errorf("%w: temperature %q", ErrUnknownUnit, raw)
}

func ParsePressure(raw string) (Pressure, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "psi":
		return PSI, nil
	case "bar":
		return Bar, nil
	}
	return "", fmt.Errorf("%w: pressure %q", ErrUnknownUnit, raw)
}

func litersPer(u Volume) (float64, error) {
	switch u {
	case Liters:
		return 1, nil
	case Milliliters:
		return 0.001, nil
	case Hectoliters:
		return LitersPerHecto, nil
	case Gallons:
		return LitersPerGallon, nil
	case Barrels:
		return LitersPerBarrel, nil
	}
	return 0, fmt.Errorf("%w: volume %q", ErrUnknownUnit, u)
}

// FromLiters converts a stored litre value into u.
func FromLiters(l float64, u Volume) (float64, error) {
	f, err := litersPer(u)
	if err != nil {
		return 0, err
	}
	return l / f, nil
}

// ToLiters converts v expressed in u into litres.
func ToLiters(v float64, u Volume) (float64, error) {
	f, err := litersPer(u)
	if err != nil {
		return 0, err
	}
	return v * f, nil
}

func kilogramsPer(u Weight) (float64, error) {
	switch u {
	case Kilograms:
		return 1, nil
	case Grams:
		return 0.001, nil
	case Pounds:
		return KilogramsPerPound, nil
	case Ounces:
		return KilogramsPerPound / 16, nil
	}
	return 0, fmt.Errorf("%w: weight %q", ErrUnknownUnit, u)
}

func FromKilograms(kg float64, u Weight) (float64, error) {
	f, err := kilogramsPer(u)
	if err != nil {
		return 0, err
	}
	return kg / f, nil
}

func ToKilograms(v float64, u Weight) (float64, error) {
	f, err := kilogramsPer(u)
	if err != nil {
		return 0, err
	}
	return v * f, nil
}

func FromCelsius(c float64, u Temperature) (float64, error) {
	switch u {
	case Celsius:
		return c, nil
	case Fahrenheit:
		return CelsiusToFahrenheit(c), nil
	}
	return 0, fmt.Errorf("%w: temperature %q", ErrUnknownUnit, u)
}

func ToCelsius(v float64, u Temperature) (float64, error) {
	switch u {
	case Celsius:
		return v, nil
	case Fahrenheit:
		return FahrenheitToCelsius(v), nil
	}
	return 0, fmt.Errorf("%w: temperature %q", ErrUnknownUnit, u)
}

func FromPSI(p float64, u Pressure) (float64, error) {
	switch u {
	case PSI:
		return p, nil
	case Bar:
		return PSIToBar(p), nil
	}
	return 0, fmt.Errorf("%w: pressure %q", ErrUnknownUnit, u)
}

func ToPSI(v float64, u Pressure) (float64, error) {
	switch u {
	case PSI:
		return v, nil
	case Bar:
		return BarToPSI(v), nil
	}
	return 0, fmt.Errorf("%w: pressure %q", ErrUnknownUnit, u)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func FormatVolume(liters float64, u Volume) (string, error) {
	v, err := FromLiters(liters, u)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.2f %s", v, u), nil
}

func FormatWeight(kg float64, u Weight) (string, error) {
	v, err := FromKilograms(kg, u)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.2f %s", v, u), nil
}

func FormatTemperature(c float64, u Temperature) (string, error) {
	v, err := FromCelsius(c, u)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.1f °%s", v, u), nil
}

func FormatPressure(psi float64, u Pressure) (string, error) {
	v, err := FromPSI(psi, u)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.1f %s", v, u), nil
}

// Preferences is the set of display units for one user.
type Preferences struct {
	Volume      Volume      `json:"volume"`
	Weight      Weight      `json:"weight"`
	Temperature Temperature `json:"temperature"`
	Pressure    Pressure    `json:"pressure"`
}

// DefaultPreferences mirrors the storage units.
func DefaultPreferences() Preferences {
	return Preferences{Volume: Liters, Weight: Kilograms, Temperature: Celsius, Pressure: PSI}
}

// ParsePreferences validates raw unit codes, keeping defaults for blanks.
func ParsePreferences(volume, weight, temperature, pressure string) (Preferences, error) {
	p := DefaultPreferences()
	var err error
	if strings.TrimSpace(volume) != "" {
		if p.Volume, err = ParseVolume(volume); err != nil {
			return p, err
		}
	}
	if strings.TrimSpace(weight) != "" {
		if p.Weight, err = ParseWeight(weight); err != nil {
			return p, err
		}
	}
	if strings.TrimSpace(temperature) != "" {
		if p.Temperature, err = ParseTemperature(temperature); err != nil {
			return p, err
		}
	}
	if strings.TrimSpace(pressure) != "" {
		if p.Pressure, err = ParsePressure(pressure); err != nil {
			return p, err
		}
	}
	return p, nil
}
