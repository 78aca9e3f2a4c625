package ttb

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed rates.yaml
var defaultRatesYAML []byte

// CreditTier applies its rates to gallons removed in the calendar year up to
// UpToGallons.
type CreditTier struct {
	UpToGallons decimal.Decimal
	Wine        decimal.Decimal
	HardCider   decimal.Decimal
}

// Rates is the tax table used to price a report.
type Rates struct {
	Effective   string
	Classes     map[TaxClass]decimal.Decimal
	CreditTiers []CreditTier
}

type ratesFile struct {
	Effective   string            `yaml:"effective"`
	Classes     map[string]string `yaml:"classes"`
	CreditTiers []struct {
		UpToGallons int64  `yaml:"up_to_gallons"`
		Wine        string `yaml:"wine"`
		HardCider   string `yaml:"hard_cider"`
	} `yaml:"credit_tiers"`
}

// DefaultRates returns the built-in table.
func DefaultRates() (*Rates, error) {
	return ParseRates(defaultRatesYAML)
}

// LoadRates reads a rate table from path, falling back to the built-in table
// when path is empty.
func LoadRates(path string) (*Rates, error) {
	if path == "" {
		return DefaultRates()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates file: %w", err)
	}
	return ParseRates(raw)
}

func ParseRates(raw []byte) (*Rates, error) {
	var f ratesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse rates: %w", err)
	}

	r := &Rates{Effective: f.Effective, Classes: make(map[TaxClass]decimal.Decimal, len(AllClasses))}
	for key, val := range f.Classes {
		class, err := ParseTaxClass(key)
		if err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(val)
		if err != nil {
			return nil, fmt.Errorf("rate for class %s: %w", key, err)
		}
		r.Classes[class] = d
	}
	for _, c := range AllClasses {
		if _, ok := r.Classes[c]; !ok {
			return nil, fmt.Errorf("%w: missing rate for class %s", ErrInvalidInput, c)
		}
	}

	for i, t := range f.CreditTiers {
		wine, err := decimal.NewFromString(t.Wine)
		if err != nil {
			return nil, fmt.Errorf("credit tier %d wine: %w", i, err)
		}
		cider, err := decimal.NewFromString(t.HardCider)
		if err != nil {
			return nil, fmt.Errorf("credit tier %d hard cider: %w", i, err)
		}
		r.CreditTiers = append(r.CreditTiers, CreditTier{
			UpToGallons: decimal.NewFromInt(t.UpToGallons),
			Wine:        wine,
			HardCider:   cider,
		})
	}
	sort.Slice(r.CreditTiers, func(i, j int) bool {
		return r.CreditTiers[i].UpToGallons.LessThan(r.CreditTiers[j].UpToGallons)
	})
	return r, nil
}

func (t CreditTier) rate(class TaxClass) decimal.Decimal {
	if class == ClassHardCider {
		return t.HardCider
	}
	return t.Wine
}
