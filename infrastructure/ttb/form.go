package ttb

import (
	"fmt"
	"math"
	"time"

	"cellarbook/infrastructure/units"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementProduced          MovementType = "produced"
	MovementReceivedInBond    MovementType = "received_in_bond"
	MovementBottled           MovementType = "bottled"
	MovementRemovedTaxpaid    MovementType = "removed_taxpaid"
	MovementTransferredInBond MovementType = "transferred_in_bond"
	MovementLoss              MovementType = "loss"
	MovementAdjustmentGain    MovementType = "adjustment_gain"
	MovementAdjustmentLoss    MovementType = "adjustment_loss"
	MovementClassChangeIn     MovementType = "tax_class_change_in"
	MovementClassChangeOut    MovementType = "tax_class_change_out"
)

func ParseMovementType(raw string) (MovementType, error) {
	switch m := MovementType(raw); m {
	case MovementProduced, MovementReceivedInBond, MovementBottled, MovementRemovedTaxpaid,
		MovementTransferredInBond, MovementLoss, MovementAdjustmentGain, MovementAdjustmentLoss,
		MovementClassChangeIn, MovementClassChangeOut:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown movement type %q", ErrInvalidInput, raw)
}

type Section string

const (
	SectionBulk    Section = "bulk"
	SectionBottled Section = "bottled"
)

// Movement is one entry of the volume ledger. VolumeL is always positive; the
// type and section give it a direction.
type Movement struct {
	OccurredAt time.Time
	Type       MovementType
	Section    Section
	TaxClass   TaxClass
	VolumeL    float64
}

// Period is a calendar month.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: month %d", ErrInvalidInput, month)
	}
	if year < 2000 || year > 2100 {
		return Period{}, fmt.Errorf("%w: year %d", ErrInvalidInput, year)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is exclusive.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

func (p Period) YearStart() time.Time {
	return time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Lines are the Part I rows for one column, in wine gallons.
type Lines struct {
	OnHandBeginning   float64 `json:"on_hand_beginning"`
	Produced          float64 `json:"produced"`
	ReceivedInBond    float64 `json:"received_in_bond"`
	BottledIn         float64 `json:"bottled_in"`
	ClassChangeIn     float64 `json:"tax_class_change_in"`
	AdjustmentGain    float64 `json:"adjustment_gain"`
	TotalIncreases    float64 `json:"total_increases"`
	BottledOut        float64 `json:"bottled_out"`
	RemovedTaxpaid    float64 `json:"removed_taxpaid"`
	TransferredInBond float64 `json:"transferred_in_bond"`
	ClassChangeOut    float64 `json:"tax_class_change_out"`
	Losses            float64 `json:"losses"`
	AdjustmentLoss    float64 `json:"adjustment_loss"`
	OnHandEnding      float64 `json:"on_hand_ending"`
	TotalDecreases    float64 `json:"total_decreases"`
}

func (l *Lines) increases() float64 {
	return l.Produced + l.ReceivedInBond + l.BottledIn + l.ClassChangeIn + l.AdjustmentGain
}

func (l *Lines) decreases() float64 {
	return l.BottledOut + l.RemovedTaxpaid + l.TransferredInBond + l.ClassChangeOut + l.Losses + l.AdjustmentLoss
}

// Balanced reports whether beginning plus increases equals decreases plus ending.
func (l *Lines) Balanced() bool {
	return math.Abs(l.TotalIncreases-l.TotalDecreases) < 0.005
}

// SectionReport holds one Lines per tax class.
type SectionReport map[TaxClass]*Lines

// Finding is a reconciliation problem worth a second look before filing.
type Finding struct {
	Section  Section  `json:"section"`
	Class    TaxClass `json:"class"`
	Message  string   `json:"message"`
	Expected float64  `json:"expected_gallons"`
	Actual   float64  `json:"actual_gallons"`
}

type Producer struct {
	Name     string `json:"name"`
	Registry string `json:"registry"`
	EIN      string `json:"ein"`
}

// Form is a generated Form 5120.17.
type Form struct {
	Period      Period        `json:"period"`
	Producer    Producer      `json:"producer"`
	Bulk        SectionReport `json:"bulk"`
	Bottled     SectionReport `json:"bottled"`
	Tax         TaxSummary    `json:"tax"`
	Findings    []Finding     `json:"findings"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// FormInput is everything needed to build a report for one period.
type FormInput struct {
	Period   Period
	Producer Producer
	// Movements may include history before the period; it forms the
	// beginning inventory. Entries on or after the period end are ignored.
	Movements []Movement
	// PriorRemovalsGallons is the taxable volume already removed this calendar
	// year before the period.
	PriorRemovalsGallons float64
	// PhysicalOnHandL, when set, is reconciled against the ledger ending
	// inventory.
	PhysicalOnHandL map[Section]map[TaxClass]float64
	Rates           *Rates
	Now             time.Time
}

// BalanceToleranceGallons is the largest ledger/physical difference accepted silently.
const BalanceToleranceGallons = 0.5

// GenerateForm512017 aggregates movements by tax class into the bulk and
// bottled sections and prices taxpaid removals.
func GenerateForm512017(in FormInput) (*Form, error) {
	if in.Rates == nil {
		return nil, fmt.Errorf("%w: rates are required", ErrInvalidInput)
	}
	if in.PriorRemovalsGallons < 0 {
		return nil, fmt.Errorf("%w: prior removals must be >= 0", ErrInvalidInput)
	}

	form := &Form{
		Period:      in.Period,
		Producer:    in.Producer,
		Bulk:        newSectionReport(),
		Bottled:     newSectionReport(),
		Findings:    make([]Finding, 0),
		GeneratedAt: in.Now,
	}
	if form.GeneratedAt.IsZero() {
		form.GeneratedAt = time.Now().UTC()
	}

	start, end := in.Period.Start(), in.Period.End()
	for i, mv := range in.Movements {
		if !mv.OccurredAt.Before(end) {
			continue
		}
		if err := validateMovement(mv); err != nil {
			return nil, fmt.Errorf("movement %d: %w", i, err)
		}
		lines := form.section(mv.Section)[mv.TaxClass]
		gal := units.LitersToGallons(mv.VolumeL)
		if mv.OccurredAt.Before(start) {
			lines.OnHandBeginning += signed(mv, gal)
			continue
		}
		applyMovement(lines, mv, gal)
	}

	taxable := make(map[TaxClass]decimal.Decimal)
	for _, sec := range []Section{SectionBulk, SectionBottled} {
		report := form.section(sec)
		for _, class := range AllClasses {
			l := report[class]
			roundLines(l)
			l.OnHandEnding = units.Round(l.OnHandBeginning+l.increases()-l.decreases(), 2)
			l.TotalIncreases = units.Round(l.OnHandBeginning+l.increases(), 2)
			l.TotalDecreases = units.Round(l.decreases()+l.OnHandEnding, 2)

			if l.OnHandEnding < -0.005 {
				form.Findings = append(form.Findings, Finding{
					Section: sec, Class: class,
					Message: "ledger ending inventory is negative",
					Actual:  l.OnHandEnding,
				})
			}
			if phys, ok := in.PhysicalOnHandL[sec][class]; ok {
				physGal := units.Round(units.LitersToGallons(phys), 2)
				if math.Abs(physGal-l.OnHandEnding) > BalanceToleranceGallons {
					form.Findings = append(form.Findings, Finding{
						Section: sec, Class: class,
						Message:  "ledger ending inventory differs from physical on hand",
						Expected: l.OnHandEnding,
						Actual:   physGal,
					})
				}
			}
			if l.RemovedTaxpaid > 0 {
				taxable[class] = taxable[class].Add(decimal.NewFromFloat(l.RemovedTaxpaid))
			}
		}
	}

	form.Tax = ComputeTax(taxable, decimal.NewFromFloat(units.Round(in.PriorRemovalsGallons, 2)), in.Rates)
	return form, nil
}

func newSectionReport() SectionReport {
	r := make(SectionReport, len(AllClasses))
	for _, c := range AllClasses {
		r[c] = &Lines{}
	}
	return r
}

func (f *Form) section(s Section) SectionReport {
	if s == SectionBottled {
		return f.Bottled
	}
	return f.Bulk
}

func validateMovement(mv Movement) error {
	if _, err := ParseMovementType(string(mv.Type)); err != nil {
		return err
	}
	if mv.Section != SectionBulk && mv.Section != SectionBottled {
		return fmt.Errorf("%w: unknown section %q", ErrInvalidInput, mv.Section)
	}
	if !mv.TaxClass.Valid() {
		return fmt.Errorf("%w: unknown tax class %q", ErrInvalidInput, mv.TaxClass)
	}
	if mv.VolumeL < 0 || math.IsNaN(mv.VolumeL) {
		return fmt.Errorf("%w: volume must be >= 0", ErrInvalidInput)
	}
	return nil
}

// signed returns the on-hand effect of mv.
func signed(mv Movement, gal float64) float64 {
	switch mv.Type {
	case MovementProduced, MovementReceivedInBond, MovementAdjustmentGain, MovementClassChangeIn:
		return gal
	case MovementBottled:
		if mv.Section == SectionBottled {
			return gal
		}
		return -gal
	default:
		return -gal
	}
}

func applyMovement(l *Lines, mv Movement, gal float64) {
	switch mv.Type {
	case MovementProduced:
		l.Produced += gal
	case MovementReceivedInBond:
		l.ReceivedInBond += gal
	case MovementBottled:
		if mv.Section == SectionBottled {
			l.BottledIn += gal
		} else {
			l.BottledOut += gal
		}
	case MovementRemovedTaxpaid:
		l.RemovedTaxpaid += gal
	case MovementTransferredInBond:
		l.TransferredInBond += gal
	case MovementLoss:
		l.Losses += gal
	case MovementAdjustmentGain:
		l.AdjustmentGain += gal
	case MovementAdjustmentLoss:
		l.AdjustmentLoss += gal
	case MovementClassChangeIn:
		l.ClassChangeIn += gal
	case MovementClassChangeOut:
		l.ClassChangeOut += gal
	}
}

func roundLines(l *Lines) {
	for _, f := range []*float64{
		&l.OnHandBeginning, &l.Produced, &l.ReceivedInBond, &l.BottledIn, &l.ClassChangeIn,
		&l.AdjustmentGain, &l.BottledOut, &l.RemovedTaxpaid, &l.TransferredInBond,
		&l.ClassChangeOut, &l.Losses, &l.AdjustmentLoss,
	} {
		*f = units.Round(*f, 2)
	}
}
