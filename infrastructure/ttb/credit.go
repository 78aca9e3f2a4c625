package ttb

import "github.com/shopspring/decimal"

// TaxLine is the tax owed for one class in one period.
type TaxLine struct {
	Class          TaxClass        `json:"class"`
	TaxableGallons decimal.Decimal `json:"taxable_gallons"`
	Rate           decimal.Decimal `json:"rate"`
	Tax            decimal.Decimal `json:"tax"`
	Credit         decimal.Decimal `json:"credit"`
	Net            decimal.Decimal `json:"net"`
}

// TaxSummary totals every class.
type TaxSummary struct {
	Lines                  []TaxLine       `json:"lines"`
	TotalTax               decimal.Decimal `json:"total_tax"`
	TotalCredit            decimal.Decimal `json:"total_credit"`
	NetTax                 decimal.Decimal `json:"net_tax"`
	YearToDateGallonsPrior decimal.Decimal `json:"ytd_gallons_prior"`
	YearToDateGallons      decimal.Decimal `json:"ytd_gallons"`
}

var cents = int32(2)

// ComputeTax prices taxable gallons per class and applies the small producer
// credit starting from priorGallons already removed this calendar year.
// Classes consume credit tiers in column order.
func ComputeTax(taxable map[TaxClass]decimal.Decimal, priorGallons decimal.Decimal, rates *Rates) TaxSummary {
	sum := TaxSummary{
		TotalTax:               decimal.Zero,
		TotalCredit:            decimal.Zero,
		NetTax:                 decimal.Zero,
		YearToDateGallonsPrior: priorGallons,
	}
	ytd := priorGallons
	for _, class := range AllClasses {
		gallons, ok := taxable[class]
		if !ok || !gallons.IsPositive() {
			continue
		}
		rate := rates.Classes[class]
		tax := gallons.Mul(rate).Round(cents)

		var credit decimal.Decimal
		credit, ytd = consumeTiers(class, gallons, ytd, rates.CreditTiers)
		credit = credit.Round(cents)
		if credit.GreaterThan(tax) {
			credit = tax
		}

		line := TaxLine{
			Class:          class,
			TaxableGallons: gallons,
			Rate:           rate,
			Tax:            tax,
			Credit:         credit,
			Net:            tax.Sub(credit),
		}
		sum.Lines = append(sum.Lines, line)
		sum.TotalTax = sum.TotalTax.Add(tax)
		sum.TotalCredit = sum.TotalCredit.Add(credit)
	}
	sum.NetTax = sum.TotalTax.Sub(sum.TotalCredit)
	sum.YearToDateGallons = ytd
	return sum
}

func consumeTiers(class TaxClass, gallons, ytd decimal.Decimal, tiers []CreditTier) (decimal.Decimal, decimal.Decimal) {
	credit := decimal.Zero
	remaining := gallons
	for _, tier := range tiers {
		if !remaining.IsPositive() {
			break
		}
		capacity := tier.UpToGallons.Sub(ytd)
		if !capacity.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, capacity)
		credit = credit.Add(take.Mul(tier.rate(class)))
		ytd = ytd.Add(take)
		remaining = remaining.Sub(take)
	}
	// Gallons past the last tier earn no credit but still count toward the year.
	ytd = ytd.Add(remaining)
	return credit, ytd
}
