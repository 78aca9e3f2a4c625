package ttb

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func defaultRates(t *testing.T) *Rates {
	t.Helper()
	rates, err := DefaultRates()
	require.NoError(t, err)
	return rates
}

func TestDefaultRates(t *testing.T) {
	rates := defaultRates(t)
	assert.True(t, rates.Classes[ClassStill16].Equal(dec("1.07")))
	assert.True(t, rates.Classes[ClassHardCider].Equal(dec("0.226")))
	require.Len(t, rates.CreditTiers, 3)
	assert.True(t, rates.CreditTiers[0].UpToGallons.Equal(dec("30000")))
	assert.True(t, rates.CreditTiers[2].HardCider.Equal(dec("0.033")))
}

func TestParseRatesRequiresEveryClass(t *testing.T) {
	_, err := ParseRates([]byte("classes:\n  a: \"1.07\"\n"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseRates([]byte("classes:\n  a: nope\n"))
	assert.Error(t, err)
}

func TestComputeTaxFirstTier(t *testing.T) {
	sum := ComputeTax(map[TaxClass]decimal.Decimal{
		ClassStill16:   dec("1000"),
		ClassHardCider: dec("1000"),
	}, decimal.Zero, defaultRates(t))

	require.Len(t, sum.Lines, 2)
	assert.True(t, sum.Lines[0].Tax.Equal(dec("1070")), sum.Lines[0].Tax.String())
	assert.True(t, sum.Lines[0].Credit.Equal(dec("1000")), sum.Lines[0].Credit.String())
	assert.True(t, sum.Lines[1].Tax.Equal(dec("226")), sum.Lines[1].Tax.String())
	assert.True(t, sum.Lines[1].Credit.Equal(dec("62")), sum.Lines[1].Credit.String())
	assert.True(t, sum.NetTax.Equal(dec("234")), sum.NetTax.String())
	assert.True(t, sum.YearToDateGallons.Equal(dec("2000")))
}

func TestComputeTaxCrossesTierBoundary(t *testing.T) {
	sum := ComputeTax(map[TaxClass]decimal.Decimal{
		ClassStill16: dec("1000"),
	}, dec("29500"), defaultRates(t))

	require.Len(t, sum.Lines, 1)
	// 500 gal at 1.00 and 500 gal at 0.90.
	assert.True(t, sum.Lines[0].Credit.Equal(dec("950")), sum.Lines[0].Credit.String())
	assert.True(t, sum.NetTax.Equal(dec("120")), sum.NetTax.String())
	assert.True(t, sum.YearToDateGallons.Equal(dec("30500")))
}

func TestComputeTaxBeyondLastTier(t *testing.T) {
	sum := ComputeTax(map[TaxClass]decimal.Decimal{
		ClassStill16: dec("100"),
	}, dec("750000"), defaultRates(t))

	require.Len(t, sum.Lines, 1)
	assert.True(t, sum.Lines[0].Credit.IsZero())
	assert.True(t, sum.NetTax.Equal(dec("107")))
	assert.True(t, sum.YearToDateGallons.Equal(dec("750100")))
}

func TestComputeTaxCreditNeverExceedsTax(t *testing.T) {
	rates, err := ParseRates([]byte(`
classes: {a: "0.50", b: "1.57", c: "3.15", d: "3.30", e: "3.40", f: "0.226"}
credit_tiers:
  - {up_to_gallons: 30000, wine: "1.00", hard_cider: "0.062"}
`))
	require.NoError(t, err)

	sum := ComputeTax(map[TaxClass]decimal.Decimal{ClassStill16: dec("200")}, decimal.Zero, rates)
	require.Len(t, sum.Lines, 1)
	assert.True(t, sum.Lines[0].Credit.Equal(sum.Lines[0].Tax))
	assert.True(t, sum.NetTax.IsZero())
}

func TestComputeTaxSequentialMonthsMatchSingleRun(t *testing.T) {
	rates := defaultRates(t)
	first := ComputeTax(map[TaxClass]decimal.Decimal{ClassStill16: dec("20000")}, decimal.Zero, rates)
	second := ComputeTax(map[TaxClass]decimal.Decimal{ClassStill16: dec("20000")}, first.YearToDateGallons, rates)
	whole := ComputeTax(map[TaxClass]decimal.Decimal{ClassStill16: dec("40000")}, decimal.Zero, rates)

	assert.True(t, first.TotalCredit.Add(second.TotalCredit).Equal(whole.TotalCredit))
}
