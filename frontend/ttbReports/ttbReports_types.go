package ttbreports

import (
	"time"

	"cellarbook/infrastructure/ttb"
)

// Settings are the process wide inputs to every generated form.
type Settings struct {
	Rates    *ttb.Rates
	Producer ttb.Producer
}

type GenerateInput struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// ReportSummary lists a saved report without its snapshot.
type ReportSummary struct {
	ID          int64     `json:"id"`
	Period      string    `json:"period"`
	PeriodYear  int       `json:"period_year"`
	PeriodMonth int       `json:"period_month"`
	NetTax      string    `json:"net_tax"`
	GeneratedBy int64     `json:"generated_by"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Export formats.
const (
	FormatJSON = "json"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)
