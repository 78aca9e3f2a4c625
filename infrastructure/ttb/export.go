package ttb

import (
	"bytes"
	"fmt"

	"cellarbook/infrastructure/pdfdoc"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

type formRow struct {
	label string
	value func(*Lines) float64
}

var formRows = []formRow{
	{"On hand beginning of period", func(l *Lines) float64 { return l.OnHandBeginning }},
	{"Produced by fermentation", func(l *Lines) float64 { return l.Produced }},
	{"Received in bond", func(l *Lines) float64 { return l.ReceivedInBond }},
	{"Bottled", func(l *Lines) float64 { return l.BottledIn }},
	{"Tax class change in", func(l *Lines) float64 { return l.ClassChangeIn }},
	{"Inventory gains", func(l *Lines) float64 { return l.AdjustmentGain }},
	{"TOTAL", func(l *Lines) float64 { return l.TotalIncreases }},
	{"Bottled (removed from bulk)", func(l *Lines) float64 { return l.BottledOut }},
	{"Removed taxpaid", func(l *Lines) float64 { return l.RemovedTaxpaid }},
	{"Transferred in bond", func(l *Lines) float64 { return l.TransferredInBond }},
	{"Tax class change out", func(l *Lines) float64 { return l.ClassChangeOut }},
	{"Losses", func(l *Lines) float64 { return l.Losses }},
	{"Inventory losses", func(l *Lines) float64 { return l.AdjustmentLoss }},
	{"On hand end of period", func(l *Lines) float64 { return l.OnHandEnding }},
	{"TOTAL", func(l *Lines) float64 { return l.TotalDecreases }},
}

// FileName is the download name for a rendered form.
func FileName(p Period, ext string) string {
	return fmt.Sprintf("ttb-5120-17-%s.%s", p, ext)
}

// RenderPDF lays the form out as a landscape A4 document.
func RenderPDF(f *Form) ([]byte, error) {
	pdf := pdfdoc.New("L", "TTB F 5120.17 "+f.Period.String())
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, "Report of Wine Premises Operations (TTB F 5120.17)", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, fmt.Sprintf("Period: %s %d", f.Period.Month, f.Period.Year), "", 1, "L", false, 0, "")
	if f.Producer.Name != "" {
		pdf.CellFormat(0, 5, fmt.Sprintf("Proprietor: %s   Registry: %s   EIN: %s", f.Producer.Name, f.Producer.Registry, f.Producer.EIN), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	writeSectionPDF(pdf, "Part I Section A: Bulk wines", f.Bulk)
	pdf.Ln(4)
	writeSectionPDF(pdf, "Part I Section B: Bottled wines", f.Bottled)
	pdf.Ln(4)
	writeTaxPDF(pdf, f.Tax)

	if len(f.Findings) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 6, "Reconciliation findings", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, fd := range f.Findings {
			pdf.MultiCell(0, 5, fmt.Sprintf("%s / %s: %s (ledger %.2f, actual %.2f)", fd.Section, fd.Class, fd.Message, fd.Expected, fd.Actual), "", "L", false)
		}
	}
	return pdfdoc.Bytes(pdf)
}

func writeSectionPDF(pdf *gofpdf.Fpdf, title string, sec SectionReport) {
	labelW := 70.0
	colW := 33.0
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(labelW, 6, "Line", "1", 0, "L", true, 0, "")
	for _, c := range AllClasses {
		pdf.CellFormat(colW, 6, fmt.Sprintf("(%s) %s", c, c.Label()), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for i, row := range formRows {
		pdf.CellFormat(labelW, 5, fmt.Sprintf("%d. %s", i+1, row.label), "1", 0, "L", false, 0, "")
		for _, c := range AllClasses {
			pdf.CellFormat(colW, 5, fmt.Sprintf("%.2f", row.value(sec[c])), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func writeTaxPDF(pdf *gofpdf.Fpdf, tax TaxSummary) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, "Excise tax and small producer credit", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 8)
	headers := []string{"Class", "Taxable gal", "Rate", "Tax", "Credit", "Net"}
	for _, h := range headers {
		pdf.CellFormat(35, 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 8)
	for _, l := range tax.Lines {
		pdf.CellFormat(35, 5, string(l.Class), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 5, l.TaxableGallons.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 5, l.Rate.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 5, l.Tax.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 5, l.Credit.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 5, l.Net.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(105, 5, "Totals", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 5, tax.TotalTax.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 5, tax.TotalCredit.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 5, tax.NetTax.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 5, fmt.Sprintf("Calendar year gallons removed: %s before period, %s after", tax.YearToDateGallonsPrior.StringFixed(2), tax.YearToDateGallons.StringFixed(2)), "", 1, "L", false, 0, "")
}

// RenderXLSX writes the form to a workbook with one sheet per section and a
// tax sheet.
func RenderXLSX(f *Form) ([]byte, error) {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName("Sheet1", "Bulk"); err != nil {
		return nil, err
	}
	if err := writeSectionSheet(book, "Bulk", f.Bulk); err != nil {
		return nil, err
	}
	if _, err := book.NewSheet("Bottled"); err != nil {
		return nil, err
	}
	if err := writeSectionSheet(book, "Bottled", f.Bottled); err != nil {
		return nil, err
	}
	if _, err := book.NewSheet("Tax"); err != nil {
		return nil, err
	}
	if err := writeTaxSheet(book, f.Tax); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := book.Write(&out); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return out.Bytes(), nil
}

func writeSectionSheet(book *excelize.File, sheet string, sec SectionReport) error {
	header := []any{"Line"}
	for _, c := range AllClasses {
		header = append(header, fmt.Sprintf("(%s) %s", c, c.Label()))
	}
	if err := book.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range formRows {
		values := []any{fmt.Sprintf("%d. %s", i+1, row.label)}
		for _, c := range AllClasses {
			values = append(values, row.value(sec[c]))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := book.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return book.SetColWidth(sheet, "A", "A", 34)
}

func writeTaxSheet(book *excelize.File, tax TaxSummary) error {
	header := []any{"Class", "Taxable gallons", "Rate", "Tax", "Credit", "Net"}
	if err := book.SetSheetRow("Tax", "A1", &header); err != nil {
		return err
	}
	for i, l := range tax.Lines {
		gal, _ := l.TaxableGallons.Float64()
		rate, _ := l.Rate.Float64()
		amt, _ := l.Tax.Float64()
		credit, _ := l.Credit.Float64()
		net, _ := l.Net.Float64()
		values := []any{string(l.Class), gal, rate, amt, credit, net}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := book.SetSheetRow("Tax", cell, &values); err != nil {
			return err
		}
	}
	last := len(tax.Lines) + 2
	total, _ := tax.TotalTax.Float64()
	credit, _ := tax.TotalCredit.Float64()
	net, _ := tax.NetTax.Float64()
	cell, err := excelize.CoordinatesToCellName(1, last)
	if err != nil {
		return err
	}
	totals := []any{"Totals", nil, nil, total, credit, net}
	return book.SetSheetRow("Tax", cell, &totals)
}
