package packaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/uptrace/bun"

	"cellarbook/frontend/batches"
	"cellarbook/infrastructure/barcodes"
	"cellarbook/infrastructure/pdfdoc"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/infrastructure/ttb"
)

type LotLabelData struct {
	LotCode     string
	BatchCode   string
	BatchName   string
	PackageType string
	UnitSizeML  float64
	Units       int64
	TaxClass    string
	PackagedAt  time.Time
}

// qrPayload is what scanners read from the lot label QR code.
func (l LotLabelData) qrPayload() string {
	return fmt.Sprintf("LOT:%s;BATCH:%s;PKG:%s;SIZE:%.0fML;DATE:%s",
		l.LotCode, l.BatchCode, l.PackageType, l.UnitSizeML, l.PackagedAt.Format("2006-01-02"))
}

func LoadLotLabel(ctx context.Context, db *sqlite.DB, runID int64) (LotLabelData, error) {
	return sqlite.Read(ctx, db, func(ctx context.Context, tx bun.Tx) (LotLabelData, error) {
		run, err := loadRun(ctx, tx, runID)
		if err != nil {
			return LotLabelData{}, err
		}
		b, err := batches.LoadBatch(ctx, tx, run.BatchID)
		if err != nil {
			return LotLabelData{}, err
		}
		return LotLabelData{
			LotCode:     run.LotCode,
			BatchCode:   b.Code,
			BatchName:   b.Name,
			PackageType: run.PackageType,
			UnitSizeML:  run.UnitSizeML,
			Units:       run.UnitsProduced,
			TaxClass:    run.TaxClass,
			PackagedAt:  run.PackagedAt,
		}, nil
	})
}

// RenderLotLabelsPDF prints copies of the lot label, one per page.
func RenderLotLabelsPDF(label LotLabelData, copies int) ([]byte, error) {
	if strings.TrimSpace(label.LotCode) == "" {
		return nil, fmt.Errorf("lot code is required")
	}
	if copies < 1 {
		copies = 1
	}
	barcodePNG, err := barcodes.Code128PNG(label.LotCode, 1200, 240)
	if err != nil {
		return nil, err
	}
	qrPNG, err := barcodes.QRPNG(label.qrPayload(), 400)
	if err != nil {
		return nil, err
	}

	pdf := pdfdoc.New("L", "Lot Label "+label.LotCode)
	pdf.SetAutoPageBreak(false, 0)
	for i := 0; i < copies; i++ {
		addLotLabelPage(pdf, label, barcodePNG, qrPNG, i)
	}
	return pdfdoc.Bytes(pdf)
}

func addLotLabelPage(pdf *gofpdf.Fpdf, label LotLabelData, barcodePNG, qrPNG []byte, pageIndex int) {
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()
	margin := 12.0
	w0 := pageW - 2*margin
	pdf.SetLineWidth(0.35)
	pdf.Rect(margin, margin, w0, pageH-2*margin, "")

	name := strings.TrimSpace(label.BatchName)
	if name == "" {
		name = label.BatchCode
	}
	pdf.SetXY(margin, margin+6)
	pdfdoc.FitFontSize(pdf, "Helvetica", "B", 40, 18, name, w0-10)
	pdf.CellFormat(w0, 18, name, "", 1, "C", false, 0, "")

	pdf.SetX(margin)
	pdfdoc.FitFontSize(pdf, "Helvetica", "B", 48, 24, "LOT "+label.LotCode, w0-10)
	pdf.CellFormat(w0, 22, "LOT "+label.LotCode, "", 1, "C", false, 0, "")

	class := label.TaxClass
	if c, err := ttb.ParseTaxClass(label.TaxClass); err == nil {
		class = c.Label()
	}
	pdf.SetFont("Helvetica", "", 15)
	for _, line := range []string{
		fmt.Sprintf("Batch: %s", label.BatchCode),
		fmt.Sprintf("%d x %.0f mL %s", label.Units, label.UnitSizeML, label.PackageType),
		fmt.Sprintf("Packaged: %s", label.PackagedAt.Format("02/01/2006")),
		fmt.Sprintf("Tax class: %s", class),
	} {
		pdf.SetX(margin + 8)
		pdf.CellFormat(w0-100, 8, line, "", 1, "L", false, 0, "")
	}

	qrSize := 70.0
	pdfdoc.PlacePNG(pdf, fmt.Sprintf("lot-qr-%d", pageIndex), qrPNG, pageW-margin-qrSize-8, margin+52, qrSize, qrSize)

	imgW, imgH := 220.0, 44.0
	y := pageH - margin - imgH - 20
	pdfdoc.PlacePNG(pdf, fmt.Sprintf("lot-barcode-%d", pageIndex), barcodePNG, (pageW-imgW)/2, y, imgW, imgH)
	pdf.SetXY(margin, y+imgH+2)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(w0, 10, label.LotCode, "", 1, "C", false, 0, "")
}
