package purchasing

import (
	"fmt"
	"strings"

	"cellarbook/infrastructure/barcodes"
	"cellarbook/infrastructure/pdfdoc"
)

// Buyer is printed in the header of purchase order documents.
type Buyer struct {
	Name     string
	Registry string
}

// RenderOrderPDF prints a purchase order for the vendor, with the PO number
// as a code128 barcode so receiving can scan it.
func RenderOrderPDF(view OrderView, buyer Buyer) ([]byte, error) {
	pdf := pdfdoc.New("P", "Purchase Order "+view.PONumber)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(120, 10, "Purchase Order", "", 0, "L", false, 0, "")
	barcodePNG, err := barcodes.Code128PNG(view.PONumber, 600, 120)
	if err != nil {
		return nil, err
	}
	pdfdoc.PlacePNG(pdf, "po-barcode", barcodePNG, 135, 10, 60, 12)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, "PO number: "+view.PONumber, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Status: "+strings.ReplaceAll(view.Status, "_", " "), "", 1, "L", false, 0, "")
	if view.OrderedAt != nil {
		pdf.CellFormat(0, 5, "Ordered: "+view.OrderedAt.Format("02/01/2006"), "", 1, "L", false, 0, "")
	}
	if view.ExpectedAt != nil {
		pdf.CellFormat(0, 5, "Expected: "+view.ExpectedAt.Format("02/01/2006"), "", 1, "L", false, 0, "")
	}
	if buyer.Name != "" {
		line := "Buyer: " + buyer.Name
		if buyer.Registry != "" {
			line += " (" + buyer.Registry + ")"
		}
		pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	if v := view.Vendor; v != nil {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 6, v.Name, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, s := range []string{v.ContactName, v.Email, v.Phone} {
			if s != "" {
				pdf.CellFormat(0, 5, s, "", 1, "L", false, 0, "")
			}
		}
		pdf.Ln(3)
	}

	widths := []float64{30, 70, 20, 15, 25, 25}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"SKU", "Item", "Qty", "Unit", "Unit cost", "Line total"} {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, l := range view.LineViews {
		pdf.CellFormat(widths[0], 6, l.SKU, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, l.ItemName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%g", l.QtyOrdered), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, l.Unit, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[4], 6, l.UnitCost, "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[5], 6, l.LineTotal, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(widths[0]+widths[1]+widths[2]+widths[3]+widths[4], 6, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[5], 6, view.Total, "1", 1, "R", false, 0, "")

	if view.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, "Notes: "+view.Notes, "", "L", false)
	}
	return pdfdoc.Bytes(pdf)
}
