// Package pdfdoc holds gofpdf helpers shared by every generated document.
package pdfdoc

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// New starts a document with the house defaults.
func New(orientation, title string) *gofpdf.Fpdf {
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.SetCreator("cellarbook", false)
	return pdf
}

// FitFontSize shrinks the font in half point steps until text fits maxWidth
// or min is reached. The chosen size is left set on pdf.
func FitFontSize(pdf *gofpdf.Fpdf, family, style string, base, min float64, text string, maxWidth float64) float64 {
	if maxWidth <= 0 {
		pdf.SetFont(family, style, min)
		return min
	}
	size := base
	pdf.SetFont(family, style, size)
	for size > min && pdf.GetStringWidth(text) > maxWidth {
		size -= 0.5
		pdf.SetFont(family, style, size)
	}
	return size
}

// PlacePNG registers png under name and draws it at x, y.
func PlacePNG(pdf *gofpdf.Fpdf, name string, png []byte, x, y, w, h float64) {
	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(png))
	pdf.ImageOptions(name, x, y, w, h, false, opt, 0, "")
}

func Bytes(pdf *gofpdf.Fpdf) ([]byte, error) {
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
