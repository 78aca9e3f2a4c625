package pdfdoc

import (
	"bytes"
	"testing"
)

func TestFitFontSizeShrinksLongText(t *testing.T) {
	t.Parallel()

	pdf := New("P", "test")
	pdf.AddPage()
	short := FitFontSize(pdf, "Helvetica", "B", 30, 10, "Dry", 100)
	if short != 30 {
		t.Fatalf("expected base size for short text, got %v", short)
	}
	long := FitFontSize(pdf, "Helvetica", "B", 30, 10, "Heritage Kingston Black Single Varietal Reserve", 60)
	if long >= 30 || long < 10 {
		t.Fatalf("expected shrunk size within bounds, got %v", long)
	}
}

func TestBytesProducesPDF(t *testing.T) {
	t.Parallel()

	pdf := New("P", "test")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(40, 10, "hello")
	out, err := Bytes(pdf)
	if err != nil {
		t.Fatalf("Bytes returned error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("expected pdf header, got %q", out[:8])
	}
}
