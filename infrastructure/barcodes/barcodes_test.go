package barcodes

import (
	"bytes"
	"image/png"
	"testing"
)

func TestCode128PNG(t *testing.T) {
	t.Parallel()

	raw, err := Code128PNG("CB24-001-260301-1", 600, 120)
	if err != nil {
		t.Fatalf("Code128PNG returned error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if got := img.Bounds().Dx(); got != 600 {
		t.Fatalf("expected width 600, got %d", got)
	}
	if got := img.Bounds().Dy(); got != 120 {
		t.Fatalf("expected height 120, got %d", got)
	}
}

func TestQRPNG(t *testing.T) {
	t.Parallel()

	raw, err := QRPNG("https://cellar.example/lots/CB24-001-260301-1", 300)
	if err != nil {
		t.Fatalf("QRPNG returned error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != img.Bounds().Dy() {
		t.Fatalf("expected square qr code, got %v", img.Bounds())
	}
}

func TestCode128PNGRejectsTinyWidth(t *testing.T) {
	t.Parallel()

	if _, err := Code128PNG("CB24-001-260301-1", 10, 10); err == nil {
		t.Fatalf("expected error scaling below barcode width")
	}
}
