package packaging

import (
	"errors"
	"testing"
	"time"

	"cellarbook/frontend/shared/api"
)

func TestComputeLoss(t *testing.T) {
	packaged, loss, pct, err := ComputeLoss(24, 330, 8.5)
	if err != nil {
		t.Fatalf("compute loss: %v", err)
	}
	if !approx(packaged, 7.92) || !approx(loss, 0.58) || pct != 6.82 {
		t.Fatalf("got packaged=%.3f loss=%.3f pct=%.2f", packaged, loss, pct)
	}

	if _, _, _, err := ComputeLoss(24, 330, 7); !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected packaged > taken to fail, got %v", err)
	}
	if _, _, _, err := ComputeLoss(0, 330, 7); !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected zero units to fail, got %v", err)
	}
}

func TestLotCodeAndSKU(t *testing.T) {
	at := time.Date(2026, 11, 2, 23, 30, 0, 0, time.UTC)
	if got := LotCode("kv24", at, 3); got != "KV24-261102-3" {
		t.Fatalf("unexpected lot code %s", got)
	}
	if got := DefaultSKU("kv24", "bottle", 750); got != "KV24-BOTTLE-750" {
		t.Fatalf("unexpected sku %s", got)
	}
	if got := DefaultSKU("kv24", "can", 355.5); got != "KV24-CAN-355.5" {
		t.Fatalf("unexpected sku %s", got)
	}
}

func TestFillVariance(t *testing.T) {
	ml, pct, within := FillVariance(500, 490, 2)
	if ml != -10 || pct != -2 || !within {
		t.Fatalf("got %.2f mL %.2f%% within=%v", ml, pct, within)
	}
	if _, _, within := FillVariance(500, 489, 2); within {
		t.Fatalf("expected 489 mL outside tolerance")
	}
}

func TestRenderLotLabelsPDF(t *testing.T) {
	body, err := RenderLotLabelsPDF(LotLabelData{
		LotCode: "KV24-260314-1", BatchCode: "KV24", BatchName: "Kingston Black", PackageType: "bottle",
		UnitSizeML: 750, Units: 600, TaxClass: "a", PackagedAt: packagedAt,
	}, 2)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(body) < 4 || string(body[:4]) != "%PDF" {
		t.Fatalf("expected a pdf document")
	}
	if _, err := RenderLotLabelsPDF(LotLabelData{}, 1); err == nil {
		t.Fatalf("expected missing lot code to fail")
	}
}
