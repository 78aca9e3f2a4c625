package purchasing

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"cellarbook/frontend/inventory"
	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/models"
)

func openPurchasingTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "purchasing-test.db")
	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	migrationsDir := filepath.Join(filepath.Dir(file), "..", "..", "infrastructure", "sqlite", "migrations")
	if err := sqlite.ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

type fixture struct {
	db     *sqlite.DB
	svc    *audit.Service
	vendor models.Vendor
	caps   models.InventoryItem
	yeast  models.InventoryItem
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{db: openPurchasingTestDB(t), svc: audit.NewService()}
	var err error
	f.vendor, err = CreateVendor(ctx, f.db, f.svc, 1, VendorInput{Name: "Orchard Supply", Email: "orders@orchard.example"})
	if err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	f.caps, err = inventory.CreateItem(ctx, f.db, f.svc, 1, inventory.CreateItemInput{SKU: "CAP-26", Name: "Crown caps", Category: "packaging"})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	f.yeast, err = inventory.CreateItem(ctx, f.db, f.svc, 1, inventory.CreateItemInput{SKU: "EC1118", Name: "Yeast", Category: "ingredient", Unit: "kg"})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return f
}

func (f fixture) order(t *testing.T) OrderView {
	t.Helper()
	po, err := CreateOrder(context.Background(), f.db, f.svc, 1, CreateOrderInput{
		VendorID: f.vendor.ID,
		Lines: []LineInput{
			{ItemID: f.caps.ID, QtyOrdered: 1000, UnitCost: "0.015"},
			{ItemID: f.yeast.ID, QtyOrdered: 0.5, UnitCost: "89.90"},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return po
}

func (f fixture) onHand(t *testing.T, itemID int64) float64 {
	t.Helper()
	var qty float64
	if err := f.db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		var err error
		qty, err = inventory.OnHand(ctx, tx, itemID)
		return err
	}); err != nil {
		t.Fatalf("on hand: %v", err)
	}
	return qty
}

func TestCreateOrder_NumbersAndTotals(t *testing.T) {
	f := newFixture(t)
	po := f.order(t)

	if po.Status != StatusDraft || len(po.LineViews) != 2 {
		t.Fatalf("unexpected order %+v", po)
	}
	if po.Total != "59.95" {
		t.Fatalf("expected total 59.95, got %s", po.Total)
	}
	if po.LineViews[0].SKU != "CAP-26" || po.LineViews[0].LineTotal != "15.00" {
		t.Fatalf("unexpected first line %+v", po.LineViews[0])
	}
	second := f.order(t)
	if po.PONumber[len(po.PONumber)-4:] != "0001" || second.PONumber[len(second.PONumber)-4:] != "0002" {
		t.Fatalf("unexpected numbering %s, %s", po.PONumber, second.PONumber)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []CreateOrderInput{
		{VendorID: f.vendor.ID},
		{VendorID: f.vendor.ID, Lines: []LineInput{{ItemID: f.caps.ID, QtyOrdered: 0}}},
		{VendorID: f.vendor.ID, Lines: []LineInput{{ItemID: f.caps.ID, QtyOrdered: 1, UnitCost: "-1"}}},
		{VendorID: f.vendor.ID, Lines: []LineInput{{ItemID: f.caps.ID, QtyOrdered: 1, UnitCost: "abc"}}},
		{VendorID: f.vendor.ID, Lines: []LineInput{{ItemID: 999, QtyOrdered: 1}}},
	}
	for i, in := range cases {
		if _, err := CreateOrder(ctx, f.db, f.svc, 1, in); !errors.Is(err, api.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	if _, err := CreateOrder(ctx, f.db, f.svc, 1, CreateOrderInput{VendorID: 42, Lines: []LineInput{{ItemID: f.caps.ID, QtyOrdered: 1}}}); !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("expected unknown vendor to be not found, got %v", err)
	}
}

func TestReceiveOrder_PartialThenComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	po := f.order(t)

	if _, err := ReceiveOrder(ctx, f.db, f.svc, 1, po.ID, ReceiveInput{Lines: []ReceiveLine{{LineID: po.Lines[0].ID, Qty: 10}}}); !errors.Is(err, api.ErrConflict) {
		t.Fatalf("expected draft receipt to conflict, got %v", err)
	}
	if _, err := SubmitOrder(ctx, f.db, f.svc, 1, po.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	view, err := ReceiveOrder(ctx, f.db, f.svc, 1, po.ID, ReceiveInput{Lines: []ReceiveLine{{LineID: po.Lines[0].ID, Qty: 600}}})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if view.Status != StatusPartiallyReceived || view.Received != "9.00" {
		t.Fatalf("unexpected partial receipt %s / %s", view.Status, view.Received)
	}
	if got := f.onHand(t, f.caps.ID); got != 600 {
		t.Fatalf("expected 600 caps on hand, got %.0f", got)
	}

	_, err = ReceiveOrder(ctx, f.db, f.svc, 1, po.ID, ReceiveInput{Lines: []ReceiveLine{{LineID: po.Lines[0].ID, Qty: 401}}})
	if !errors.Is(err, ErrOverReceipt) || !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected over receipt, got %v", err)
	}
	if got := f.onHand(t, f.caps.ID); got != 600 {
		t.Fatalf("over receipt must not change stock, got %.0f", got)
	}

	view, err = ReceiveOrder(ctx, f.db, f.svc, 1, po.ID, ReceiveInput{Reference: "DN-7781", Lines: []ReceiveLine{
		{LineID: po.Lines[0].ID, Qty: 400},
		{LineID: po.Lines[1].ID, Qty: 0.5},
	}})
	if err != nil {
		t.Fatalf("receive rest: %v", err)
	}
	if view.Status != StatusReceived || view.Received != view.Total {
		t.Fatalf("expected fully received, got %s %s/%s", view.Status, view.Received, view.Total)
	}
	if got := f.onHand(t, f.yeast.ID); got != 0.5 {
		t.Fatalf("expected 0.5 kg yeast, got %.2f", got)
	}
	if _, err := CancelOrder(ctx, f.db, f.svc, 1, po.ID); !errors.Is(err, api.ErrConflict) {
		t.Fatalf("expected cancel after receipt to conflict, got %v", err)
	}
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	po := f.order(t)

	view, err := CancelOrder(ctx, f.db, f.svc, 1, po.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if view.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", view.Status)
	}
	if _, err := SubmitOrder(ctx, f.db, f.svc, 1, po.ID); !errors.Is(err, api.ErrConflict) {
		t.Fatalf("expected submit of cancelled order to conflict, got %v", err)
	}
}

func TestVendors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := CreateVendor(ctx, f.db, f.svc, 1, VendorInput{Name: "orchard supply"}); !errors.Is(err, api.ErrConflict) {
		t.Fatalf("expected duplicate name conflict, got %v", err)
	}
	if _, err := CreateVendor(ctx, f.db, f.svc, 1, VendorInput{Name: "Glass Co", Email: "not-an-email"}); !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected invalid email, got %v", err)
	}
	inactive := false
	if _, err := UpdateVendor(ctx, f.db, f.svc, 1, f.vendor.ID, UpdateVendorInput{Active: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, err := ListVendors(ctx, f.db, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active vendors, got %d", len(active))
	}
	if _, err := CreateOrder(ctx, f.db, f.svc, 1, CreateOrderInput{VendorID: f.vendor.ID, Lines: []LineInput{{ItemID: f.caps.ID, QtyOrdered: 1}}}); !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected inactive vendor to be rejected, got %v", err)
	}
}

func TestOrderTotalsUseDecimal(t *testing.T) {
	ordered, received := OrderTotals([]models.PurchaseOrderLine{
		{QtyOrdered: 3, QtyReceived: 1, UnitCost: "0.1"},
		{QtyOrdered: 3, QtyReceived: 3, UnitCost: "0.2"},
	})
	if !ordered.Equal(decimal.RequireFromString("0.9")) || !received.Equal(decimal.RequireFromString("0.7")) {
		t.Fatalf("got ordered=%s received=%s", ordered, received)
	}
}

func TestRenderOrderPDF(t *testing.T) {
	f := newFixture(t)
	po := f.order(t)
	view, err := GetOrder(context.Background(), f.db, po.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	body, err := RenderOrderPDF(view, Buyer{Name: "Hillside Cidery", Registry: "BW-CA-21001"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(body) < 4 || string(body[:4]) != "%PDF" {
		t.Fatalf("expected a pdf document")
	}
}
