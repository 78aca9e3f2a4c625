package dashboard

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"cellarbook/frontend/batches"
	"cellarbook/frontend/inventory"
	"cellarbook/frontend/packaging"
	"cellarbook/frontend/purchasing"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
)

func openDashboardTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "dashboard-test.db")
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

func TestLoadSummary_Empty(t *testing.T) {
	db := openDashboardTestDB(t)
	sum, err := LoadSummary(context.Background(), db, time.Now().UTC())
	if err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if sum.ActiveBatches[batches.StatusFermenting] != 0 || sum.LowStockCount != 0 || sum.OpenPurchaseOrders != 0 {
		t.Fatalf("expected an empty summary, got %+v", sum)
	}
	if _, ok := sum.ActiveBatches[batches.StatusArchived]; ok {
		t.Fatalf("archived batches are not active")
	}
}

func TestLoadSummary(t *testing.T) {
	db := openDashboardTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

	b, err := batches.CreateBatch(ctx, db, svc, 1, batches.CreateBatchInput{Code: "D1", Name: "Dash", ProductType: "cider", VolumeL: 300, Status: batches.StatusFermenting})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if _, err := batches.CreateBatch(ctx, db, svc, 1, batches.CreateBatchInput{Code: "D2", Name: "Next", ProductType: "perry", VolumeL: 100}); err != nil {
		t.Fatalf("create batch: %v", err)
	}
	inMonth := now.AddDate(0, 0, -3)
	lastMonth := now.AddDate(0, -1, 0)
	for _, at := range []*time.Time{&inMonth, &lastMonth} {
		if _, err := packaging.CreateRun(ctx, db, svc, 1, packaging.CreateRunInput{
			BatchID: b.ID, PackageType: "can", UnitSizeML: 500, UnitsProduced: 100, VolumeTakenL: 51, PackagedAt: at,
		}); err != nil {
			t.Fatalf("create run: %v", err)
		}
	}

	item, err := inventory.CreateItem(ctx, db, svc, 1, inventory.CreateItemInput{SKU: "LBL", Name: "Labels", Category: "packaging", ReorderLevel: 500})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	vendor, err := purchasing.CreateVendor(ctx, db, svc, 1, purchasing.VendorInput{Name: "Print Shop"})
	if err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	if _, err := purchasing.CreateOrder(ctx, db, svc, 1, purchasing.CreateOrderInput{
		VendorID: vendor.ID, Lines: []purchasing.LineInput{{ItemID: item.ID, QtyOrdered: 2000, UnitCost: "0.04"}},
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	sum, err := LoadSummary(ctx, db, now)
	if err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if sum.ActiveBatches[batches.StatusFermenting] != 1 || sum.ActiveBatches[batches.StatusPlanned] != 1 {
		t.Fatalf("unexpected batch counts %+v", sum.ActiveBatches)
	}
	if sum.PackagedThisMonthL != 50 {
		t.Fatalf("expected 50 L packaged this month, got %.2f", sum.PackagedThisMonthL)
	}
	if sum.LowStockCount != 1 || sum.OpenPurchaseOrders != 1 || sum.OpenCarbonationOps != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}
