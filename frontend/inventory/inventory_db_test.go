package inventory

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/uptrace/bun"

	"cellarbook/frontend/batches"
	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/models"
)

func openInventoryTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "inventory-test.db")
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
	if err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users (id, username, password_hash, role) VALUES (1, 'admin', 'hash', 'admin')`)
		return err
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return db
}

func TestAdjust_OnHandNeverNegative(t *testing.T) {
	db := openInventoryTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()

	item, err := CreateItem(ctx, db, svc, 1, CreateItemInput{SKU: "cap-26", Name: "Crown caps 26mm", Category: "packaging", ReorderLevel: 100})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := Adjust(ctx, db, svc, 1, item.ID, AdjustInput{QtyDelta: 150}); err != nil {
		t.Fatalf("add stock: %v", err)
	}
	if _, err := Adjust(ctx, db, svc, 1, item.ID, AdjustInput{QtyDelta: -60, Reason: "waste"}); err != nil {
		t.Fatalf("waste: %v", err)
	}
	if _, err := Adjust(ctx, db, svc, 1, item.ID, AdjustInput{QtyDelta: -91}); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if _, err := Adjust(ctx, db, svc, 1, item.ID, AdjustInput{QtyDelta: 5, Reason: "waste"}); !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected positive waste to be rejected, got %v", err)
	}

	view, err := GetItem(ctx, db, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if view.OnHand != 90 || !view.LowStock {
		t.Fatalf("expected 90 on hand and low stock, got %+v", view)
	}
	low, err := LowStock(ctx, db.R)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(low) != 1 || low[0].SKU != "CAP-26" {
		t.Fatalf("expected CAP-26 in low stock list, got %+v", low)
	}
}

func TestImportCSV_UpsertsAndReportsBadLines(t *testing.T) {
	db := openInventoryTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()

	csvBody := "sku,name,category,unit\n" +
		"btl-750,Bottle 750ml,packaging,ea\n" +
		"yeast-ec1118,EC-1118,ingredient,ea\n" +
		",Missing sku,packaging,ea\n" +
		"apples,Bittersweet apples,fruit,tonnes\n"
	summary, err := ImportCSV(ctx, db, svc, 1, strings.NewReader(csvBody))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Inserted != 2 || summary.Updated != 0 || len(summary.Errors) != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Errors[0].Line != 4 || summary.Errors[1].Line != 5 {
		t.Fatalf("expected errors on lines 4 and 5, got %+v", summary.Errors)
	}

	again, err := ImportCSV(ctx, db, svc, 1, strings.NewReader("sku,name,category,unit\nBTL-750,Bottle 750 mL flint,packaging,ea\n"))
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if again.Updated != 1 || again.Inserted != 0 {
		t.Fatalf("expected one update, got %+v", again)
	}

	if _, err := ImportCSV(ctx, db, svc, 1, strings.NewReader("sku,description\nA,B\n")); !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected header validation error, got %v", err)
	}
}

func TestRecordSale_WritesRemovedTaxpaidMovement(t *testing.T) {
	db := openInventoryTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()

	b, err := batches.CreateBatch(ctx, db, svc, 1, batches.CreateBatchInput{Code: "S1", Name: "Sale batch", ProductType: "cider", VolumeL: 100, Status: batches.StatusFermenting})
	if err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	var item models.InventoryItem
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		item, err = InsertItem(ctx, tx, svc, 1, models.InventoryItem{SKU: "S1-BTL-750", Name: "S1 750", Category: CategoryFinishedGood, Unit: "ea", BatchID: &b.ID, UnitSizeML: 750})
		if err != nil {
			return err
		}
		_, err = RecordTransaction(ctx, tx, 1, item.ID, 24, ReasonPackaging, "seed")
		return err
	})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}

	if _, err := RecordSale(ctx, db, svc, 1, item.ID, SaleInput{Units: 12}); err != nil {
		t.Fatalf("sale: %v", err)
	}
	if _, err := RecordSale(ctx, db, svc, 1, item.ID, SaleInput{Units: 13}); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var mv models.BulkMovement
	if err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&mv).Where("movement_type = 'removed_taxpaid'").Scan(ctx)
	}); err != nil {
		t.Fatalf("load movement: %v", err)
	}
	if mv.Section != "bottled" || mv.VolumeL != 9 || mv.TaxClass != b.TaxClass {
		t.Fatalf("unexpected movement %+v", mv)
	}

	details, err := GetFinishedGoodDetails(ctx, db, item.ID)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if details.Item.OnHand != 12 || details.OnHandVolumeL != 9 || details.Batch == nil || len(details.Transactions) != 2 {
		t.Fatalf("unexpected details %+v", details)
	}
}

func TestListItems_FreshItemHasZeroOnHand(t *testing.T) {
	db := openInventoryTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()

	item, err := CreateItem(ctx, db, svc, 1, CreateItemInput{SKU: "yeast-71b", Name: "71B", Category: "ingredient"})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	items, err := ListItems(ctx, db, "")
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 || items[0].OnHand != 0 || items[0].LowStock {
		t.Fatalf("expected one item with nothing on hand, got %+v", items)
	}
	view, err := GetItem(ctx, db, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if view.OnHand != 0 {
		t.Fatalf("expected 0 on hand, got %v", view.OnHand)
	}
	if _, err := Adjust(ctx, db, svc, 1, item.ID, AdjustInput{QtyDelta: -1}); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock on an empty ledger, got %v", err)
	}
}

func TestAdjust_FinishedGoodMovesBottledLedger(t *testing.T) {
	db := openInventoryTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()

	b, err := batches.CreateBatch(ctx, db, svc, 1, batches.CreateBatchInput{Code: "W1", Name: "Waste batch", ProductType: "cider", VolumeL: 100, Status: batches.StatusFermenting})
	if err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	var item models.InventoryItem
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		item, err = InsertItem(ctx, tx, svc, 1, models.InventoryItem{SKU: "W1-BTL-750", Name: "W1 750", Category: CategoryFinishedGood, Unit: "ea", BatchID: &b.ID, UnitSizeML: 750})
		if err != nil {
			return err
		}
		_, err = RecordTransaction(ctx, tx, 1, item.ID, 100, ReasonPackaging, "seed")
		return err
	})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}

	if _, err := Adjust(ctx, db, svc, 1, item.ID, AdjustInput{QtyDelta: -40, Reason: "waste"}); err != nil {
		t.Fatalf("waste: %v", err)
	}
	if _, err := Adjust(ctx, db, svc, 1, item.ID, AdjustInput{QtyDelta: -4}); err != nil {
		t.Fatalf("count down: %v", err)
	}
	if _, err := Adjust(ctx, db, svc, 1, item.ID, AdjustInput{QtyDelta: 2, Reference: "recount"}); err != nil {
		t.Fatalf("count up: %v", err)
	}

	var mvs []models.BulkMovement
	if err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&mvs).Where("section = 'bottled'").OrderExpr("id ASC").Scan(ctx)
	}); err != nil {
		t.Fatalf("load movements: %v", err)
	}
	type entry struct {
		kind   string
		volume float64
	}
	want := []entry{{"loss", 30}, {"adjustment_loss", 3}, {"adjustment_gain", 1.5}}
	if len(mvs) != len(want) {
		t.Fatalf("expected %d bottled movements, got %+v", len(want), mvs)
	}
	for i, w := range want {
		if mvs[i].MovementType != w.kind || mvs[i].VolumeL != w.volume || mvs[i].TaxClass != b.TaxClass {
			t.Fatalf("movement %d: want %+v, got %+v", i, w, mvs[i])
		}
	}
	if mvs[2].Reference != "recount" {
		t.Fatalf("expected reference kept, got %q", mvs[2].Reference)
	}
}

func TestAdjust_UnlinkedFinishedGoodSkipsLedger(t *testing.T) {
	db := openInventoryTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()

	item, err := CreateItem(ctx, db, svc, 1, CreateItemInput{SKU: "legacy-btl", Name: "Legacy stock", Category: CategoryFinishedGood, UnitSizeML: 750})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if _, err := Adjust(ctx, db, svc, 1, item.ID, AdjustInput{QtyDelta: 10}); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	var count int
	if err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(*) FROM bulk_movements`).Scan(ctx, &count)
	}); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no ledger rows for an unlinked item, got %d", count)
	}
}
