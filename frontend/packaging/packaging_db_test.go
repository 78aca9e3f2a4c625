package packaging

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"cellarbook/frontend/batches"
	"cellarbook/frontend/inventory"
	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/models"
)

func openPackagingTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "packaging-test.db")
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

var packagedAt = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func seedBatch(t *testing.T, db *sqlite.DB, code string, volumeL float64) models.Batch {
	t.Helper()
	b, err := batches.CreateBatch(context.Background(), db, audit.NewService(), 1, batches.CreateBatchInput{
		Code: code, Name: "Dabinett", ProductType: "cider", VolumeL: volumeL, Status: batches.StatusFermenting,
	})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	return b
}

func movementTotals(t *testing.T, db *sqlite.DB, batchID int64) map[string]float64 {
	t.Helper()
	var mvs []models.BulkMovement
	if err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&mvs).Where("batch_id = ?", batchID).Scan(ctx)
	}); err != nil {
		t.Fatalf("load movements: %v", err)
	}
	out := map[string]float64{}
	for _, mv := range mvs {
		out[mv.Section+"/"+mv.MovementType] += mv.VolumeL
	}
	return out
}

func onHand(t *testing.T, db *sqlite.DB, itemID int64) float64 {
	t.Helper()
	var qty float64
	if err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		var err error
		qty, err = inventory.OnHand(ctx, tx, itemID)
		return err
	}); err != nil {
		t.Fatalf("on hand: %v", err)
	}
	return qty
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestCreateRun_DrawsDownBatchAndStocksFinishedGood(t *testing.T) {
	db := openPackagingTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()
	b := seedBatch(t, db, "KV24", 500)

	run, err := CreateRun(ctx, db, svc, 1, CreateRunInput{
		BatchID: b.ID, PackageType: "Bottle", UnitSizeML: 750, UnitsProduced: 600, VolumeTakenL: 460, PackagedAt: &packagedAt,
	})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if run.LotCode != "KV24-260314-1" {
		t.Fatalf("unexpected lot code %s", run.LotCode)
	}
	if !approx(run.LossL, 10) || !approx(run.LossPct, 2.17) {
		t.Fatalf("unexpected loss %.3f L / %.2f%%", run.LossL, run.LossPct)
	}

	view, err := GetRun(ctx, db, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !approx(view.PackagedL, 450) || view.BatchCode != "KV24" || view.ItemID == nil {
		t.Fatalf("unexpected view %+v", view)
	}
	if got := onHand(t, db, *view.ItemID); got != 600 {
		t.Fatalf("expected 600 units on hand, got %.0f", got)
	}

	totals := movementTotals(t, db, b.ID)
	if !approx(totals["bulk/bottled"], 450) || !approx(totals["bottled/bottled"], 450) || !approx(totals["bulk/loss"], 10) {
		t.Fatalf("unexpected movements %+v", totals)
	}

	var after models.Batch
	if err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		after, err = batches.LoadBatch(ctx, tx, b.ID)
		return err
	}); err != nil {
		t.Fatalf("load batch: %v", err)
	}
	if !approx(after.VolumeL, 40) || after.PackagedAt == nil {
		t.Fatalf("expected 40 L left and packaged_at set, got %+v", after)
	}

	second, err := CreateRun(ctx, db, svc, 1, CreateRunInput{
		BatchID: b.ID, PackageType: "bottle", UnitSizeML: 750, UnitsProduced: 50, VolumeTakenL: 38, PackagedAt: &packagedAt,
	})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.LotCode != "KV24-260314-2" {
		t.Fatalf("expected second lot of the day, got %s", second.LotCode)
	}
	if got := onHand(t, db, *view.ItemID); got != 650 {
		t.Fatalf("expected both runs on the same sku, got %.0f", got)
	}
}

func TestCreateRun_RejectsMoreThanBatchHolds(t *testing.T) {
	db := openPackagingTestDB(t)
	b := seedBatch(t, db, "SM1", 100)

	_, err := CreateRun(context.Background(), db, audit.NewService(), 1, CreateRunInput{
		BatchID: b.ID, PackageType: "keg", UnitSizeML: 20000, UnitsProduced: 6, VolumeTakenL: 120,
	})
	if !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if totals := movementTotals(t, db, b.ID); len(totals) != 1 {
		t.Fatalf("expected only the produced movement, got %+v", totals)
	}
}

func TestCreateRun_RejectsPlannedBatch(t *testing.T) {
	db := openPackagingTestDB(t)
	b, err := batches.CreateBatch(context.Background(), db, audit.NewService(), 1, batches.CreateBatchInput{
		Code: "PL1", Name: "Planned", ProductType: "cider", VolumeL: 100,
	})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	_, err = CreateRun(context.Background(), db, audit.NewService(), 1, CreateRunInput{
		BatchID: b.ID, PackageType: "can", UnitSizeML: 355, UnitsProduced: 10, VolumeTakenL: 4,
	})
	if !errors.Is(err, api.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestVoidRun_RestoresBatchAndStock(t *testing.T) {
	db := openPackagingTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()
	b := seedBatch(t, db, "V1", 300)

	run, err := CreateRun(ctx, db, svc, 1, CreateRunInput{
		BatchID: b.ID, PackageType: "can", UnitSizeML: 500, UnitsProduced: 400, VolumeTakenL: 205, PackagedAt: &packagedAt,
	})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	view, err := GetRun(ctx, db, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}

	voided, err := VoidRun(ctx, db, svc, 1, run.ID)
	if err != nil {
		t.Fatalf("void run: %v", err)
	}
	if voided.Status != StatusVoided {
		t.Fatalf("expected voided status, got %s", voided.Status)
	}
	if got := onHand(t, db, *view.ItemID); got != 0 {
		t.Fatalf("expected stock reversed, got %.0f", got)
	}
	totals := movementTotals(t, db, b.ID)
	if len(totals) != 1 || !approx(totals["bulk/produced"], 300) {
		t.Fatalf("expected packaging movements removed, got %+v", totals)
	}
	if _, err := VoidRun(ctx, db, svc, 1, run.ID); !errors.Is(err, api.ErrConflict) {
		t.Fatalf("expected conflict voiding twice, got %v", err)
	}
}

func TestVoidRun_BlockedOnceReported(t *testing.T) {
	db := openPackagingTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()
	b := seedBatch(t, db, "R1", 300)

	run, err := CreateRun(ctx, db, svc, 1, CreateRunInput{
		BatchID: b.ID, PackageType: "bottle", UnitSizeML: 750, UnitsProduced: 100, VolumeTakenL: 76, PackagedAt: &packagedAt,
	})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	seedReport(t, db, 2026, 3)
	if _, err := VoidRun(ctx, db, svc, 1, run.ID); !errors.Is(err, api.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func seedReport(t *testing.T, db *sqlite.DB, year, month int) {
	t.Helper()
	if err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO ttb_reports (period_year, period_month, snapshot_json, generated_by) VALUES (?, ?, '{}', 1)`, year, month)
		return err
	}); err != nil {
		t.Fatalf("seed report: %v", err)
	}
}

func TestVoidRun_BlockedByLaterReport(t *testing.T) {
	db := openPackagingTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()
	b := seedBatch(t, db, "R2", 300)

	run, err := CreateRun(ctx, db, svc, 1, CreateRunInput{
		BatchID: b.ID, PackageType: "bottle", UnitSizeML: 750, UnitsProduced: 100, VolumeTakenL: 76, PackagedAt: &packagedAt,
	})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	seedReport(t, db, 2026, 2)
	seedReport(t, db, 2026, 4)

	if _, err := VoidRun(ctx, db, svc, 1, run.ID); !errors.Is(err, api.ErrConflict) {
		t.Fatalf("expected conflict with april report filed, got %v", err)
	}
	totals := movementTotals(t, db, b.ID)
	if !approx(totals["bulk/bottled"], 75) || !approx(totals["bottled/bottled"], 75) {
		t.Fatalf("expected march movements kept, got %+v", totals)
	}
}

func TestVoidRun_EarlierReportDoesNotBlock(t *testing.T) {
	db := openPackagingTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()
	b := seedBatch(t, db, "R3", 300)

	run, err := CreateRun(ctx, db, svc, 1, CreateRunInput{
		BatchID: b.ID, PackageType: "bottle", UnitSizeML: 750, UnitsProduced: 100, VolumeTakenL: 76, PackagedAt: &packagedAt,
	})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	seedReport(t, db, 2026, 2)
	seedReport(t, db, 2025, 12)

	if _, err := VoidRun(ctx, db, svc, 1, run.ID); err != nil {
		t.Fatalf("void run: %v", err)
	}
}

func TestVoidRun_RevertsPackagedStatus(t *testing.T) {
	db := openPackagingTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()
	b := seedBatch(t, db, "ST1", 150)
	for _, to := range []string{batches.StatusAging, batches.StatusConditioning} {
		if _, err := batches.TransitionBatch(ctx, db, svc, 1, b.ID, to); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}

	run, err := CreateRun(ctx, db, svc, 1, CreateRunInput{
		BatchID: b.ID, PackageType: "bottle", UnitSizeML: 750, UnitsProduced: 196, VolumeTakenL: 150, PackagedAt: &packagedAt,
	})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	loadBatch := func() models.Batch {
		t.Helper()
		var got models.Batch
		if err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
			var err error
			got, err = batches.LoadBatch(ctx, tx, b.ID)
			return err
		}); err != nil {
			t.Fatalf("load batch: %v", err)
		}
		return got
	}
	if got := loadBatch(); got.Status != batches.StatusPackaged || got.PackagedAt == nil || got.VolumeL != 0 {
		t.Fatalf("expected emptied packaged batch, got %+v", got)
	}

	if _, err := VoidRun(ctx, db, svc, 1, run.ID); err != nil {
		t.Fatalf("void run: %v", err)
	}
	got := loadBatch()
	if got.Status != batches.StatusConditioning {
		t.Fatalf("expected status back to conditioning, got %s", got.Status)
	}
	if got.PackagedAt != nil {
		t.Fatalf("expected packaged_at cleared, got %v", got.PackagedAt)
	}
	if !approx(got.VolumeL, 150) {
		t.Fatalf("expected 150 L restored, got %.2f", got.VolumeL)
	}
}

func TestNextLotCode_IgnoresWildcardsInBatchCode(t *testing.T) {
	db := openPackagingTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()
	wild := seedBatch(t, db, "K_1", 200)
	other := seedBatch(t, db, "KX1", 200)

	if _, err := CreateRun(ctx, db, svc, 1, CreateRunInput{
		BatchID: other.ID, PackageType: "can", UnitSizeML: 500, UnitsProduced: 100, VolumeTakenL: 51, PackagedAt: &packagedAt,
	}); err != nil {
		t.Fatalf("create run: %v", err)
	}
	run, err := CreateRun(ctx, db, svc, 1, CreateRunInput{
		BatchID: wild.ID, PackageType: "can", UnitSizeML: 500, UnitsProduced: 100, VolumeTakenL: 51, PackagedAt: &packagedAt,
	})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if run.LotCode != "K_1-260314-1" {
		t.Fatalf("expected first lot for K_1, got %s", run.LotCode)
	}
}

func TestAddFillCheck_ToleranceAndStats(t *testing.T) {
	db := openPackagingTestDB(t)
	ctx := context.Background()
	b := seedBatch(t, db, "F1", 100)
	run, err := CreateRun(ctx, db, audit.NewService(), 1, CreateRunInput{
		BatchID: b.ID, PackageType: "bottle", UnitSizeML: 750, UnitsProduced: 100, VolumeTakenL: 76,
	})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	fc, err := AddFillCheck(ctx, db, run.ID, FillCheckInput{ActualML: 760})
	if err != nil {
		t.Fatalf("fill check: %v", err)
	}
	if !fc.WithinTolerance || fc.VarianceML != 10 || fc.VariancePct != 1.33 {
		t.Fatalf("unexpected fill check %+v", fc)
	}
	fc, err = AddFillCheck(ctx, db, run.ID, FillCheckInput{ActualML: 770})
	if err != nil {
		t.Fatalf("fill check: %v", err)
	}
	if fc.WithinTolerance {
		t.Fatalf("expected 770 mL outside 2%% tolerance")
	}

	view, err := GetRun(ctx, db, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if view.FillStats.Count != 2 || view.FillStats.OutOfTolerance != 1 || view.FillStats.MeanML != 765 || view.FillStats.StdDevML != 7.07 {
		t.Fatalf("unexpected stats %+v", view.FillStats)
	}
	if _, err := AddFillCheck(ctx, db, run.ID, FillCheckInput{ActualML: 0}); !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
