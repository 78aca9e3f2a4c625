package pressruns

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"cellarbook/frontend/batches"
	"cellarbook/frontend/shared/api"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
)

func openPressRunsTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "press-runs-test.db")
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

const draftUUID = "6f1c2a8e-4b7d-4f0e-9a51-3c2d1e0f9b88"

func draft(rev int64, juice float64, loads ...LoadInput) DraftInput {
	return DraftInput{
		ClientUUID: draftUUID,
		Revision:   rev,
		Name:       "October press",
		PressedAt:  time.Date(2025, 10, 4, 9, 0, 0, 0, time.UTC),
		JuiceL:     juice,
		Loads:      loads,
	}
}

func TestSyncDraft_IdempotentAndStale(t *testing.T) {
	db := openPressRunsTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()

	first, err := SyncDraft(ctx, db, svc, 1, draft(1, 300, LoadInput{Variety: "Dabinett", WeightKg: 500}))
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if first.Outcome != SyncCreated {
		t.Fatalf("expected created, got %s", first.Outcome)
	}

	replay, err := SyncDraft(ctx, db, svc, 1, draft(1, 999, LoadInput{Variety: "Other", WeightKg: 1}))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.Outcome != SyncUnchanged || replay.PressRun.ID != first.PressRun.ID || replay.PressRun.JuiceL != 300 {
		t.Fatalf("expected unchanged replay, got %+v", replay)
	}

	updated, err := SyncDraft(ctx, db, svc, 1, draft(3, 420,
		LoadInput{Variety: "Dabinett", WeightKg: 400},
		LoadInput{Variety: "Yarlington Mill", WeightKg: 200},
	))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Outcome != SyncUpdated || len(updated.PressRun.Loads) != 2 {
		t.Fatalf("expected update with two loads, got %+v", updated)
	}
	if updated.PressRun.YieldLPerKg != 0.7 {
		t.Fatalf("expected yield 0.7 L/kg, got %v", updated.PressRun.YieldLPerKg)
	}

	if _, err := SyncDraft(ctx, db, svc, 1, draft(2, 100)); !errors.Is(err, ErrStaleRevision) {
		t.Fatalf("expected stale revision, got %v", err)
	}

	stored, err := GetPressRun(ctx, db, first.PressRun.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.Revision != 3 || len(stored.Loads) != 2 {
		t.Fatalf("expected revision 3 with 2 loads, got rev=%d loads=%d", stored.Revision, len(stored.Loads))
	}
}

func TestSyncDraft_Validation(t *testing.T) {
	db := openPressRunsTestDB(t)

	bad := draft(1, 10)
	bad.ClientUUID = "not-a-uuid"
	if _, err := SyncDraft(context.Background(), db, audit.NewService(), 1, bad); !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	neg := draft(1, 10, LoadInput{Variety: "Bramley", WeightKg: -2})
	if _, err := SyncDraft(context.Background(), db, audit.NewService(), 1, neg); !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCompletePressRun_CreatesBatchFromJuice(t *testing.T) {
	db := openPressRunsTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()

	res, err := SyncDraft(ctx, db, svc, 1, draft(1, 250, LoadInput{Variety: "Kingston Black", WeightKg: 380}))
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	run, err := CompletePressRun(ctx, db, svc, 1, res.PressRun.ID, CompleteInput{
		Batch: &batches.CreateBatchInput{Code: "KB25", ProductType: "cider", Status: batches.StatusFermenting},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if run.Status != StatusCompleted || run.BatchID == nil {
		t.Fatalf("expected completed run linked to batch, got %+v", run)
	}
	b, _, _, err := batches.GetBatchDetail(ctx, db, *run.BatchID)
	if err != nil {
		t.Fatalf("load batch: %v", err)
	}
	if b.VolumeL != 250 || b.Name != "October press" {
		t.Fatalf("unexpected batch %+v", b)
	}

	if _, err := CompletePressRun(ctx, db, svc, 1, res.PressRun.ID, CompleteInput{}); !errors.Is(err, api.ErrConflict) {
		t.Fatalf("expected conflict on second completion, got %v", err)
	}
	if _, err := SyncDraft(ctx, db, svc, 1, draft(2, 260, LoadInput{Variety: "Kingston Black", WeightKg: 380})); !errors.Is(err, api.ErrConflict) {
		t.Fatalf("expected completed run to reject new revisions, got %v", err)
	}
}

func TestCreatePressRun_AssignsUUID(t *testing.T) {
	db := openPressRunsTestDB(t)

	run, err := CreatePressRun(context.Background(), db, audit.NewService(), 1, DraftInput{
		Name: "Walk-in", PressedAt: time.Now(), JuiceL: 20, Loads: []LoadInput{{Variety: "Bramley", WeightKg: 30}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if run.ClientUUID == nil || len(*run.ClientUUID) != 36 || run.Revision != 1 {
		t.Fatalf("expected uuid and revision 1, got %+v", run)
	}
}
