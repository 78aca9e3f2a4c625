package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/uptrace/bun"

	"cellarbook/infrastructure/sqlite"
)

func openAuditTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlite.ApplyEmbeddedMigrations(context.Background(), db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func TestWriteAndHistory(t *testing.T) {
	db := openAuditTestDB(t)
	svc := NewService()
	ctx := context.Background()

	type snapshot struct {
		Status string `json:"status"`
	}
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.WriteID(ctx, tx, 1, "batch.create", EntityBatch, 7, nil, snapshot{Status: "planned"}); err != nil {
			return err
		}
		return svc.WriteID(ctx, tx, 1, "batch.status", EntityBatch, 7, snapshot{Status: "planned"}, snapshot{Status: "fermenting"})
	})
	if err != nil {
		t.Fatalf("write audit: %v", err)
	}

	err = db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		rows, err := History(ctx, tx, EntityBatch, "7", 10)
		if err != nil {
			return err
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 audit rows, got %d", len(rows))
		}
		if rows[0].Action != "batch.status" {
			t.Fatalf("expected newest first, got %s", rows[0].Action)
		}
		if rows[0].AfterJSON != `{"status":"fermenting"}` {
			t.Fatalf("unexpected after json %s", rows[0].AfterJSON)
		}
		if rows[1].BeforeJSON != "" {
			t.Fatalf("expected empty before json for create, got %s", rows[1].BeforeJSON)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
}

func TestWriteRollsBackWithCaller(t *testing.T) {
	db := openAuditTestDB(t)
	svc := NewService()
	ctx := context.Background()

	_ = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.Write(ctx, tx, 1, "vendor.create", EntityVendor, "3", nil, map[string]string{"name": "Orchard"}); err != nil {
			t.Fatalf("write: %v", err)
		}
		return context.Canceled
	})

	var count int
	if err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw("SELECT COUNT(*) FROM audit_logs").Scan(ctx, &count)
	}); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback to discard audit row, got %d", count)
	}
}
