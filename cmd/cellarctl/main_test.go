package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cellarbook/frontend/login"
	"cellarbook/infrastructure/sqlite"
)

func withDatabase(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cellarctl.db")
	t.Setenv("CELLARBOOK_SQLITE_PATH", dbPath)
	t.Setenv("CELLARBOOK_MIGRATIONS_DIR", "")
	t.Setenv("CELLARBOOK_CONFIG", "")
	t.Setenv(adminPasswordEnv, "")
	return dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateAppliesEmbeddedMigrations(t *testing.T) {
	withDatabase(t)

	out, err := execute(t, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "0001_core.sql") || !strings.Contains(out, "0004_ttb.sql") {
		t.Fatalf("expected migration names in output, got %q", out)
	}

	// Idempotent.
	if _, err := execute(t, "migrate"); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestSeedAdmin(t *testing.T) {
	dbPath := withDatabase(t)

	if _, err := execute(t, "seed-admin"); err == nil {
		t.Fatalf("expected missing password error")
	}
	if _, err := execute(t, "seed-admin", "--password", "short"); err == nil {
		t.Fatalf("expected password policy error")
	}

	t.Setenv(adminPasswordEnv, "Cellar123!Admin")
	out, err := execute(t, "seed-admin", "--username", "Owner")
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if !strings.Contains(out, "username=Owner") {
		t.Fatalf("unexpected output %q", out)
	}

	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	user, err := login.FindUser(context.Background(), db, "owner")
	if err != nil {
		t.Fatalf("find seeded user: %v", err)
	}
	if user.Role != "admin" {
		t.Fatalf("expected admin role, got %s", user.Role)
	}
}

func TestTTBGenerateWritesReport(t *testing.T) {
	withDatabase(t)
	if _, err := execute(t, "seed-admin", "--password", "Cellar123!Admin"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	outFile := filepath.Join(t.TempDir(), "form.json")
	out, err := execute(t, "ttb", "generate", "--year", "2024", "--month", "3", "--format", "json", "--out", outFile)
	if err != nil {
		t.Fatalf("ttb generate: %v", err)
	}
	if !strings.Contains(out, "net tax 0.00") {
		t.Fatalf("unexpected output %q", out)
	}

	raw, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var form struct {
		Period struct {
			Year  int `json:"year"`
			Month int `json:"month"`
		} `json:"period"`
	}
	if err := json.Unmarshal(raw, &form); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if form.Period.Year != 2024 || form.Period.Month != 3 {
		t.Fatalf("unexpected period %+v", form.Period)
	}
}

func TestTTBGenerateRejectsBadInput(t *testing.T) {
	withDatabase(t)

	if _, err := execute(t, "ttb", "generate", "--format", "docx"); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if _, err := execute(t, "ttb", "generate", "--year", "2024", "--month", "3", "--as", "nobody"); err == nil {
		t.Fatalf("expected unknown user error")
	}
}
