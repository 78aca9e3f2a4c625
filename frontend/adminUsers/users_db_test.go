package adminusers

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/uptrace/bun"

	"cellarbook/frontend/login"
	"cellarbook/infrastructure/argon"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
)

func openAdminUsersTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "admin-users-test.db")
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

func TestCreateUser_HappyPathStoresHashAndRole(t *testing.T) {
	db := openAdminUsersTestDB(t)

	if _, err := CreateUser(context.Background(), db, audit.NewService(), 1, "cellarhand", "Cellar123!Strong", "cellar"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	var role, passwordHash string
	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT role, password_hash FROM users WHERE username = ?`, "cellarhand").Scan(ctx, &role, &passwordHash)
	})
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if role != "cellar" {
		t.Fatalf("expected role=cellar, got %s", role)
	}
	ok, err := argon.ComparePasswordAndHash("Cellar123!Strong", passwordHash)
	if err != nil {
		t.Fatalf("verify hash: %v", err)
	}
	if !ok {
		t.Fatalf("expected stored hash to match password")
	}

	var audits int
	if err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(*) FROM audit_logs WHERE action = 'user.create'`).Scan(ctx, &audits)
	}); err != nil {
		t.Fatalf("count audits: %v", err)
	}
	if audits != 1 {
		t.Fatalf("expected one audit row, got %d", audits)
	}
}

func TestCreateUser_DuplicateUsernameRejectedCaseInsensitive(t *testing.T) {
	db := openAdminUsersTestDB(t)
	svc := audit.NewService()

	if _, err := CreateUser(context.Background(), db, svc, 1, "CaseUser", "Case123!Password", "viewer"); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	_, err := CreateUser(context.Background(), db, svc, 1, "caseuser", "Case456!Password", "admin")
	if !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("expected ErrUsernameExists, got %v", err)
	}
}

func TestCreateUser_ValidationErrors(t *testing.T) {
	db := openAdminUsersTestDB(t)
	svc := audit.NewService()

	cases := []struct {
		username, password, role string
		want                     error
	}{
		{"", "Case123!Password", "viewer", ErrUsernameRequired},
		{"pat", "", "viewer", ErrPasswordRequired},
		{"pat", "Case123!Password", "scanner", ErrInvalidRole},
		{"pat", "weak", "viewer", login.ErrWeakPassword},
	}
	for _, tc := range cases {
		if _, err := CreateUser(context.Background(), db, svc, 1, tc.username, tc.password, tc.role); !errors.Is(err, tc.want) {
			t.Fatalf("%+v: expected %v, got %v", tc, tc.want, err)
		}
	}
}

func TestUpdateUserRole_LastAdminProtected(t *testing.T) {
	db := openAdminUsersTestDB(t)
	svc := audit.NewService()
	ctx := context.Background()

	admin, err := CreateUser(ctx, db, svc, 0, "root", "Admin123!Strong", "admin")
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if _, err := UpdateUserRole(ctx, db, svc, admin.ID, admin.ID, "viewer"); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}

	second, err := CreateUser(ctx, db, svc, admin.ID, "deputy", "Deputy123!Strong", "admin")
	if err != nil {
		t.Fatalf("seed second admin: %v", err)
	}
	updated, err := UpdateUserRole(ctx, db, svc, admin.ID, second.ID, "cellar")
	if err != nil {
		t.Fatalf("demote second admin: %v", err)
	}
	if updated.Role != "cellar" {
		t.Fatalf("expected cellar role, got %s", updated.Role)
	}

	if _, err := UpdateUserRole(ctx, db, svc, admin.ID, 999, "viewer"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
