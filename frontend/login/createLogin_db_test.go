package login

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cellarbook/infrastructure/sqlite"
	"cellarbook/models"
)

func openLoginTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "login.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlite.ApplyEmbeddedMigrations(context.Background(), db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func TestAuthenticateUser(t *testing.T) {
	db := openLoginTestDB(t)
	ctx := context.Background()
	if err := UpsertUserPasswordHash(ctx, db, "Maren", "cellar", "Pomona-Press-2025"); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	user, err := authenticateUser(ctx, db, "maren", "Pomona-Press-2025")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Role != "cellar" {
		t.Fatalf("expected cellar role, got %q", user.Role)
	}

	if _, err := authenticateUser(ctx, db, "maren", "wrong-Password-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := authenticateUser(ctx, db, "nobody", "Pomona-Press-2025"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}
}

func TestUpsertUserPasswordHashUpdatesRole(t *testing.T) {
	db := openLoginTestDB(t)
	ctx := context.Background()
	if err := UpsertUserPasswordHash(ctx, db, "ivo", "viewer", "Pomona-Press-2025"); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := UpsertUserPasswordHash(ctx, db, "ivo", "admin", "Russet-Rows-2026"); err != nil {
		t.Fatalf("update user: %v", err)
	}
	user, err := authenticateUser(ctx, db, "ivo", "Russet-Rows-2026")
	if err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
	if user.Role != "admin" {
		t.Fatalf("expected admin role, got %q", user.Role)
	}

	if err := UpsertUserPasswordHash(ctx, db, "ivo", "scanner", "Russet-Rows-2026"); err == nil {
		t.Fatalf("expected unknown role error")
	}
	if err := UpsertUserPasswordHash(ctx, db, "ivo", "viewer", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password error, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := openLoginTestDB(t)
	ctx := context.Background()
	if err := UpsertUserPasswordHash(ctx, db, "sol", "viewer", "Pomona-Press-2025"); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	user, err := authenticateUser(ctx, db, "sol", "Pomona-Press-2025")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	live := newSession(user, time.Hour)
	if err := persistSession(ctx, db, live); err != nil {
		t.Fatalf("persist live session: %v", err)
	}
	loaded, err := LoadSessionByToken(ctx, db, live.ID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if loaded.User.Username != "sol" || len(loaded.UserRoles) != 1 || loaded.UserRoles[0] != "viewer" {
		t.Fatalf("unexpected loaded session: %+v", loaded)
	}

	stale := models.Session{ID: newSessionToken(), UserID: user.ID, ExpiresAt: time.Now().Add(-time.Minute)}
	if err := persistSession(ctx, db, stale); err != nil {
		t.Fatalf("persist stale session: %v", err)
	}
	if _, err := LoadSessionByToken(ctx, db, stale.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}

	if err := DeleteSessionByToken(ctx, db, live.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := LoadSessionByToken(ctx, db, live.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected deleted session to be gone, got %v", err)
	}
}
