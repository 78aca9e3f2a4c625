package context

import (
	"context"
	"testing"

	"cellarbook/infrastructure/units"
	"cellarbook/models"
)

func TestSessionHelpers(t *testing.T) {
	ctx := context.Background()
	if got := UserID(ctx); got != 0 {
		t.Fatalf("expected 0 user id without session, got %d", got)
	}
	if HasRole(ctx, "admin") {
		t.Fatalf("expected no role without session")
	}

	ctx = NewContextWithSession(ctx, models.Session{UserID: 7, UserRoles: []string{"cellar"}})
	if got := UserID(ctx); got != 7 {
		t.Fatalf("expected user id 7, got %d", got)
	}
	if !HasRole(ctx, "cellar") {
		t.Fatalf("expected cellar role")
	}
	if HasRole(ctx, "admin") {
		t.Fatalf("did not expect admin role")
	}
}

func TestPreferencesFallback(t *testing.T) {
	ctx := context.Background()
	if got := Preferences(ctx); got != units.DefaultPreferences() {
		t.Fatalf("expected default preferences, got %+v", got)
	}

	prefs := units.DefaultPreferences()
	prefs.Volume = units.Gallons
	ctx = NewContextWithPreferences(ctx, prefs)
	if got := Preferences(ctx); got.Volume != units.Gallons {
		t.Fatalf("expected gallons, got %q", got.Volume)
	}
}
