package nav

import (
	"testing"

	"cellarbook/models"
)

func TestBuildTopNavDataFiltersByPermission(t *testing.T) {
	session := models.Session{
		User:        models.User{Username: "wren", Role: "viewer"},
		Permissions: map[string]bool{"DASHBOARD_VIEW": true, "BATCHES_VIEW": true},
	}
	data := BuildTopNavData(session)
	if len(data.Links) != 2 {
		t.Fatalf("expected 2 links, got %+v", data.Links)
	}
	if data.Links[0].Label != "Dashboard" || data.Links[1].Label != "Batches" {
		t.Fatalf("unexpected link order: %+v", data.Links)
	}
	if data.Username != "wren" {
		t.Fatalf("expected username, got %q", data.Username)
	}
}
