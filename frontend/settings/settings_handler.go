package settings

import (
	"net/http"

	"cellarbook/frontend/shared/api"
	"cellarbook/frontend/shared/context"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/infrastructure/units"
)

type preferencesRequest struct {
	Volume      string `json:"volume"`
	Weight      string `json:"weight"`
	Temperature string `json:"temperature"`
	Pressure    string `json:"pressure"`
}

func PreferencesQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefs, err := LoadPreferences(r.Context(), db.R, context.UserID(r.Context()))
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, prefs)
	}
}

func PreferencesCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req preferencesRequest
		if err := api.Decode(w, r, &req); err != nil {
			api.Error(w, r, err)
			return
		}
		prefs, err := units.ParsePreferences(req.Volume, req.Weight, req.Temperature, req.Pressure)
		if err != nil {
			api.Error(w, r, api.Invalid("preferences", "%v", err))
			return
		}
		if err := SavePreferences(r.Context(), db, auditSvc, context.UserID(r.Context()), prefs); err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, prefs)
	}
}
