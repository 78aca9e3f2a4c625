package packaging

import (
	"fmt"
	"log/slog"
	"net/http"

	"cellarbook/frontend/shared/api"
	"cellarbook/frontend/shared/context"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/infrastructure/units"
)

func ListRunsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID, err := api.IntQuery(r, "batch_id", 0)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		runs, err := ListRuns(r.Context(), db, int64(batchID))
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, runs)
	}
}

// GetRunQueryHandler serves packaging.get.
func GetRunQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		view, err := GetRun(r.Context(), db, id)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		prefs := context.Preferences(r.Context())
		view.PackagedDisplay, _ = units.FormatVolume(view.PackagedL, prefs.Volume)
		view.LossDisplay, _ = units.FormatVolume(view.LossL, prefs.Volume)
		api.OK(w, view)
	}
}

func CreateRunCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in CreateRunInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		run, err := CreateRun(r.Context(), db, auditSvc, context.UserID(r.Context()), in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.Created(w, run)
	}
}

func VoidRunCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		run, err := VoidRun(r.Context(), db, auditSvc, context.UserID(r.Context()), id)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, run)
	}
}

func AddFillCheckCommandHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		var in FillCheckInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		fc, err := AddFillCheck(r.Context(), db, id, in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.Created(w, fc)
	}
}

func LotLabelQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		copies, err := api.IntQuery(r, "copies", 1)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		if copies > 100 {
			api.Error(w, r, api.Invalid("copies", "at most 100 labels per request"))
			return
		}
		label, err := LoadLotLabel(r.Context(), db, id)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		body, err := RenderLotLabelsPDF(label, copies)
		if err != nil {
			slog.Error("packaging: render lot label failed", slog.Int64("run_id", id), slog.Any("err", err))
			http.Error(w, "failed to render label", http.StatusInternalServerError)
			return
		}
		api.Download(w, "application/pdf", fmt.Sprintf("lot-%s.pdf", label.LotCode), body)
	}
}
