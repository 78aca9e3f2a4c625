package pressruns

import (
	"net/http"

	"cellarbook/frontend/shared/api"
	"cellarbook/frontend/shared/context"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
)

func ListPressRunsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := ListPressRuns(r.Context(), db)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		prefs := context.Preferences(r.Context())
		views := make([]PressRunView, 0, len(runs))
		for _, run := range runs {
			views = append(views, NewPressRunView(run, prefs))
		}
		api.OK(w, views)
	}
}

func GetPressRunQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		run, err := GetPressRun(r.Context(), db, id)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, NewPressRunView(run, context.Preferences(r.Context())))
	}
}

func CreatePressRunCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in DraftInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		run, err := CreatePressRun(r.Context(), db, auditSvc, context.UserID(r.Context()), in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.Created(w, NewPressRunView(run, context.Preferences(r.Context())))
	}
}

// SyncDraftCommandHandler accepts offline drafts. Replays of the same
// revision answer 200 with the stored run.
func SyncDraftCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in DraftInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		res, err := SyncDraft(r.Context(), db, auditSvc, context.UserID(r.Context()), in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		res.PressRun = NewPressRunView(res.PressRun.PressRun, context.Preferences(r.Context()))
		status := http.StatusOK
		if res.Outcome == SyncCreated {
			status = http.StatusCreated
		}
		api.JSON(w, status, res)
	}
}

func CompletePressRunCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		var in CompleteInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		run, err := CompletePressRun(r.Context(), db, auditSvc, context.UserID(r.Context()), id, in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, NewPressRunView(run, context.Preferences(r.Context())))
	}
}
