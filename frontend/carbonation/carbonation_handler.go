package carbonation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"cellarbook/frontend/shared/api"
	"cellarbook/frontend/shared/context"
	"cellarbook/infrastructure/audit"
	co2 "cellarbook/infrastructure/carbonation"
	"cellarbook/infrastructure/rbac"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/infrastructure/units"
	"cellarbook/models"
)

func NewOperationView(op models.CarbonationOperation, prefs units.Preferences) OperationView {
	view := OperationView{CarbonationOperation: op, Findings: make([]co2.Finding, 0)}
	if op.FindingsJSON != "" {
		if err := json.Unmarshal([]byte(op.FindingsJSON), &view.Findings); err != nil {
			slog.Warn("carbonation: bad findings json", slog.Int64("operation_id", op.ID), slog.Any("err", err))
		}
	}
	view.TemperatureDisplay, _ = units.FormatTemperature(op.TemperatureC, prefs.Temperature)
	view.PressureDisplay, _ = units.FormatPressure(op.PressurePSI, prefs.Pressure)
	view.EstimatedCompletion = op.StartedAt.Add(time.Duration(op.EstimatedHours * float64(time.Hour)))
	return view
}

type blockedBody struct {
	Error    string        `json:"error"`
	Findings []co2.Finding `json:"findings"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		api.JSON(w, http.StatusUnprocessableEntity, blockedBody{Error: blocked.Error(), Findings: blocked.Findings})
		return
	}
	api.Error(w, r, err)
}

func CalculateQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlanRequest
		if err := api.Decode(w, r, &req); err != nil {
			api.Error(w, r, err)
			return
		}
		plan, err := Calculate(r.Context(), db, req)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, plan)
	}
}

func ListOperationsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID, err := api.IntQuery(r, "batch_id", 0)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		ops, err := ListOperations(r.Context(), db, r.URL.Query().Get("status"), int64(batchID))
		if err != nil {
			api.Error(w, r, err)
			return
		}
		prefs := context.Preferences(r.Context())
		views := make([]OperationView, 0, len(ops))
		for _, op := range ops {
			views = append(views, NewOperationView(op, prefs))
		}
		api.OK(w, views)
	}
}

func GetOperationQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		op, err := GetOperation(r.Context(), db, id)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, NewOperationView(op, context.Preferences(r.Context())))
	}
}

func StartOperationCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in StartInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		ctx := r.Context()
		op, err := StartOperation(ctx, db, auditSvc, context.UserID(ctx), context.HasRole(ctx, rbac.RoleAdmin), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.Created(w, NewOperationView(op, context.Preferences(ctx)))
	}
}

func CompleteOperationCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
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
		op, err := CompleteOperation(r.Context(), db, auditSvc, context.UserID(r.Context()), id, in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, NewOperationView(op, context.Preferences(r.Context())))
	}
}

func CancelOperationCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		op, err := CancelOperation(r.Context(), db, auditSvc, context.UserID(r.Context()), id)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, NewOperationView(op, context.Preferences(r.Context())))
	}
}
