package batches

import (
	"net/http"

	"cellarbook/frontend/shared/api"
	"cellarbook/frontend/shared/context"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/infrastructure/ttb"
	"cellarbook/infrastructure/units"
	"cellarbook/models"
)

// NewBatchView renders display fields for b in prefs.
func NewBatchView(b models.Batch, prefs units.Preferences) BatchView {
	view := BatchView{Batch: b}
	if s, err := units.FormatVolume(b.VolumeL, prefs.Volume); err == nil {
		view.VolumeDisplay = s
	}
	if c, err := ttb.ParseTaxClass(b.TaxClass); err == nil {
		view.TaxClassLabel = c.Label()
	}
	return view
}

func ListBatchesQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := ListBatches(r.Context(), db, r.URL.Query().Get("status"))
		if err != nil {
			api.Error(w, r, err)
			return
		}
		prefs := context.Preferences(r.Context())
		views := make([]BatchView, 0, len(list))
		for _, b := range list {
			views = append(views, NewBatchView(b, prefs))
		}
		api.OK(w, views)
	}
}

func GetBatchQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		b, vessel, measurements, err := GetBatchDetail(r.Context(), db, id)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, BatchDetail{
			BatchView:    NewBatchView(b, context.Preferences(r.Context())),
			Vessel:       vessel,
			Measurements: measurements,
		})
	}
}

func CreateBatchCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in CreateBatchInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		b, err := CreateBatch(r.Context(), db, auditSvc, context.UserID(r.Context()), in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.Created(w, NewBatchView(b, context.Preferences(r.Context())))
	}
}

func UpdateBatchCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		var in UpdateBatchInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		b, err := UpdateBatch(r.Context(), db, auditSvc, context.UserID(r.Context()), id, in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, NewBatchView(b, context.Preferences(r.Context())))
	}
}

func TransitionBatchCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		var in TransitionInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		b, err := TransitionBatch(r.Context(), db, auditSvc, context.UserID(r.Context()), id, in.Status)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, NewBatchView(b, context.Preferences(r.Context())))
	}
}

func AddMeasurementCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		var in MeasurementInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		m, err := AddMeasurement(r.Context(), db, auditSvc, context.UserID(r.Context()), id, in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.Created(w, m)
	}
}

func AdjustVolumeCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		var in VolumeAdjustmentInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		b, err := AdjustVolume(r.Context(), db, auditSvc, context.UserID(r.Context()), id, in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, NewBatchView(b, context.Preferences(r.Context())))
	}
}

func ListVesselsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := ListVessels(r.Context(), db)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, list)
	}
}

func CreateVesselCommandHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in CreateVesselInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		v, err := CreateVessel(r.Context(), db, in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.Created(w, v)
	}
}
