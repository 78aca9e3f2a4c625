package inventory

import (
	"net/http"

	"cellarbook/frontend/shared/api"
	"cellarbook/frontend/shared/context"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/infrastructure/units"
)

const maxImportBytes = 10 << 20

func ListItemsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := ListItems(r.Context(), db, r.URL.Query().Get("category"))
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, items)
	}
}

func LowStockQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := LowStock(r.Context(), db.R)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, items)
	}
}

func GetItemQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		item, err := GetItem(r.Context(), db, id)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, item)
	}
}

// FinishedGoodDetailsQueryHandler serves inventory.getFinishedGoodDetails.
func FinishedGoodDetailsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		d, err := GetFinishedGoodDetails(r.Context(), db, id)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		d.VolumeDisplay, _ = units.FormatVolume(d.OnHandVolumeL, context.Preferences(r.Context()).Volume)
		api.OK(w, d)
	}
}

func CreateItemCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in CreateItemInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		item, err := CreateItem(r.Context(), db, auditSvc, context.UserID(r.Context()), in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.Created(w, item)
	}
}

func UpdateItemCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		var in UpdateItemInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		item, err := UpdateItem(r.Context(), db, auditSvc, context.UserID(r.Context()), id, in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, item)
	}
}

func AdjustCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		var in AdjustInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		txn, err := Adjust(r.Context(), db, auditSvc, context.UserID(r.Context()), id, in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.Created(w, txn)
	}
}

func SaleCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		var in SaleInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		txn, err := RecordSale(r.Context(), db, auditSvc, context.UserID(r.Context()), id, in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.Created(w, txn)
	}
}

// ImportCommandHandler accepts a multipart upload in the "file" field.
func ImportCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			api.Error(w, r, api.Invalid("file", "invalid upload"))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			api.Error(w, r, api.Invalid("file", "choose a CSV file to upload"))
			return
		}
		defer file.Close()

		summary, err := ImportCSV(r.Context(), db, auditSvc, context.UserID(r.Context()), file)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, summary)
	}
}
