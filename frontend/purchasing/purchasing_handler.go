package purchasing

import (
	"log/slog"
	"net/http"

	"cellarbook/frontend/shared/api"
	"cellarbook/frontend/shared/context"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
)

func ListVendorsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendors, err := ListVendors(r.Context(), db, r.URL.Query().Get("all") == "1")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, vendors)
	}
}

func GetVendorQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		v, err := GetVendor(r.Context(), db, id)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, v)
	}
}

func CreateVendorCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in VendorInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		v, err := CreateVendor(r.Context(), db, auditSvc, context.UserID(r.Context()), in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.Created(w, v)
	}
}

func UpdateVendorCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		var in UpdateVendorInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		v, err := UpdateVendor(r.Context(), db, auditSvc, context.UserID(r.Context()), id, in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, v)
	}
}

func ListOrdersQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := ListOrders(r.Context(), db, r.URL.Query().Get("status"))
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, orders)
	}
}

func GetOrderQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		view, err := GetOrder(r.Context(), db, id)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, view)
	}
}

func CreateOrderCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in CreateOrderInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		view, err := CreateOrder(r.Context(), db, auditSvc, context.UserID(r.Context()), in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.Created(w, view)
	}
}

// orderActionHandler serves the id-only state changes (submit, cancel).
func orderActionHandler(action func(r *http.Request, actorID, id int64) (OrderView, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		view, err := action(r, context.UserID(r.Context()), id)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, view)
	}
}

func SubmitOrderCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return orderActionHandler(func(r *http.Request, actorID, id int64) (OrderView, error) {
		return SubmitOrder(r.Context(), db, auditSvc, actorID, id)
	})
}

func CancelOrderCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return orderActionHandler(func(r *http.Request, actorID, id int64) (OrderView, error) {
		return CancelOrder(r.Context(), db, auditSvc, actorID, id)
	})
}

func ReceiveOrderCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		var in ReceiveInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		view, err := ReceiveOrder(r.Context(), db, auditSvc, context.UserID(r.Context()), id, in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, view)
	}
}

func OrderPDFQueryHandler(db *sqlite.DB, buyer Buyer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		view, err := GetOrder(r.Context(), db, id)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		body, err := RenderOrderPDF(view, buyer)
		if err != nil {
			slog.Error("purchasing: render po pdf failed", slog.String("po", view.PONumber), slog.Any("err", err))
			http.Error(w, "failed to render purchase order", http.StatusInternalServerError)
			return
		}
		api.Download(w, "application/pdf", view.PONumber+".pdf", body)
	}
}
