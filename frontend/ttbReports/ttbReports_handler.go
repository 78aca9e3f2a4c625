package ttbreports

import (
	"log/slog"
	"net/http"
	"strings"

	"cellarbook/frontend/shared/api"
	"cellarbook/frontend/shared/context"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/sqlite"
)

// GenerateCommandHandler serves ttb.generateForm512017.
func GenerateCommandHandler(db *sqlite.DB, auditSvc *audit.Service, settings Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in GenerateInput
		if err := api.Decode(w, r, &in); err != nil {
			api.Error(w, r, err)
			return
		}
		form, err := Generate(r.Context(), db, auditSvc, context.UserID(r.Context()), settings, in)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		slog.Info("ttb report generated",
			slog.String("period", form.Period.String()),
			slog.String("net_tax", form.Tax.NetTax.StringFixed(2)),
			slog.Int("findings", len(form.Findings)))
		api.OK(w, form)
	}
}

func ListReportsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, err := api.IntQuery(r, "year", 0)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		reports, err := ListReports(r.Context(), db, year)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, reports)
	}
}

// DownloadReportQueryHandler serves a saved snapshot as json, pdf or xlsx.
func DownloadReportQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, err := api.IDParam(r, "year")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		month, err := api.IDParam(r, "month")
		if err != nil {
			api.Error(w, r, err)
			return
		}
		form, err := LoadReport(r.Context(), db, int(year), int(month))
		if err != nil {
			api.Error(w, r, err)
			return
		}
		body, contentType, filename, err := Render(form, strings.ToLower(r.URL.Query().Get("format")))
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.Download(w, contentType, filename, body)
	}
}
