package exports

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cellarbook/frontend/shared/api"
	sessioncontext "cellarbook/frontend/shared/context"
	"cellarbook/infrastructure/sqlite"
)

// CSVHandler serves /exports/{kind}.csv for kinds batches, packaging and
// inventory.
func CSVHandler(db *sqlite.DB) http.HandlerFunc {
	kinds := map[string]string{
		"batches":   KindBatches,
		"packaging": KindPackaging,
		"inventory": KindInventory,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := kinds[chi.URLParam(r, "kind")]
		if !ok {
			http.Error(w, "unknown export", http.StatusNotFound)
			return
		}
		var buf bytes.Buffer
		if err := Write(r.Context(), db, &buf, kind); err != nil {
			slog.Error("export csv failed", slog.String("type", kind), slog.Any("err", err))
			http.Error(w, "failed to export csv", http.StatusInternalServerError)
			return
		}
		if err := recordExportRun(r.Context(), db, sessionUserIDFromContext(r), kind); err != nil {
			slog.Error("record export run failed", slog.String("type", kind), slog.Any("err", err))
		}
		api.Download(w, "text/csv", fileNames[kind], buf.Bytes())
	}
}

func ExportRunsQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := api.IntQuery(r, "limit", 50)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		runs, err := ListRuns(r.Context(), db, limit)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		api.OK(w, runs)
	}
}

func sessionUserIDFromContext(r *http.Request) *int64 {
	session, ok := sessioncontext.GetSessionFromContext(r.Context())
	if !ok || session.UserID <= 0 {
		return nil
	}
	id := session.UserID
	return &id
}
