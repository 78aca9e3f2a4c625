package dashboard

import (
	"net/http"
	"time"

	"cellarbook/frontend/shared/api"
	"cellarbook/frontend/shared/context"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/infrastructure/units"
)

func SummaryQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := LoadSummary(r.Context(), db, time.Now().UTC())
		if err != nil {
			api.Error(w, r, err)
			return
		}
		sum.PackagedDisplay, _ = units.FormatVolume(sum.PackagedThisMonthL, context.Preferences(r.Context()).Volume)
		api.OK(w, sum)
	}
}
