package login

import (
	"log/slog"
	"net/http"

	"cellarbook/frontend/shared/html"
	"cellarbook/frontend/shared/nav"
)

// GetLoginScreenHandler renders the login screen.
func GetLoginScreenHandler(w http.ResponseWriter, r *http.Request) {
	errorMessage := r.URL.Query().Get("error")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := html.Layout("Sign in", nav.TopNavData{}, LoginForm(errorMessage))
	if err := page.Render(r.Context(), w); err != nil {
		slog.Error("render login screen failed", slog.Any("err", err))
		http.Error(w, "failed to render login screen", http.StatusInternalServerError)
	}
}
