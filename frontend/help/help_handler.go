package help

import (
	"log/slog"
	"net/http"

	sessioncontext "cellarbook/frontend/shared/context"
	"cellarbook/frontend/shared/html"
	"cellarbook/frontend/shared/nav"
	"cellarbook/infrastructure/rbac"
)

type PageData struct {
	Role     string
	IsAdmin  bool
	CanWrite bool
	Topics   []Topic
}

// Topic is one area of the app and the endpoints behind it.
type Topic struct {
	Title     string
	Summary   string
	Reads     []string
	Writes    []string
	AdminOnly []string
}

func HelpPageQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessioncontext.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		role := session.User.Role
		data := PageData{
			Role:     role,
			IsAdmin:  role == rbac.RoleAdmin,
			CanWrite: role == rbac.RoleAdmin || role == rbac.RoleCellar,
			Topics:   Topics,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := html.Layout("Help", nav.BuildTopNavData(session), HelpPage(data)).Render(r.Context(), w); err != nil {
			slog.Error("help: render failed", slog.Any("err", err))
		}
	}
}
