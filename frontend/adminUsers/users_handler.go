package adminusers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"cellarbook/frontend/shared/api"
	"cellarbook/frontend/shared/context"
	"cellarbook/frontend/shared/html"
	"cellarbook/frontend/shared/nav"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/cache"
	"cellarbook/infrastructure/rbac"
	"cellarbook/infrastructure/sqlite"
)

const usersPath = "/cellar/admin/users"

// UsersPageQueryHandler renders the admin users list page.
func UsersPageQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		users, err := LoadUsers(r.Context(), db)
		if err != nil {
			slog.Error("admin users: failed to load data", slog.Any("err", err))
			http.Error(w, "failed to load users", http.StatusInternalServerError)
			return
		}
		data := PageData{
			Users:        users,
			Roles:        rbac.Roles,
			Status:       r.URL.Query().Get("status"),
			ErrorMessage: r.URL.Query().Get("error"),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := html.Layout("Users", nav.BuildTopNavData(session), UsersList(data)).Render(r.Context(), w); err != nil {
			slog.Error("admin users: render failed", slog.Any("err", err))
		}
	}
}

func CreateUserCommandHandler(db *sqlite.DB, users *cache.UserCache, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirect(w, r, "error", "invalid form data")
			return
		}
		user, err := CreateUser(r.Context(), db, auditSvc, context.UserID(r.Context()),
			r.FormValue("username"), r.FormValue("password"), r.FormValue("role"))
		if err != nil {
			// Every CreateUser error is a user-facing validation message.
			redirect(w, r, "error", err.Error())
			return
		}
		users.Put(user)
		redirect(w, r, "status", "user created")
	}
}

func UpdateUserRoleCommandHandler(db *sqlite.DB, sessions *cache.SessionCache, users *cache.UserCache, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := api.IDParam(r, "id")
		if err != nil {
			redirect(w, r, "error", "invalid user")
			return
		}
		if err := r.ParseForm(); err != nil {
			redirect(w, r, "error", "invalid form data")
			return
		}
		user, err := UpdateUserRole(r.Context(), db, auditSvc, context.UserID(r.Context()), id, strings.TrimSpace(r.FormValue("role")))
		if err != nil {
			redirect(w, r, "error", err.Error())
			return
		}
		sessions.DeleteUser(user.ID)
		users.Put(user)
		redirect(w, r, "status", "role updated")
	}
}

func redirect(w http.ResponseWriter, r *http.Request, key, msg string) {
	http.Redirect(w, r, usersPath+"?"+key+"="+url.QueryEscape(msg), http.StatusSeeOther)
}
