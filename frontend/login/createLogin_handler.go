package login

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cellarbook/infrastructure/cache"
	sessioncookie "cellarbook/infrastructure/session"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/models"
)

// HomePath is where a fresh session lands.
const HomePath = "/cellar"

// CreateLoginHandler authenticates the user and issues a session cookie.
func CreateLoginHandler(db *sqlite.DB, sessions *cache.SessionCache, users *cache.UserCache, ttl time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, "invalid form data")
			return
		}

		username := strings.TrimSpace(r.FormValue("username"))
		password := r.FormValue("password")
		if username == "" || password == "" {
			redirectWithError(w, r, "username and password are required")
			return
		}

		user, err := authenticateUser(r.Context(), db, username, password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				redirectWithError(w, r, ErrInvalidCredentials.Error())
				return
			}
			slog.Error("authenticate user failed", slog.String("username", username), slog.Any("err", err))
			redirectWithError(w, r, "authentication failed")
			return
		}

		session := newSession(user, ttl)
		if err := persistSession(r.Context(), db, session); err != nil {
			slog.Error("persist session failed", slog.Int64("user_id", user.ID), slog.Any("err", err))
			redirectWithError(w, r, "failed to create session")
			return
		}

		sessions.Put(session)
		users.Put(user)

		http.SetCookie(w, sessioncookie.Cookie(session.ID, ttl, r.TLS != nil))
		http.Redirect(w, r, HomePath, http.StatusSeeOther)
	}
}

func redirectWithError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

func newSession(user models.User, ttl time.Duration) models.Session {
	return models.Session{
		ID:        newSessionToken(),
		UserID:    user.ID,
		User:      user,
		UserRoles: []string{user.Role},
		ExpiresAt: sessioncookie.Expiry(time.Now().UTC(), ttl),
	}
}
