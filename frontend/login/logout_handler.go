package login

import (
	"log/slog"
	"net/http"

	"cellarbook/infrastructure/cache"
	sessioncookie "cellarbook/infrastructure/session"
	"cellarbook/infrastructure/sqlite"
)

// LogoutHandler removes session state and clears the cookie.
func LogoutHandler(db *sqlite.DB, sessions *cache.SessionCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := sessioncookie.Token(r); token != "" {
			sessions.Delete(token)
			if err := DeleteSessionByToken(r.Context(), db, token); err != nil {
				slog.Error("delete session failed", slog.Any("err", err))
			}
		}
		http.SetCookie(w, sessioncookie.Clear(r.TLS != nil))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
