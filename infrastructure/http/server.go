package http

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	loginflow "cellarbook/frontend/login"
	"cellarbook/frontend/purchasing"
	"cellarbook/frontend/settings"
	"cellarbook/frontend/shared/api"
	sessioncontext "cellarbook/frontend/shared/context"
	ttbreports "cellarbook/frontend/ttbReports"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/cache"
	"cellarbook/infrastructure/rbac"
	sessioncookie "cellarbook/infrastructure/session"
	"cellarbook/infrastructure/sqlite"
	"cellarbook/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed assets/*
var assets embed.FS

var ShutdownTimeout = 2 * time.Second

// apiPrefix marks JSON routes; they answer 401/403 instead of redirecting.
const apiPrefix = "/cellar/api/"

// Options carries settings that only some handlers need.
type Options struct {
	SessionTTL time.Duration
	TTB        ttbreports.Settings
	Buyer      purchasing.Buyer
}

// Server bundles dependencies and route wiring.
type Server struct {
	Addr   string
	ln     net.Listener
	server *http.Server
	router *chi.Mux

	DB          *sqlite.DB
	Sessions    *cache.SessionCache
	Users       *cache.UserCache
	Permissions *cache.PermissionCache
	Rbac        *rbac.Rbac
	Audit       *audit.Service
	Options     Options
}

// NewServer creates a new http server.
func NewServer(addr string, db *sqlite.DB, sessions *cache.SessionCache, users *cache.UserCache, perms *cache.PermissionCache, auditSvc *audit.Service, opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = sessioncookie.DefaultTTL
	}
	s := &Server{
		Addr:        addr,
		router:      chi.NewRouter(),
		DB:          db,
		Sessions:    sessions,
		Users:       users,
		Permissions: perms,
		Rbac:        rbac.New(perms),
		Audit:       auditSvc,
		Options:     opts,
		server: &http.Server{
			MaxHeaderBytes:    1 << 20,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	s.router.Use(secureHeaders)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(s.CSRFMiddleware)

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.resolveSession(r.Context(), sessioncookie.Token(r)); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, loginflow.HomePath, http.StatusSeeOther)
	})

	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var assetsFS fs.FS = assets
	if sub, err := fs.Sub(assets, "assets"); err == nil {
		assetsFS = sub
	} else {
		slog.Error("assets subfs init failed; serving fallback fs", slog.Any("err", err))
	}
	s.router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS))))

	s.RegisterLoginRoutes()

	s.router.Route("/cellar", func(r chi.Router) {
		r.Use(s.AuthenticateMiddleware)
		r.Use(s.PreferencesMiddleware)
		s.RegisterFrontendRoutes(r)
		s.RegisterAdminRoutes(r)
	})

	s.server.Handler = s.router
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// AuthenticateMiddleware loads the session and applies RBAC checks.
func (s *Server) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessioncookie.Token(r)
		if token == "" {
			s.unauthenticated(w, r)
			return
		}

		session, ok := s.resolveSession(r.Context(), token)
		if !ok {
			http.SetCookie(w, sessioncookie.Clear(r.TLS != nil))
			s.unauthenticated(w, r)
			return
		}

		if session.Expired() {
			s.Sessions.Delete(token)
			if err := loginflow.DeleteSessionByToken(r.Context(), s.DB, token); err != nil {
				slog.Error("cannot delete session from DB", slog.Any("err", err))
			}
			http.SetCookie(w, sessioncookie.Clear(r.TLS != nil))
			s.unauthenticated(w, r)
			return
		}

		if hasRole(session.UserRoles, rbac.RoleAdmin) {
			session.Permissions = s.Permissions.Codes()
		} else {
			session.Permissions = s.Permissions.Codes(session.UserRoles...)
		}

		if !s.Rbac.Allowed(session.UserRoles, r.URL.Path, r.Method) {
			slog.Warn("rbac denied",
				slog.String("user", session.User.Username),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path))
			if isAPI(r) {
				api.Error(w, r, fmt.Errorf("%w: %s %s", api.ErrForbidden, r.Method, r.URL.Path))
				return
			}
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		ctx := sessioncontext.NewContextWithSession(r.Context(), session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PreferencesMiddleware attaches the user's display units to the request.
func (s *Server) PreferencesMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := sessioncontext.UserID(r.Context())
		prefs, err := settings.LoadPreferences(r.Context(), s.DB.R, uid)
		if err != nil {
			slog.Error("load preferences failed", slog.Int64("user_id", uid), slog.Any("err", err))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(sessioncontext.NewContextWithPreferences(r.Context(), prefs)))
	})
}

func (s *Server) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if isAPI(r) {
		api.JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, apiPrefix)
}

func (s *Server) resolveSession(ctx context.Context, token string) (session models.Session, ok bool) {
	if token == "" {
		return session, false
	}
	if cached, found := s.Sessions.Get(token); found {
		return cached, true
	}

	dbSession, err := loginflow.LoadSessionByToken(ctx, s.DB, token)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("load session from db failed", slog.Any("err", err))
		}
		return session, false
	}

	s.Sessions.Put(dbSession)
	s.Users.Put(dbSession.User)
	return dbSession, true
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// SweepSessions drops expired sessions from the cache and the database.
func (s *Server) SweepSessions(ctx context.Context, now time.Time) {
	dropped := s.Sessions.Sweep(now)
	deleted, err := loginflow.DeleteExpiredSessions(ctx, s.DB, now)
	if err != nil {
		slog.Error("sweep sessions failed", slog.Any("err", err))
		return
	}
	if dropped > 0 || deleted > 0 {
		slog.Info("expired sessions swept", slog.Int("cached", dropped), slog.Int64("stored", deleted))
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	var err error
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.Any("err", err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.ln == nil {
		return fmt.Errorf("HTTP server has not been started or is already stopped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %v", err)
	}
	s.ln = nil
	return nil
}
