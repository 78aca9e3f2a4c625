package context

import (
	"context"

	"cellarbook/infrastructure/units"
	"cellarbook/models"
)

type sessionKey struct{}
type preferencesKey struct{}

func NewContextWithSession(ctx context.Context, session models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

func GetSessionFromContext(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(models.Session)
	return s, ok
}

// UserID returns the logged in user, or 0 outside an authenticated request.
func UserID(ctx context.Context) int64 {
	s, ok := GetSessionFromContext(ctx)
	if !ok {
		return 0
	}
	return s.UserID
}

// HasRole reports whether the session carries role.
func HasRole(ctx context.Context, role string) bool {
	s, ok := GetSessionFromContext(ctx)
	if !ok {
		return false
	}
	for _, r := range s.UserRoles {
		if r == role {
			return true
		}
	}
	return false
}

func NewContextWithPreferences(ctx context.Context, prefs units.Preferences) context.Context {
	return context.WithValue(ctx, preferencesKey{}, prefs)
}

// Preferences returns the user's display units, falling back to metric.
func Preferences(ctx context.Context) units.Preferences {
	if p, ok := ctx.Value(preferencesKey{}).(units.Preferences); ok {
		return p
	}
	return units.DefaultPreferences()
}
