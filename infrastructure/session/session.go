// Package session builds the session cookie.
package session

import (
	"net/http"
	"time"
)

const CookieName = "X-Session-Token"

// DefaultTTL applies when configuration does not set one.
const DefaultTTL = 7 * 24 * time.Hour

// Cookie returns the session cookie for token valid for ttl. A zero ttl
// clears the cookie.
func Cookie(token string, ttl time.Duration, secure bool) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl <= 0 {
		c.Value = ""
		c.MaxAge = -1
		return c
	}
	c.MaxAge = int(ttl / time.Second)
	return c
}

func Clear(secure bool) *http.Cookie {
	return Cookie("", 0, secure)
}

func Expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return now.Add(ttl)
}

// Token reads the session token from r, or "" when absent.
func Token(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
