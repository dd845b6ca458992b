package session

import (
	"net/http"
	"strings"
	"time"
)

const DefaultCookieName = "authToken"

// TokenFromRequest returns the bearer token of the Authorization header, or
// the session cookie when no header is present.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
			return strings.TrimSpace(auth[7:])
		}
		return ""
	}
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// WriteCookie sets the session cookie for ttl. The cookie is marked secure on
// TLS requests and when secure is set.
func WriteCookie(w http.ResponseWriter, r *http.Request, cookieName, token string, ttl time.Duration, secure bool) {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter, r *http.Request, cookieName string, secure bool) {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// IsPublicPath reports whether path is one of the public paths or below one.
func IsPublicPath(path string, public []string) bool {
	for _, p := range public {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}
