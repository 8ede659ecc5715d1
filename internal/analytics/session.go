package analytics

import (
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	SessionCookie = "fareja_session"
	sessionMaxAge = 30 * 24 * time.Hour
)

// SessionMiddleware gives every visitor a random session id cookie so unique
// visitors can be counted without storing IPs.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(SessionCookie); err != nil {
			c := &http.Cookie{
				Name:     SessionCookie,
				Value:    uuid.NewString(),
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int(sessionMaxAge.Seconds()),
			}
			http.SetCookie(w, c)
			r.AddCookie(c)
		}
		next.ServeHTTP(w, r)
	})
}

// SessionID returns the visitor session cookie, or "".
func SessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// ClientIP returns the request's remote IP. chi's RealIP middleware has
// already applied X-Forwarded-For by the time this runs.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
