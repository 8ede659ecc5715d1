package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	sessionCookie = "fareja_admin"
	sessionMaxAge = 7 * 24 * time.Hour
)

type sessionPayload struct {
	Exp int64 `json:"exp"`
}

func createSession(w http.ResponseWriter, secret string) {
	raw, _ := json.Marshal(sessionPayload{Exp: time.Now().Add(sessionMaxAge).Unix()})
	payload := base64.RawURLEncoding.EncodeToString(raw)
	sig := signPayload(payload, secret)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    payload + "." + sig,
		Path:     "/admin",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionMaxAge.Seconds()),
	})
}

// verifySession checks the signature before looking at the payload, so a
// forged expiry is never parsed.
func verifySession(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}

	payload, sig, ok := strings.Cut(cookie.Value, ".")
	if !ok {
		return false
	}
	if !hmac.Equal([]byte(sig), []byte(signPayload(payload, secret))) {
		return false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return false
	}
	var p sessionPayload
	if err := json.Unmarshal(decoded, &p); err != nil {
		return false
	}
	return time.Now().Unix() < p.Exp
}

func destroySession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/admin",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func SessionMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !verifySession(r, secret) {
				http.Redirect(w, r, "/admin/login", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func signPayload(payload, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
