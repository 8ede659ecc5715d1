package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookie = "fareja_flash"

type flashKind string

const (
	flashSuccess flashKind = "success"
	flashError   flashKind = "error"
)

// Flash is a one-shot message shown on the page an admin action redirects
// to. It travels as base64 JSON so messages may hold any character.
type Flash struct {
	Type    flashKind `json:"t"`
	Message string    `json:"m"`
}

func setFlash(w http.ResponseWriter, kind flashKind, message string) {
	raw, _ := json.Marshal(Flash{Type: kind, Message: message})
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/admin",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

// getFlash returns the pending message, if any, and expires the cookie.
func getFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/admin", HttpOnly: true, MaxAge: -1})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal(raw, &f); err != nil || f.Message == "" {
		return nil
	}
	if f.Type != flashSuccess && f.Type != flashError {
		return nil
	}
	return &f
}
