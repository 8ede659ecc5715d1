package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// serverError logs err and answers 500. The error text is only exposed
// outside production.
func serverError(w http.ResponseWriter, r *http.Request, production bool, msg string, err error) {
	hlog.FromRequest(r).Error().Err(err).Msg(msg)
	body := map[string]string{"error": msg}
	if !production && err != nil {
		body["details"] = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, body)
}

// publicBase is the origin used in links handed back to clients: the
// configured base URL, else the request's own scheme and host.
func publicBase(r *http.Request, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme, _, _ = strings.Cut(proto, ",")
		scheme = strings.TrimSpace(scheme)
	}
	return scheme + "://" + r.Host
}
