package web

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "test-secret"

func sessionCookieFor(t *testing.T, secret string) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	createSession(w, secret)
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no cookies set")
	}
	return cookies[0]
}

func requestWith(c *http.Cookie) *http.Request {
	req := httptest.NewRequest("GET", "/admin", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestCreateAndVerifySession(t *testing.T) {
	cookie := sessionCookieFor(t, testSecret)

	if cookie.Name != "fareja_admin" {
		t.Errorf("cookie name = %q, want fareja_admin", cookie.Name)
	}
	if !cookie.HttpOnly || cookie.Path != "/admin" {
		t.Errorf("cookie = %+v, want HttpOnly scoped to /admin", cookie)
	}
	if cookie.MaxAge != int(sessionMaxAge.Seconds()) {
		t.Errorf("MaxAge = %d", cookie.MaxAge)
	}
	if !verifySession(requestWith(cookie), testSecret) {
		t.Error("verifySession returned false for valid session")
	}
}

func TestVerifySession_Rejects(t *testing.T) {
	valid := sessionCookieFor(t, testSecret)

	expired := func() *http.Cookie {
		exp := time.Now().Add(-time.Hour).Unix()
		payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"exp":%d}`, exp)))
		return &http.Cookie{Name: sessionCookie, Value: payload + "." + signPayload(payload, testSecret)}
	}()
	notJSON := func() *http.Cookie {
		payload := base64.RawURLEncoding.EncodeToString([]byte("exp=9999999999"))
		return &http.Cookie{Name: sessionCookie, Value: payload + "." + signPayload(payload, testSecret)}
	}()

	tests := []struct {
		name   string
		cookie *http.Cookie
		secret string
	}{
		{"no cookie", nil, testSecret},
		{"wrong secret", valid, "another-secret"},
		{"empty secret", valid, ""},
		{"tampered payload", &http.Cookie{Name: sessionCookie, Value: "tampered." + valid.Value[len(valid.Value)-10:]}, testSecret},
		{"no separator", &http.Cookie{Name: sessionCookie, Value: "invalid"}, testSecret},
		{"expired", expired, testSecret},
		{"signed garbage", notJSON, testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if verifySession(requestWith(tt.cookie), tt.secret) {
				t.Error("verifySession = true, want false")
			}
		})
	}
}

func TestDestroySession(t *testing.T) {
	w := httptest.NewRecorder()
	destroySession(w)

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected cookie to be set for deletion")
	}
	if cookies[0].Name != sessionCookie || cookies[0].MaxAge != -1 {
		t.Errorf("cookie = %+v, want %s with MaxAge -1", cookies[0], sessionCookie)
	}
}

func TestSessionMiddleware(t *testing.T) {
	var called bool
	handler := SessionMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWith(nil))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/admin/login" {
		t.Errorf("without session: status = %d, Location = %q", w.Code, w.Header().Get("Location"))
	}
	if called {
		t.Error("handler ran without a session")
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestWith(sessionCookieFor(t, testSecret)))
	if !called || w.Code != http.StatusOK {
		t.Errorf("with session: called = %v, status = %d", called, w.Code)
	}
}
