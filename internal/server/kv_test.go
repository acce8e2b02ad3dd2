package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// testConfig returns a Config with a working session secret and no DB.
// Handlers under test must reject the request before touching storage.
func testConfig(t *testing.T) (Config, *http.Cookie) {
	t.Helper()
	cfg := Config{Auth: AuthConfig{SessionSecret: "unit-test-secret", SessionTTL: time.Hour}}
	tok, exp, err := cfg.Auth.makeToken("admin")
	if err != nil {
		t.Fatalf("makeToken error: %v", err)
	}
	return cfg, &http.Cookie{Name: cfg.Auth.cookieName(), Value: tok, Expires: exp}
}

func TestKVDeleteRequiresKey(t *testing.T) {
	cfg, cookie := testConfig(t)
	handler := cfg.kvDeleteHandler()

	tests := []struct {
		name string
		body string
	}{
		{name: "empty object", body: `{}`},
		{name: "empty key", body: `{"key":""}`},
		{name: "wrong field", body: `{"k":"progress.chapter1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/progress/delete", strings.NewReader(tt.body))
			req.AddCookie(cookie)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400 for %s, got %d", tt.name, rr.Code)
			}
		})
	}
}

func TestKVDeleteRejectsBadJSON(t *testing.T) {
	cfg, cookie := testConfig(t)
	req := httptest.NewRequest(http.MethodPost, "/progress/delete", strings.NewReader("not json"))
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	cfg.kvDeleteHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestKVPushRejectsEmptyBatch(t *testing.T) {
	cfg, cookie := testConfig(t)
	req := httptest.NewRequest(http.MethodPost, "/progress", strings.NewReader(`{}`))
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	cfg.kvPushHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty batch, got %d", rr.Code)
	}
}

func TestKVHandlersRequireSession(t *testing.T) {
	cfg, _ := testConfig(t)

	handlers := map[string]http.Handler{
		"pull":   cfg.kvPullHandler(),
		"push":   cfg.kvPushHandler(),
		"delete": cfg.kvDeleteHandler(),
	}

	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			method := http.MethodPost
			if name == "pull" {
				method = http.MethodGet
			}
			req := httptest.NewRequest(method, "/progress", strings.NewReader(`{"a":"1"}`))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401 without cookie, got %d", rr.Code)
			}
		})
	}
}

func TestStringifyValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "string verbatim", in: "chapter-3", want: "chapter-3"},
		{name: "number keeps JSON form", in: float64(42), want: "42"},
		{name: "bool keeps JSON form", in: true, want: "true"},
		{name: "object keeps JSON form", in: map[string]any{"done": true}, want: `{"done":true}`},
		{name: "null", in: nil, want: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stringifyValue(tt.in); got != tt.want {
				t.Errorf("stringifyValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
