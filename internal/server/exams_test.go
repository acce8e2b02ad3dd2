package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExamsRequireSession(t *testing.T) {
	cfg, _ := testConfig(t)
	req := httptest.NewRequest(http.MethodGet, "/exams", nil)
	rr := httptest.NewRecorder()
	cfg.examsHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", rr.Code)
	}
}

func TestSaveExamsRejectsBadBody(t *testing.T) {
	cfg, cookie := testConfig(t)
	handler := cfg.examsHandler()

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "not json"},
		{name: "missing exams field", body: `{"other":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/exams", strings.NewReader(tt.body))
			req.AddCookie(cookie)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400 for %s, got %d", tt.name, rr.Code)
			}
		})
	}
}

func TestExamsMethodNotAllowed(t *testing.T) {
	cfg, cookie := testConfig(t)
	req := httptest.NewRequest(http.MethodDelete, "/exams", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	cfg.examsHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}
