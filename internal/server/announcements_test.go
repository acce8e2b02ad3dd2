package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCreateAnnouncementRejectsMissingTitle(t *testing.T) {
	cfg, cookie := testConfig(t)
	handler := cfg.announcementsHandler()

	tests := []struct {
		name string
		body string
	}{
		{name: "empty object", body: `{}`},
		{name: "blank title", body: `{"title":"   ","body":"text"}`},
		{name: "not json", body: "not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/announcements", strings.NewReader(tt.body))
			req.AddCookie(cookie)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400 for %s, got %d", tt.name, rr.Code)
			}
		})
	}
}

func TestAnnouncementDeleteRejectsBadID(t *testing.T) {
	cfg, cookie := testConfig(t)
	handler := cfg.announcementByIDHandler()

	for _, id := range []string{"abc", "", "12.5"} {
		t.Run("id="+id, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/announcements/"+id, nil)
			req.AddCookie(cookie)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400 for id %q, got %d", id, rr.Code)
			}
		})
	}
}

func TestAnnouncementDeleteMethodNotAllowed(t *testing.T) {
	cfg, cookie := testConfig(t)
	req := httptest.NewRequest(http.MethodGet, "/announcements/1", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	cfg.announcementByIDHandler().ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}
