package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	rl := newRateLimiter(5, time.Minute)
	for i := 0; i < 5; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		rl.allow("10.0.0.2")
	}
	if rl.allow("10.0.0.2") {
		t.Error("4th request should be blocked")
	}
}

func TestRateLimiterTracksIPsSeparately(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	if !rl.allow("10.0.0.3") {
		t.Fatal("first IP should be allowed")
	}
	if !rl.allow("10.0.0.4") {
		t.Error("second IP should have its own budget")
	}
	if rl.allow("10.0.0.3") {
		t.Error("first IP should be exhausted")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	handler := rl.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after limit, got %d", rr.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{name: "remote addr", remoteAddr: "203.0.113.9:4100", want: "203.0.113.9"},
		{name: "x-forwarded-for single", remoteAddr: "10.0.0.1:80", xff: "198.51.100.7", want: "198.51.100.7"},
		{name: "x-forwarded-for chain", remoteAddr: "10.0.0.1:80", xff: "198.51.100.7, 10.0.0.2", want: "198.51.100.7"},
		{name: "x-real-ip", remoteAddr: "10.0.0.1:80", xri: "198.51.100.8", want: "198.51.100.8"},
		{name: "xff wins over xri", remoteAddr: "10.0.0.1:80", xff: "198.51.100.7", xri: "198.51.100.8", want: "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
