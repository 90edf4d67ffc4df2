package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiter_AllowWithinBudget(t *testing.T) {
	rl := NewRateLimiter(60)

	for i := 0; i < 10; i++ {
		if !rl.Allow("ip:1.2.3.4") {
			t.Fatalf("Expected request %d within burst to be allowed", i)
		}
	}
}

func TestRateLimiter_BlocksWhenExhausted(t *testing.T) {
	rl := NewRateLimiter(2)

	rl.Allow("ip:1.2.3.4")
	rl.Allow("ip:1.2.3.4")

	if rl.Allow("ip:1.2.3.4") {
		t.Error("Expected third immediate request to be blocked")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1)

	rl.Allow("ip:1.2.3.4")
	if !rl.Allow("ip:5.6.7.8") {
		t.Error("Expected a different client to have its own budget")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:4567"
	if got := ClientIP(r); got != "ip:10.0.0.1" {
		t.Errorf("Expected ip:10.0.0.1, got %s", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(r); got != "ip:203.0.113.9" {
		t.Errorf("Expected leftmost forwarded IP, got %s", got)
	}

	r.Header.Set("X-Forwarded-For", "garbage")
	if got := ClientIP(r); got != "ip:10.0.0.1" {
		t.Errorf("Expected fallback to RemoteAddr for invalid header, got %s", got)
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewRateLimiter(1)
	handler := RateLimit(rl, ClientIP)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/deals", nil)
	req.RemoteAddr = "10.0.0.1:4567"

	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected first request to pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected second request to be limited, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header on limited response")
	}
}

func TestRateLimit_DisabledWithNilLimiter(t *testing.T) {
	handler := RateLimit(nil, ClientIP)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected nil limiter to pass everything, got %d", rec.Code)
		}
	}
}
