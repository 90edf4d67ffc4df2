// ABOUTME: Per-client HTTP rate limiting built on golang.org/x/time/rate
// ABOUTME: Keyed by client IP with periodic cleanup of idle limiters

package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-minute request budget per client key.
// Each unique key gets an independent token bucket.
type RateLimiter struct {
	mu             sync.Mutex
	clients        map[string]*clientLimiter
	perMinute      int
	createdCounter int // new limiters created; triggers cleanup every 100
}

// NewRateLimiter creates a limiter allowing perMinute requests per client.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*clientLimiter),
		perMinute: perMinute,
	}
}

// Allow reports whether a request for the given key should be permitted.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, exists := rl.clients[key]
	if !exists {
		c = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.perMinute)/60.0), rl.perMinute),
		}
		rl.clients[key] = c

		rl.createdCounter++
		if rl.createdCounter >= 100 {
			rl.cleanup()
			rl.createdCounter = 0
		}
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

// cleanup drops limiters idle for over ten minutes. Caller holds rl.mu.
func (rl *RateLimiter) cleanup() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// ClientIP extracts the client IP from X-Forwarded-For (leftmost) or
// RemoteAddr. Trusting the header is only safe behind a reverse proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		ip := strings.TrimSpace(parts[0])
		if ip != "" && net.ParseIP(ip) != nil {
			return "ip:" + ip
		}
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return "ip:" + host
}

// RateLimit returns middleware enforcing the given limiter keyed by keyFunc.
// A nil limiter disables limiting.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || keyFunc == nil {
				next(w, r)
				return
			}

			key := keyFunc(r)
			if key == "" {
				next(w, r)
				return
			}

			if limiter.Allow(key) {
				next(w, r)
				return
			}

			slog.Warn("Rate limit exceeded", "key", key, "path", r.URL.Path)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": fmt.Sprintf("Rate limit of %d requests per minute exceeded", limiter.perMinute),
				"code":  http.StatusTooManyRequests,
			})
		}
	}
}
