// ABOUTME: Route registration with middleware wiring
// ABOUTME: Logging on every route, rate limiting when enabled

package handlers

import (
	"net/http"

	"github.com/farescout/farescout/config"
	"github.com/farescout/farescout/middleware"
)

// RegisterRoutes attaches all endpoints to the mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler, cfg *config.Config) {
	var limiter *middleware.RateLimiter
	if cfg.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPM)
	}

	limit := middleware.RateLimit(limiter, middleware.ClientIP)

	mux.HandleFunc("/api/health", middleware.Chain(h.Health, middleware.LogRequest))
	mux.HandleFunc("/api/deals", middleware.Chain(h.Deals, middleware.LogRequest, limit))
	mux.HandleFunc("/api/publish", middleware.Chain(h.Publish, middleware.LogRequest, limit))
}
