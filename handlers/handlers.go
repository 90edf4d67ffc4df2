// ABOUTME: HTTP handlers exposing the deal pipeline to the bot/scheduler
// ABOUTME: Provides health check, on-demand digest, and publish endpoints

package handlers

import (
	"github.com/farescout/farescout/config"
	"github.com/farescout/farescout/services"
)

type Handler struct {
	cfg      *config.Config
	flights  *services.FlightsService
	notifier services.Notifier
}

// NewHandler wires the handler with its collaborators. notifier may be nil
// when no webhook is configured; publish then returns 503.
func NewHandler(cfg *config.Config, flights *services.FlightsService, notifier services.Notifier) *Handler {
	return &Handler{
		cfg:      cfg,
		flights:  flights,
		notifier: notifier,
	}
}
