// ABOUTME: On-demand digest endpoints for a named destination group
// ABOUTME: GET returns the rendered text; POST delivers it via the notifier

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/farescout/farescout/services"
)

func writeError(w http.ResponseWriter, status int, msg, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   msg,
		"details": details,
		"code":    status,
	})
}

// Deals renders the digest for ?group= and returns it as plain text.
func (h *Handler) Deals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	group, ok := services.GroupByName(h.cfg, r.URL.Query().Get("group"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown destination group", r.URL.Query().Get("group"))
		return
	}

	msg, err := h.flights.GroupDeals(r.Context(), group)
	if err != nil {
		slog.Error("Digest rendering failed", "group", group.Name, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to produce digest", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(msg))
}

// Publish renders the digest for ?group= and delivers it to the channel.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	if h.notifier == nil {
		writeError(w, http.StatusServiceUnavailable, "No webhook configured", "")
		return
	}

	group, ok := services.GroupByName(h.cfg, r.URL.Query().Get("group"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown destination group", r.URL.Query().Get("group"))
		return
	}

	msg, err := h.flights.GroupDeals(r.Context(), group)
	if err != nil {
		slog.Error("Digest rendering failed", "group", group.Name, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to produce digest", err.Error())
		return
	}

	if err := h.notifier.Send(r.Context(), msg); err != nil {
		slog.Error("Digest delivery failed", "group", group.Name, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to deliver digest", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "delivered", "group": group.Name})
}
