// ABOUTME: Health endpoint reporting configured collaborators
// ABOUTME: Never calls upstream APIs

package handlers

import (
	"encoding/json"
	"net/http"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"market":  h.cfg.Market,
		"origin":  h.cfg.Origin,
		"webhook": h.notifier != nil,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
