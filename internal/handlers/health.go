package handlers

import (
	"encoding/json"
	"log"
	"net/http"
)

// HandleHealth responds to health check requests. Reports degraded when
// the contribution store is not reachable.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if h.contributions == nil || !h.contributions.Ready() {
		status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": status,
	}); err != nil {
		log.Printf("[Health] Failed to encode response: %v", err)
	}
}
