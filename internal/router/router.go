package router

import (
	"net/http"

	"greenalgeria-api/internal/handlers"
)

// Setup configures and returns the HTTP router with all application routes.
func Setup(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", h.HandleHealth)

	// Contribution endpoints
	mux.HandleFunc("/api/contributions", h.HandleContributions)
	mux.HandleFunc("/api/contributions/", h.HandleContributionByID)

	// Photo upload
	mux.HandleFunc("/api/upload", h.HandleUpload)

	return mux
}
