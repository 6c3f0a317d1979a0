package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "greenalgeria-api/internal/errors"
	"greenalgeria-api/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Contributions] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.CreateResponse{Success: false, Error: msg})
}

// HandleContributions serves the collection endpoint: POST creates a
// contribution, GET lists them newest-first.
func (h *Handler) HandleContributions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createContribution(w, r)
	case http.MethodGet:
		h.listContributions(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Accepts a JSON contribution body. The only rejected payload shape is an
// empty one; field-level validation is the submitting client's job. On
// success returns the store-assigned identifier.
func (h *Handler) createContribution(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !h.contributions.Ready() {
		writeError(w, http.StatusServiceUnavailable, "database not initialized")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	// Empty body and `{}` are the only rejected shapes.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "empty payload")
		return
	}

	var c models.Contribution
	if err := json.Unmarshal(body, &c); err != nil {
		writeError(w, http.StatusBadRequest, "malformed contribution: "+err.Error())
		return
	}

	// The store assigns the identifier; a client-side provisional id is
	// never trusted.
	c.ID = ""
	c.UpdatedAt = 0

	insertedID, err := h.contributions.Create(r.Context(), &c)
	if err != nil {
		log.Printf("[Contributions] Failed to insert: %v", err)
		if errors.Is(err, apperrors.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "database not initialized")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("[Contributions] Inserted %s (%s, %d trees) in %v", insertedID, c.Type, c.Quantite, time.Since(start))

	writeJSON(w, http.StatusOK, models.CreateResponse{Success: true, InsertedID: insertedID})
}

// Lists contributions ordered by createdAt descending. The limit query
// parameter defaults to 100 and is capped at 500.
func (h *Handler) listContributions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !h.contributions.Ready() {
		writeError(w, http.StatusServiceUnavailable, "database not initialized")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	contributions, err := h.contributions.List(r.Context(), limit)
	if err != nil {
		log.Printf("[Contributions] Failed to list: %v", err)
		if errors.Is(err, apperrors.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "database not initialized")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if contributions == nil {
		contributions = []*models.Contribution{}
	}

	log.Printf("[Contributions] Served %d contributions (limit=%d) in %v", len(contributions), limit, time.Since(start))

	writeJSON(w, http.StatusOK, contributions)
}

// HandleContributionByID serves PUT (edit) and DELETE on a single
// contribution, so local mutations can propagate to the store instead of
// diverging forever.
func (h *Handler) HandleContributionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/contributions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid contribution id")
		return
	}

	if !h.contributions.Ready() {
		writeError(w, http.StatusServiceUnavailable, "database not initialized")
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.updateContribution(w, r, id)
	case http.MethodDelete:
		h.deleteContribution(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) updateContribution(w http.ResponseWriter, r *http.Request, id string) {
	var patch models.ContributionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "malformed patch: "+err.Error())
		return
	}

	updated, err := h.contributions.Update(r.Context(), id, &patch)
	if err != nil {
		log.Printf("[Contributions] Failed to update %s: %v", id, err)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			writeError(w, http.StatusNotFound, "contribution not found")
		case errors.Is(err, apperrors.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, "database not initialized")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteContribution(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.contributions.Delete(r.Context(), id); err != nil {
		log.Printf("[Contributions] Failed to delete %s: %v", id, err)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			writeError(w, http.StatusNotFound, "contribution not found")
		case errors.Is(err, apperrors.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, "database not initialized")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, models.CreateResponse{Success: true})
}
