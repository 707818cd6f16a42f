/**
 * @description
 * This file contains the HTTP handler functions for the account intake
 * service. Handlers are responsible for parsing incoming requests, calling
 * the pipeline service, and writing the HTTP response.
 */
package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/salesbridge/account-service/internal/app"
	"github.com/salesbridge/account-service/internal/domain"
)

// Handler holds the pipeline service that handlers will interact with.
type Handler struct {
	service *app.Service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// handleCreateAccount handles POST /accounts. The optional `accountName`
// query parameter is a display label for the published event only; it is
// deliberately independent of the body field with the same name. The
// optional Idempotency-Key header is forwarded to the record system, with a
// generated UUID as fallback.
func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var payload domain.CreateAccountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		ve := domain.MalformedPayloadError("request body must be valid JSON")
		resp := app.InvalidInputResponse(ve.Details)
		respondWithJSON(w, resp.StatusCode, resp.Body)
		return
	}

	queryAccountName := r.URL.Query().Get("accountName")

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	resp := h.service.CreateAccount(r.Context(), payload, queryAccountName, idempotencyKey)
	respondWithJSON(w, resp.StatusCode, resp.Body)
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
