// Package handlers implements the JSON HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"chatdoc/internal/auth"
	"chatdoc/internal/service"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

// writeServiceError maps the pipeline error taxonomy onto HTTP status
// codes: contract violations 400, missing resources 404, append races
// 409, provider failures 502, everything else 500.
func writeServiceError(w http.ResponseWriter, err error, defaultMsg string) {
	var providerErr *service.ProviderError
	var extractionErr *service.ExtractionError

	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "Concurrent update, please retry")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.As(err, &providerErr):
		writeError(w, http.StatusBadGateway, "External service error")
	case errors.As(err, &extractionErr):
		writeError(w, http.StatusBadRequest, extractionErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}
