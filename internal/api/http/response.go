package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("Failed to encode response", "error", err)
		}
	}
}

// writeDomainError maps the domain error taxonomy onto HTTP status codes.
// Balance and availability violations are conflicts with current state, not
// malformed input, so they return 409.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, domain.ErrInvalidWindow):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "invalid_window"})
	case errors.Is(err, domain.ErrMalformedTransaction):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "malformed_transaction"})
	case errors.Is(err, domain.ErrInsufficientAvailability):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "insufficient_availability"})
	case errors.Is(err, domain.ErrOverReservation),
		errors.Is(err, domain.ErrOverIssue),
		errors.Is(err, domain.ErrOverReturn),
		errors.Is(err, domain.ErrOverCancel):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "balance_violation"})
	case errors.Is(err, domain.ErrInvalidState):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "invalid_state"})
	default:
		logger.Error("Unhandled service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: "bad_request"})
}
