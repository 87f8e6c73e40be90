package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"trip-booking-system/internal/inventory"

	"github.com/sirupsen/logrus"
)

// ErrorResponse is the error payload of every endpoint
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// respondDomainError maps service errors to HTTP responses. Unknown errors are
// logged and hidden behind a generic 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, err error) {
	switch {
	case errors.Is(err, inventory.ErrSoldOut):
		respondError(w, r, http.StatusConflict, "sold_out", err.Error())
	case errors.Is(err, inventory.ErrDepartureClosed):
		respondError(w, r, http.StatusConflict, "departure_closed", err.Error())
	case inventory.IsNotFound(err):
		respondError(w, r, http.StatusNotFound, "not_found", err.Error())
	case inventory.IsForbidden(err):
		respondError(w, r, http.StatusForbidden, "forbidden", err.Error())
	case inventory.IsPrecondition(err):
		respondError(w, r, http.StatusBadRequest, "precondition_failed", err.Error())
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": RequestIDFromContext(r.Context()),
			"path":       r.URL.Path,
		}).Error("Request failed")
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
