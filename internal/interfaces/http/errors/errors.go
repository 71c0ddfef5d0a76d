package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorBody carries a single form-level error message
type ErrorBody struct {
	Message string `json:"message"`
}

// ErrorResponse is the standard error response structure. Validation
// failures carry one form-level message, never per-field details.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// RespondValidationError surfaces a validation failure as a single
// form-level error
func RespondValidationError(w http.ResponseWriter, message string) {
	respond(w, http.StatusBadRequest, message)
}

// RespondNotFound sends a not found error response
func RespondNotFound(w http.ResponseWriter, message string) {
	respond(w, http.StatusNotFound, message)
}

// RespondInternalError sends an internal server error response
func RespondInternalError(w http.ResponseWriter) {
	respond(w, http.StatusInternalServerError, "internal server error")
}

func respond(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorBody{Message: message}})
}
