package utils

import (
	"encoding/json"
	"net/http"

	"github.com/traveldiary/backend/internal/apperr"
	"github.com/traveldiary/backend/internal/dto"
)

// WriteJSONResponse writes a JSON response to the HTTP response writer
func WriteJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes a JSON error body with the given status
func WriteErrorResponse(w http.ResponseWriter, status int, errMsg, message string) {
	WriteJSONResponse(w, status, dto.ErrorResponse{Error: errMsg, Message: message})
}

// statusOf maps error kinds to HTTP status codes in one place.
func statusOf(kind apperr.Kind) (int, string) {
	switch kind {
	case apperr.Invalid:
		return http.StatusBadRequest, "Validation error"
	case apperr.Unauthorized:
		return http.StatusUnauthorized, "Unauthorized"
	case apperr.Forbidden:
		return http.StatusForbidden, "Forbidden"
	case apperr.NotFound:
		return http.StatusNotFound, "Not Found"
	case apperr.Expired:
		return http.StatusBadRequest, "Expired"
	case apperr.Gone:
		return http.StatusGone, "Gone"
	case apperr.AlreadyUsed:
		return http.StatusConflict, "Already used"
	case apperr.Conflict:
		return http.StatusConflict, "Conflict"
	}
	return http.StatusInternalServerError, "Internal error"
}

// WriteAppError translates a service error into an HTTP error response.
func WriteAppError(w http.ResponseWriter, err error) {
	status, label := statusOf(apperr.KindOf(err))
	WriteErrorResponse(w, status, label, apperr.MessageOf(err))
}

// DecodeJSONRequest decodes a JSON request body into dst, writing a 400
// response on failure. Callers just return when an error is reported.
func DecodeJSONRequest(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return err
	}
	return nil
}
