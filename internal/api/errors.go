package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/xcomfort-core/internal/bridges/xcomfort"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeNotReady     = "not_ready"
	ErrCodeBridgeFailed = "bridge_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeNotReady writes a 503 error response for requests made before the
// first snapshot.
func writeNotReady(w http.ResponseWriter) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeNotReady, "bridge snapshot not loaded")
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeBridgeError maps a bridge command error onto an HTTP error response.
func writeBridgeError(w http.ResponseWriter, err error) {
	switch xcomfort.ErrorCode(err) {
	case xcomfort.ErrCodeNotFound:
		writeNotFound(w, err.Error())
	case xcomfort.ErrCodeInvalidCommand, xcomfort.ErrCodeInvalidValue:
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case xcomfort.ErrCodeRefused:
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case xcomfort.ErrCodeNotReady:
		writeNotReady(w)
	default:
		writeError(w, http.StatusBadGateway, ErrCodeBridgeFailed, err.Error())
	}
}
