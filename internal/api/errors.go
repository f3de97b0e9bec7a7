package api

import (
	"encoding/json"
	"net/http"
)

// Result is the envelope every session operation returns: a boolean
// status flag plus a human-readable message. Failures never expose raw
// internals beyond the message string.
type Result struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeFailure writes a {status:false, message} response.
func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Result{Status: false, Message: message})
}

// writeBadRequest writes a 400 failure response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeFailure(w, http.StatusBadRequest, message)
}

// writeNotFound writes a 404 failure response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeFailure(w, http.StatusNotFound, message)
}

// writeInternalError writes a 500 failure response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeFailure(w, http.StatusInternalServerError, message)
}
