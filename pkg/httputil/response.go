// Package httputil provides HTTP handler utilities for consistent error handling,
// JSON encoding/decoding, and the middleware chain applied to every response.
package httputil

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in the "error" field of JSON error bodies
const (
	ErrCodeInvalidJSON      = "invalid_json"
	ErrCodeInvalidName      = "invalid_name"
	ErrCodePayloadTooLarge  = "payload_too_large"
	ErrCodeInternal         = "internal_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "rate_limited"
)

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorMessage writes a JSON error response with the given error code
func WriteErrorMessage(w http.ResponseWriter, status int, code string) {
	_ = WriteJSON(w, status, ErrorResponse{Error: code})
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, code string) {
	WriteErrorMessage(w, http.StatusBadRequest, code)
}

// WriteNotFound writes a not found error (404)
func WriteNotFound(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusNotFound, ErrCodeNotFound)
}

// WriteMethodNotAllowed writes a method not allowed error (405)
func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed)
}

// WritePayloadTooLarge writes a request entity too large error (413)
func WritePayloadTooLarge(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge)
}

// WriteTooManyRequests writes a rate limit error (429)
func WriteTooManyRequests(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusTooManyRequests, ErrCodeRateLimited)
}

// WriteInternalError writes a generic internal server error (500). The
// cause is never sent to the client; callers log it.
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, ErrCodeInternal)
}

// WriteCreated writes a successful creation response (201 Created) with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
