package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrInvalidJSON is returned when the request body is not valid JSON
	ErrInvalidJSON = errors.New("invalid JSON")
	// ErrBodyTooLarge is returned when the body exceeds the MaxBytesMiddleware limit
	ErrBodyTooLarge = errors.New("request body too large")
)

// ParseJSON decodes the request body into dest. An empty body leaves dest
// untouched. Trailing data after the JSON value is rejected.
func ParseJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes the matching error response on
// failure: 413 for an oversized body, 400 invalid_json otherwise.
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	err := ParseJSON(r, dest)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrBodyTooLarge):
		WritePayloadTooLarge(w)
	default:
		WriteBadRequest(w, ErrCodeInvalidJSON)
	}
	return false
}
