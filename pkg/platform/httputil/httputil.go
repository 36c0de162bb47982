// Package httputil holds the JSON response helpers shared by HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Retryable        bool   `json:"retryable"`
}

// Validatable request bodies normalize and check themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorResponse.
func WriteError(w http.ResponseWriter, status int, body ErrorResponse) {
	WriteJSON(w, status, body)
}

// DecodeJSON reads at most maxBytes of JSON into a new T and validates it.
func DecodeJSON[T any, PT interface {
	*T
	Validatable
}](r *http.Request, maxBytes int64) (*T, error) {
	body := http.MaxBytesReader(nil, r.Body, maxBytes)
	defer body.Close()

	var v T
	dec := json.NewDecoder(body)
	if err := dec.Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, fmt.Errorf("request body exceeds %d bytes", maxBytes)
		case errors.Is(err, io.EOF):
			return nil, errors.New("request body is required")
		default:
			return nil, fmt.Errorf("invalid json: %w", err)
		}
	}
	if err := PT(&v).Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}
