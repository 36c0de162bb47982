package handler

import (
	"errors"
	"strings"
)

const maxRequestIDLength = 64

// StatusRequest is the HTTP request body for POST /v1/status.
type StatusRequest struct {
	Document string `json:"document"`
	// RequestID is optional; the X-Request-Id of the call is used otherwise.
	RequestID string `json:"request_id,omitempty"`
}

// Validate implements httputil.Validatable.
func (r *StatusRequest) Validate() error {
	r.Document = strings.TrimSpace(r.Document)
	r.RequestID = strings.TrimSpace(r.RequestID)
	if r.Document == "" {
		return errors.New("document is required")
	}
	if len(r.RequestID) > maxRequestIDLength {
		return errors.New("request_id must be at most 64 characters")
	}
	return nil
}
