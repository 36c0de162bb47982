package handler

import (
	"time"

	"docstatus/internal/checker/models"
)

// StatusResponse is the HTTP response for a resolved status.
type StatusResponse struct {
	RequestID  string `json:"request_id"`
	Document   string `json:"document"`
	Kind       string `json:"kind"`
	Code       int    `json:"code"`
	Label      string `json:"label"`
	Message    string `json:"message"`
	StatusDate string `json:"status_date"`
	UpdatedAt  string `json:"updated_at,omitempty"`
	Age        string `json:"age,omitempty"`
	Summary    string `json:"summary"`
}

// PingResponse is the liveness body.
type PingResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

// FromStatus converts a DocumentStatus into its HTTP representation.
func FromStatus(reqID models.RequestID, now time.Time, status models.DocumentStatus) *StatusResponse {
	rsp := &StatusResponse{
		RequestID:  string(reqID),
		Document:   status.Request.String(),
		Kind:       string(status.Request.Kind),
		Code:       int(status.Code),
		Label:      StatusLabel(status.Code),
		Message:    status.Message,
		StatusDate: StatusDate(status),
		Summary:    Summary(now, status),
	}
	if !status.UpdatedAt.IsZero() {
		rsp.UpdatedAt = status.UpdatedAt.Format(time.DateOnly)
		rsp.Age = RelativeDays(now, status.UpdatedAt)
	}
	return rsp
}
