package models

import (
	"encoding/json"
	"strings"
	"time"
)

// StatusDateLayout is the remote's day.month.year status date format.
const StatusDateLayout = "02.01.2006"

// StatusCode is the remote's internal document status code. Codes outside the
// known set are carried through verbatim.
type StatusCode int

const (
	StatusShipped   StatusCode = 21 // sent to the personalization center
	StatusInTransit StatusCode = 23 // on the way to the issuing office
	StatusReady     StatusCode = 24 // ready for pickup
)

// IsKnown reports whether the code is one of the documented statuses.
func (c StatusCode) IsKnown() bool {
	switch c {
	case StatusShipped, StatusInTransit, StatusReady:
		return true
	}
	return false
}

// DocumentStatus is the outcome of a successful status lookup.
type DocumentStatus struct {
	// Code is more reliable than Message: the remote message sometimes
	// contradicts the code.
	Code    StatusCode
	Message string

	// UpdatedAt is the zero time when RawStatusDate could not be parsed.
	UpdatedAt     time.Time
	RawStatusDate string

	// Request is the reference the status was looked up for.
	Request DocumentReference
}

// statusInfo is the "0" member of the remote response.
type statusInfo struct {
	StatusDate string     `json:"statusDate"`
	Status     StatusCode `json:"status"`
	ErrorCode  int        `json:"errorCode"`
}

// checkerResponse is the JSON body returned by the remote status form.
type checkerResponse struct {
	Meta          *statusInfo `json:"0"`
	SendStatusMsg string      `json:"send_status_msg"`
	Msg           string      `json:"msg,omitempty"`
}

// DecodeStatus turns a raw remote payload into a DocumentStatus for ref.
// A payload whose error code is greater than zero is a remote rejection;
// a payload that cannot be decoded is an automation failure.
func DecodeStatus(ref DocumentReference, payload []byte) (DocumentStatus, error) {
	var rsp checkerResponse
	if err := json.Unmarshal(payload, &rsp); err != nil {
		return DocumentStatus{}, WrapQueryError(ErrorAutomationFailure, "malformed status response", err)
	}
	if rsp.Meta == nil {
		return DocumentStatus{}, NewQueryError(ErrorAutomationFailure, "status response has no status block")
	}

	if rsp.Meta.ErrorCode > 0 {
		msg := rsp.SendStatusMsg
		if msg == "" {
			msg = rsp.Msg
		}
		return DocumentStatus{}, NewQueryError(ErrorRemoteRejected, msg)
	}

	raw := strings.TrimSpace(rsp.Meta.StatusDate)
	status := DocumentStatus{
		Code:          rsp.Meta.Status,
		Message:       rsp.SendStatusMsg,
		RawStatusDate: raw,
		Request:       ref,
	}
	if updatedAt, err := time.Parse(StatusDateLayout, raw); err == nil {
		status.UpdatedAt = updatedAt
	}
	return status, nil
}
