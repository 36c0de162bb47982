package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the normalized failure taxonomy for document queries.
//
// The numeric values are fixed and independent of any remote or historical
// numbering.
type ErrorKind int

const (
	// ErrorPoolExhausted indicates no browser session is available, or the
	// request id already has a query in flight. Retryable after backoff.
	ErrorPoolExhausted ErrorKind = iota + 1

	// ErrorAutomationFailure indicates the scripted page interaction failed,
	// e.g. the page marker or token never appeared.
	ErrorAutomationFailure

	// ErrorTransportFailure indicates a non-2xx response or a network failure
	// reaching the target site.
	ErrorTransportFailure

	// ErrorRemoteRejected indicates the target site's own logic rejected the
	// input, e.g. no such document.
	ErrorRemoteRejected

	// ErrorTimeout indicates the target site did not answer in time.
	ErrorTimeout
)

var errorKindNames = map[ErrorKind]string{
	ErrorPoolExhausted:     "pool_exhausted",
	ErrorAutomationFailure: "automation_failure",
	ErrorTransportFailure:  "transport_failure",
	ErrorRemoteRejected:    "remote_rejected",
	ErrorTimeout:           "timeout",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("error_kind(%d)", int(k))
}

// Retryable reports whether a caller may usefully retry after this kind.
func (k ErrorKind) Retryable() bool {
	return k == ErrorPoolExhausted || k == ErrorTimeout || k == ErrorTransportFailure
}

// QueryError is the only error shape delivered to a result sink.
type QueryError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewQueryError creates a query error without an underlying cause.
func NewQueryError(kind ErrorKind, message string) *QueryError {
	return &QueryError{Kind: kind, Message: message}
}

// WrapQueryError creates a query error that keeps err as its cause.
func WrapQueryError(kind ErrorKind, message string, err error) *QueryError {
	return &QueryError{Kind: kind, Message: message, Err: err}
}

// Error implements the error interface
func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap supports error unwrapping
func (e *QueryError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the query.
func (e *QueryError) Retryable() bool {
	return e.Kind.Retryable()
}

// AsQueryError coerces any error into a QueryError. A QueryError anywhere in
// the chain is returned as is; anything else becomes an automation failure
// that keeps the original message. Returns nil for a nil error.
func AsQueryError(err error) *QueryError {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe
	}
	return WrapQueryError(ErrorAutomationFailure, err.Error(), err)
}

// KindOf extracts the error kind, defaulting to automation failure.
// Returns zero for a nil error.
func KindOf(err error) ErrorKind {
	if qe := AsQueryError(err); qe != nil {
		return qe.Kind
	}
	return 0
}
