// Package sentinel holds infrastructure-level error facts shared across
// layers. Callers wrap them and test with errors.Is.
package sentinel

import "errors"

var (
	// ErrConflict: the resource is already claimed by another caller.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable: a dependency is shut down or temporarily paused.
	ErrUnavailable = errors.New("unavailable")
)
