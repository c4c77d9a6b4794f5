package engine

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidTransition indicates a phase change the lifecycle does
	// not permit.
	ErrInvalidTransition = errors.New("invalid phase transition")
	// ErrNotSuspended indicates a resume attempt against a run that is
	// not awaiting a decision.
	ErrNotSuspended = errors.New("run is not suspended")
	// ErrStaleResume indicates the resume request was issued against a
	// state that has since changed.
	ErrStaleResume = errors.New("resume fingerprint does not match suspended state")
	// ErrInvalidDecision indicates an unrecognized reviewer decision.
	ErrInvalidDecision = errors.New("invalid reviewer decision")
	// ErrFanoutFailed indicates every fanout branch failed, leaving
	// nothing to critique.
	ErrFanoutFailed = errors.New("all fanout branches failed")
)

// MapHTTPStatus maps engine errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotSuspended):
		return http.StatusConflict
	case errors.Is(err, ErrStaleResume):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidDecision):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
