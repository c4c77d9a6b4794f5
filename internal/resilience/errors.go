package resilience

import (
	"errors"
	"net/http"
)

var (
	// ErrTimeout indicates a dependency call exceeded its policy deadline.
	ErrTimeout = errors.New("dependency call timed out")
	// ErrCircuitOpen indicates the dependency circuit is open and calls
	// are being rejected without execution.
	ErrCircuitOpen = errors.New("dependency circuit open")
	// ErrUnknownPolicy indicates no policy is registered for the
	// requested dependency name.
	ErrUnknownPolicy = errors.New("unknown dependency policy")
)

// MapHTTPStatus maps resilience errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrTimeout) {
		return http.StatusGatewayTimeout
	}
	if errors.Is(err, ErrCircuitOpen) {
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, ErrUnknownPolicy) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
