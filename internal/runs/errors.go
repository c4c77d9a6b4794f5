package runs

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/loom/internal/engine"
	"github.com/JaimeStill/loom/internal/graph"
)

// Domain errors for run operations.
var (
	ErrNotFound  = errors.New("run not found")
	ErrDuplicate = errors.New("run already exists")
	ErrTerminal  = errors.New("run already reached a terminal phase")
)

// MapHTTPStatus maps run domain errors to appropriate HTTP status codes,
// deferring to the engine and graph mappings for their error families.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrTerminal) {
		return http.StatusConflict
	}
	if errors.Is(err, graph.ErrInvalidState) {
		return http.StatusBadRequest
	}
	return engine.MapHTTPStatus(err)
}
