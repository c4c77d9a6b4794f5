package runs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JaimeStill/loom/internal/engine"
	"github.com/JaimeStill/loom/internal/graph"
	"github.com/JaimeStill/loom/internal/runs"
)

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", runs.ErrNotFound, http.StatusNotFound},
		{"duplicate", runs.ErrDuplicate, http.StatusConflict},
		{"terminal", runs.ErrTerminal, http.StatusConflict},
		{"wrapped not found", fmt.Errorf("find run: %w", runs.ErrNotFound), http.StatusNotFound},
		{"invalid state", graph.ErrInvalidState, http.StatusBadRequest},
		{"stale resume", engine.ErrStaleResume, http.StatusConflict},
		{"not suspended", engine.ErrNotSuspended, http.StatusConflict},
		{"invalid decision", engine.ErrInvalidDecision, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := runs.MapHTTPStatus(tc.err); got != tc.want {
				t.Errorf("status: got %d, want %d", got, tc.want)
			}
		})
	}
}
