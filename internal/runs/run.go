// Package runs implements the workflow run domain. It provides types,
// data access, and business logic for starting runs, resuming suspended
// runs with reviewer decisions, and querying run state and history.
package runs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/loom/internal/engine"
	"github.com/JaimeStill/loom/internal/graph"
)

// Run represents a persisted workflow run. It mirrors the runs table
// schema; State and Outputs are stored as JSONB columns.
type Run struct {
	ID          uuid.UUID                  `json:"id"`
	EpicPrefix  string                     `json:"epic_prefix"`
	StoryID     string                     `json:"story_id"`
	Phase       engine.Phase               `json:"phase"`
	Score       int                        `json:"score"`
	Fingerprint *string                    `json:"fingerprint,omitempty"`
	State       graph.State                `json:"state"`
	Outputs     map[string]json.RawMessage `json:"outputs,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

// Suspended reports whether the run awaits a reviewer decision.
func (r *Run) Suspended() bool {
	return r.Phase == engine.PhaseSuspended
}

// StartCommand carries the data needed to start a run.
type StartCommand struct {
	EpicPrefix string `json:"epic_prefix"`
	StoryID    string `json:"story_id"`
}

// ResumeCommand carries a reviewer decision for a suspended run. The
// fingerprint must match the one returned when the run suspended; a
// mismatch means the run state has changed since the reviewer saw it.
type ResumeCommand struct {
	Decision    engine.Decision `json:"decision"`
	Fingerprint string          `json:"fingerprint"`
}
