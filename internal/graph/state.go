// Package graph defines the validated state model for a single pipeline
// run and its append-only snapshot history. State values are immutable:
// every mutation flows through Apply, which deep-copies, merges a patch,
// and re-validates before returning a new value, so concurrent readers of
// a snapshot always observe a consistent state.
package graph

import (
	"maps"
	"slices"
	"time"
)

// SchemaVersion is stamped on every newly created state and carried
// forward for migration of persisted runs.
const SchemaVersion = "1.0.0"

// Core holds one run's state minus its snapshot history. Snapshots embed
// Core rather than State so the history never references itself.
type Core struct {
	SchemaVersion string                    `json:"schema_version"`
	EpicPrefix    string                    `json:"epic_prefix"`
	StoryID       string                    `json:"story_id"`
	StoryState    StoryState                `json:"story_state,omitempty"`
	BlockedBy     *string                   `json:"blocked_by,omitempty"`
	ArtifactPaths map[ArtifactType]string   `json:"artifact_paths"`
	RoutingFlags  map[RoutingFlag]bool      `json:"routing_flags"`
	EvidenceRefs  []EvidenceRef             `json:"evidence_refs"`
	GateDecisions map[GateType]GateDecision `json:"gate_decisions"`
	Errors        []NodeError               `json:"errors"`
}

// State is the full run state: Core plus the ordered snapshot history.
type State struct {
	Core
	StateHistory []Snapshot `json:"state_history"`
}

// Snapshot captures the state at a point in time, excluding history.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	State     Core      `json:"state"`
}

// New creates a validated State for a run. Collections are initialized
// empty so consumers never branch on nil.
func New(epicPrefix, storyID string) (State, error) {
	s := State{
		Core: Core{
			SchemaVersion: SchemaVersion,
			EpicPrefix:    epicPrefix,
			StoryID:       storyID,
			ArtifactPaths: make(map[ArtifactType]string),
			RoutingFlags:  make(map[RoutingFlag]bool),
			EvidenceRefs:  []EvidenceRef{},
			GateDecisions: make(map[GateType]GateDecision),
			Errors:        []NodeError{},
		},
		StateHistory: []Snapshot{},
	}

	if err := s.Validate(); err != nil {
		return State{}, err
	}
	return s, nil
}

// Clone returns a deep copy of the core state.
func (c Core) Clone() Core {
	out := c
	out.ArtifactPaths = maps.Clone(c.ArtifactPaths)
	out.RoutingFlags = maps.Clone(c.RoutingFlags)
	out.GateDecisions = maps.Clone(c.GateDecisions)
	out.EvidenceRefs = slices.Clone(c.EvidenceRefs)
	out.Errors = slices.Clone(c.Errors)
	if c.BlockedBy != nil {
		blocked := *c.BlockedBy
		out.BlockedBy = &blocked
	}
	return out
}

// Clone returns a deep copy of the state, including its history.
func (s State) Clone() State {
	return State{
		Core:         s.Core.Clone(),
		StateHistory: slices.Clone(s.StateHistory),
	}
}

// Complete reports whether the run has finished successfully.
func (c Core) Complete() bool {
	return c.RoutingFlags[FlagComplete]
}

// Blocked reports whether the run is blocked.
func (c Core) Blocked() bool {
	return c.RoutingFlags[FlagBlocked]
}
