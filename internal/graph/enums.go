package graph

import "slices"

// StoryState represents the lifecycle phase of a story. The field is
// optional on Core; an empty value means the phase is tracked elsewhere.
type StoryState string

// Valid story lifecycle phases.
const (
	StoryDrafting StoryState = "drafting"
	StoryInReview StoryState = "in-review"
	StoryBlocked  StoryState = "blocked"
	StoryDone     StoryState = "done"
)

var storyStates = []StoryState{
	StoryDrafting,
	StoryInReview,
	StoryBlocked,
	StoryDone,
}

// Valid reports whether s is a recognized story state. The empty value
// is not valid; callers treat absence separately.
func (s StoryState) Valid() bool {
	return slices.Contains(storyStates, s)
}

// ArtifactType identifies the kind of artifact a stage produces.
type ArtifactType string

// Artifact kinds recorded in ArtifactPaths.
const (
	ArtifactStoryDoc  ArtifactType = "story_doc"
	ArtifactPMGaps    ArtifactType = "pm_gaps"
	ArtifactUXGaps    ArtifactType = "ux_gaps"
	ArtifactQAGaps    ArtifactType = "qa_gaps"
	ArtifactAttackLog ArtifactType = "attack_log"
)

// RoutingFlag names a control-flow signal the workflow engine reads to
// pick its next transition.
type RoutingFlag string

// Routing flags with engine-level semantics. Additional flags may be set
// freely; only these three participate in the completion invariant.
const (
	FlagComplete RoutingFlag = "complete"
	FlagRetry    RoutingFlag = "retry"
	FlagBlocked  RoutingFlag = "blocked"
)

// GateType identifies a quality gate evaluated during a run.
type GateType string

// Gate types recorded in GateDecisions.
const (
	GateReadiness  GateType = "readiness"
	GateCommitment GateType = "commitment"
)

// GateDecision is the outcome recorded for an evaluated gate.
type GateDecision string

// Gate decision outcomes.
const (
	DecisionApprove  GateDecision = "approve"
	DecisionReject   GateDecision = "reject"
	DecisionEscalate GateDecision = "escalate"
)
