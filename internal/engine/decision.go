package engine

import "slices"

// Decision is a human reviewer's verdict on a suspended run.
type Decision string

// Reviewer decisions. Approve proceeds to synthesis, Revise re-enters
// the critique loop, Reject terminates the run, and Defer leaves it
// suspended for a later reviewer.
const (
	DecisionApprove Decision = "approve"
	DecisionRevise  Decision = "revise"
	DecisionReject  Decision = "reject"
	DecisionDefer   Decision = "defer"
)

var decisions = []Decision{
	DecisionApprove,
	DecisionRevise,
	DecisionReject,
	DecisionDefer,
}

// Valid reports whether d is a recognized reviewer decision.
func (d Decision) Valid() bool {
	return slices.Contains(decisions, d)
}
