package graph

// Patch is a partial update folded into a state by Apply. Map fields are
// merged key-by-key; slice fields are appended; pointer fields overwrite
// only when non-nil. Stages never build patches themselves: they return
// results and the workflow engine folds them in.
type Patch struct {
	StoryState     *StoryState
	BlockedBy      *string
	ClearBlockedBy bool
	ArtifactPaths  map[ArtifactType]string
	RoutingFlags   map[RoutingFlag]bool
	EvidenceRefs   []EvidenceRef
	GateDecisions  map[GateType]GateDecision
	Errors         []NodeError
}

// Apply merges patch into a deep copy of the state, re-validates, and
// returns the new value. The receiver is never mutated; on validation
// failure the zero State and a *ValidationError are returned, leaving the
// caller's value untouched.
func (s State) Apply(patch Patch) (State, error) {
	next := s.Clone()

	if patch.StoryState != nil {
		next.StoryState = *patch.StoryState
	}
	if patch.ClearBlockedBy {
		next.BlockedBy = nil
	} else if patch.BlockedBy != nil {
		blocked := *patch.BlockedBy
		next.BlockedBy = &blocked
	}

	for kind, path := range patch.ArtifactPaths {
		next.ArtifactPaths[kind] = path
	}
	for flag, set := range patch.RoutingFlags {
		next.RoutingFlags[flag] = set
	}
	for gate, decision := range patch.GateDecisions {
		next.GateDecisions[gate] = decision
	}

	next.EvidenceRefs = append(next.EvidenceRefs, patch.EvidenceRefs...)
	next.Errors = append(next.Errors, patch.Errors...)

	if err := next.Validate(); err != nil {
		return State{}, err
	}
	return next, nil
}
