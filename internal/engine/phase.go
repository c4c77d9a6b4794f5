package engine

import "fmt"

// Phase is a step in the workflow lifecycle.
type Phase string

// Workflow phases in execution order. Suspended is entered from the
// gate when a human decision is required; Completed and Failed are
// terminal.
const (
	PhaseSetup      Phase = "setup"
	PhaseFanout     Phase = "fanout"
	PhaseCritique   Phase = "critique"
	PhaseGate       Phase = "gate"
	PhaseSuspended  Phase = "suspended"
	PhaseSynthesize Phase = "synthesize"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

var validTransitions = map[Phase]map[Phase]bool{
	PhaseSetup: {
		PhaseFanout: true,
		PhaseFailed: true,
	},
	PhaseFanout: {
		PhaseCritique: true,
		PhaseFailed:   true,
	},
	PhaseCritique: {
		PhaseCritique: true,
		PhaseGate:     true,
		PhaseFailed:   true,
	},
	PhaseGate: {
		PhaseSynthesize: true,
		PhaseSuspended:  true,
		PhaseFailed:     true,
	},
	PhaseSuspended: {
		PhaseSuspended:  true,
		PhaseCritique:   true,
		PhaseSynthesize: true,
		PhaseFailed:     true,
	},
	PhaseSynthesize: {
		PhaseCompleted: true,
		PhaseFailed:    true,
	},
	PhaseCompleted: {},
	PhaseFailed:    {},
}

// Terminal reports whether the phase admits no further transitions.
func (p Phase) Terminal() bool {
	return len(validTransitions[p]) == 0
}

// CanTransition reports whether moving from p to next is allowed.
func (p Phase) CanTransition(next Phase) bool {
	return validTransitions[p][next]
}

func (e *Engine) transition(from, to Phase) (Phase, error) {
	if !from.CanTransition(to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	e.logger.Debug("phase transition", "from", from, "to", to)
	return to, nil
}
