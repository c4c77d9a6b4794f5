package graph

import (
	"fmt"
	"slices"
	"time"
)

// TakeSnapshot projects the state into a Snapshot stamped with the current
// time. The caller appends it to StateHistory; snapshots embed Core, never
// State, so the history cannot recurse.
func (s State) TakeSnapshot() Snapshot {
	return Snapshot{
		Timestamp: time.Now().UTC(),
		State:     s.Core.Clone(),
	}
}

// Record appends a snapshot of the current state to a copy of the state
// and returns it. Snapshots are appended strictly in transition order.
func (s State) Record() State {
	next := s.Clone()
	next.StateHistory = append(next.StateHistory, s.TakeSnapshot())
	return next
}

// Replay reconstructs the state as it was at the given point in history.
// It is a pure read: the input history is never mutated, and replaying the
// final index reproduces the final state exactly.
func Replay(history []Snapshot, index int) (State, error) {
	if index < 0 || index >= len(history) {
		return State{}, fmt.Errorf("replay index %d out of range [0,%d)", index, len(history))
	}

	return State{
		Core:         history[index].State.Clone(),
		StateHistory: slices.Clone(history[:index+1]),
	}, nil
}
