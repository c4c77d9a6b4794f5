package graph_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/loom/internal/graph"
)

func TestNewInitializesCollections(t *testing.T) {
	st, err := graph.New("AUTH", "AUTH-42")
	if err != nil {
		t.Fatalf("new state: %v", err)
	}

	if st.ArtifactPaths == nil || st.RoutingFlags == nil || st.GateDecisions == nil {
		t.Error("collections should be initialized")
	}
	if st.EvidenceRefs == nil || st.Errors == nil || st.StateHistory == nil {
		t.Error("slices should be initialized")
	}
	if st.SchemaVersion != graph.SchemaVersion {
		t.Errorf("schema version: got %s, want %s", st.SchemaVersion, graph.SchemaVersion)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name       string
		epicPrefix string
		storyID    string
		wantErr    bool
	}{
		{"valid", "AUTH", "AUTH-42", false},
		{"valid case-insensitive prefix", "auth", "AUTH-7", false},
		{"missing prefix", "", "AUTH-42", true},
		{"missing story id", "AUTH", "", true},
		{"malformed story id", "AUTH", "AUTH42", true},
		{"non-numeric suffix", "AUTH", "AUTH-x", true},
		{"prefix mismatch", "AUTH", "BILL-42", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := graph.New(tc.epicPrefix, tc.storyID)
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tc.wantErr && err != nil && !errors.Is(err, graph.ErrInvalidState) {
				t.Errorf("error should wrap ErrInvalidState, got %v", err)
			}
		})
	}
}

func TestApplyFlagConflicts(t *testing.T) {
	st, err := graph.New("AUTH", "AUTH-1")
	if err != nil {
		t.Fatalf("new state: %v", err)
	}

	_, err = st.Apply(graph.Patch{
		RoutingFlags: map[graph.RoutingFlag]bool{
			graph.FlagComplete: true,
			graph.FlagRetry:    true,
		},
	})
	if !errors.Is(err, graph.ErrInvalidState) {
		t.Errorf("complete+retry should be invalid, got %v", err)
	}

	_, err = st.Apply(graph.Patch{
		RoutingFlags: map[graph.RoutingFlag]bool{
			graph.FlagComplete: true,
			graph.FlagBlocked:  true,
		},
	})
	if !errors.Is(err, graph.ErrInvalidState) {
		t.Errorf("complete+blocked should be invalid, got %v", err)
	}
}

func TestApplyDoesNotMutateReceiver(t *testing.T) {
	st, err := graph.New("AUTH", "AUTH-1")
	if err != nil {
		t.Fatalf("new state: %v", err)
	}

	blocked := graph.StoryBlocked
	reason := "waiting on dependency"
	next, err := st.Apply(graph.Patch{
		StoryState:   &blocked,
		BlockedBy:    &reason,
		RoutingFlags: map[graph.RoutingFlag]bool{graph.FlagBlocked: true},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if st.StoryState == graph.StoryBlocked {
		t.Error("receiver story state mutated")
	}
	if st.BlockedBy != nil {
		t.Error("receiver blocked_by mutated")
	}
	if st.RoutingFlags[graph.FlagBlocked] {
		t.Error("receiver routing flags mutated")
	}

	if next.StoryState != graph.StoryBlocked || next.BlockedBy == nil {
		t.Error("patch not applied to result")
	}
}

func TestApplyClearBlockedBy(t *testing.T) {
	st, err := graph.New("AUTH", "AUTH-1")
	if err != nil {
		t.Fatalf("new state: %v", err)
	}

	reason := "blocked"
	st, err = st.Apply(graph.Patch{BlockedBy: &reason})
	if err != nil {
		t.Fatalf("apply blocked_by: %v", err)
	}

	st, err = st.Apply(graph.Patch{ClearBlockedBy: true})
	if err != nil {
		t.Fatalf("apply clear: %v", err)
	}

	if st.BlockedBy != nil {
		t.Error("blocked_by should be cleared")
	}
}

func TestRecordAppendsInOrder(t *testing.T) {
	st, err := graph.New("AUTH", "AUTH-1")
	if err != nil {
		t.Fatalf("new state: %v", err)
	}

	st = st.Record()

	review := graph.StoryInReview
	st, err = st.Apply(graph.Patch{StoryState: &review})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	st = st.Record()

	if len(st.StateHistory) != 2 {
		t.Fatalf("history length: got %d, want 2", len(st.StateHistory))
	}
	if st.StateHistory[0].State.StoryState == graph.StoryInReview {
		t.Error("first snapshot should predate the transition")
	}
	if st.StateHistory[1].State.StoryState != graph.StoryInReview {
		t.Error("second snapshot should capture the transition")
	}
}

func TestReplayReconstructsIntermediateState(t *testing.T) {
	st, err := graph.New("AUTH", "AUTH-1")
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	st = st.Record()

	review := graph.StoryInReview
	st, err = st.Apply(graph.Patch{
		StoryState:    &review,
		ArtifactPaths: map[graph.ArtifactType]string{graph.ArtifactPMGaps: "AUTH-1/fanout-pm.json"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	st = st.Record()

	replayed, err := graph.Replay(st.StateHistory, 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	if replayed.StoryState == graph.StoryInReview {
		t.Error("replayed state should not include later transitions")
	}
	if len(replayed.ArtifactPaths) != 0 {
		t.Error("replayed state should not include later artifacts")
	}
	if len(replayed.StateHistory) != 1 {
		t.Errorf("replayed history length: got %d, want 1", len(replayed.StateHistory))
	}

	final, err := graph.Replay(st.StateHistory, len(st.StateHistory)-1)
	if err != nil {
		t.Fatalf("replay final: %v", err)
	}
	if final.StoryState != graph.StoryInReview {
		t.Error("replaying the final index should reproduce the final snapshot")
	}
}

func TestReplayOutOfRange(t *testing.T) {
	st, err := graph.New("AUTH", "AUTH-1")
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	st = st.Record()

	if _, err := graph.Replay(st.StateHistory, -1); err == nil {
		t.Error("negative index should fail")
	}
	if _, err := graph.Replay(st.StateHistory, 1); err == nil {
		t.Error("index past end should fail")
	}
}

func TestReplayDoesNotMutateHistory(t *testing.T) {
	st, err := graph.New("AUTH", "AUTH-1")
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	st = st.Record()
	st = st.Record()

	before := len(st.StateHistory)
	if _, err := graph.Replay(st.StateHistory, 0); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(st.StateHistory) != before {
		t.Error("replay mutated the input history")
	}
}

func TestFingerprintTracksContent(t *testing.T) {
	a, err := graph.New("AUTH", "AUTH-1")
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	b, err := graph.New("AUTH", "AUTH-1")
	if err != nil {
		t.Fatalf("new state: %v", err)
	}

	fpA, err := a.Fingerprint()
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	fpB, err := b.Fingerprint()
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if fpA != fpB {
		t.Error("identical states should share a fingerprint")
	}

	review := graph.StoryInReview
	changed, err := a.Apply(graph.Patch{StoryState: &review})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	fpChanged, err := changed.Fingerprint()
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if fpChanged == fpA {
		t.Error("changed state should produce a different fingerprint")
	}
}
