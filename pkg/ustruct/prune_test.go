package ustruct

import (
	"testing"

	"github.com/oisee/ustructctl/pkg/event"
	"github.com/oisee/ustructctl/pkg/store"
)

// buildTinyUStructure is a 1-controller, 3-state U-Structure: s1 has two
// outgoing vectorized-event transitions, one to s2 on <x_x> and one to s3
// on <y_y>; s2 and s3 are leaves.
func buildTinyUStructure(t *testing.T) (*UStructure, event.EventId, event.EventId) {
	t.Helper()
	hp, bp := tempFiles(t)
	u, err := newUStructure(hp, bp, store.TypeUStructure, 1)
	if err != nil {
		t.Fatalf("newUStructure: %v", err)
	}
	xEvt := u.AddEvent("<x_x>", []bool{true}, []bool{true})
	yEvt := u.AddEvent("<y_y>", []bool{true}, []bool{true})
	u.AddStateAt("s1", false, nil, true, 1)
	u.AddStateAt("s2", false, nil, false, 2)
	u.AddStateAt("s3", false, nil, false, 3)
	u.AddTransition(1, xEvt, 2)
	u.AddTransition(1, yEvt, 3)
	return u, xEvt, yEvt
}

func TestPruneKeepsOnlyProtocolAtDepthZero(t *testing.T) {
	u, xEvt, _ := buildTinyUStructure(t)
	protocol := []store.TransitionData{{InitialState: 1, Event: uint32(xEvt), TargetState: 2}}
	commVec := event.LabelVector{"x", "x"}

	hp1, bp1 := tempFiles(t)
	out1, err := Prune(hp1, bp1, u, protocol, commVec, 1)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	st1, _ := out1.GetState(1, true)
	if len(st1.Transitions) != 1 || st1.Transitions[0].Event != xEvt || st1.Transitions[0].Target != 2 {
		t.Fatalf("expected only the protocol transition to survive pruning, got %+v", st1.Transitions)
	}
}

// TestPruneIsIdempotentAcrossRuns checks that applying the same protocol and
// communication twice produces the same transition set: pruning the output
// of a first Prune run again leaves its transitions unchanged.
func TestPruneIsIdempotentAcrossRuns(t *testing.T) {
	u, xEvt, _ := buildTinyUStructure(t)
	protocol := []store.TransitionData{{InitialState: 1, Event: uint32(xEvt), TargetState: 2}}
	commVec := event.LabelVector{"x", "x"}

	hp1, bp1 := tempFiles(t)
	out1, err := Prune(hp1, bp1, u, protocol, commVec, 1)
	if err != nil {
		t.Fatalf("first Prune: %v", err)
	}
	hp2, bp2 := tempFiles(t)
	out2, err := Prune(hp2, bp2, out1, protocol, commVec, 1)
	if err != nil {
		t.Fatalf("second Prune: %v", err)
	}

	st1, _ := out1.GetState(1, true)
	st2, _ := out2.GetState(1, true)
	if len(st1.Transitions) != len(st2.Transitions) {
		t.Fatalf("Prune not idempotent: %+v vs %+v", st1.Transitions, st2.Transitions)
	}
	for i := range st1.Transitions {
		if st1.Transitions[i] != st2.Transitions[i] {
			t.Errorf("Prune not idempotent at index %d: %+v vs %+v", i, st1.Transitions[i], st2.Transitions[i])
		}
	}
}
