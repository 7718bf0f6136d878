package ustruct

import (
	"testing"

	"github.com/oisee/ustructctl/pkg/store"
)

// TestCrushIdentityWhenFullyObservable checks that crushing on a controller
// that observes every event leaves the structure unchanged up to relabeling:
// with no unobservable events for controller 1, every closure is a
// singleton, so Crush should neither merge states nor drop transitions.
func TestCrushIdentityWhenFullyObservable(t *testing.T) {
	hp, bp := tempFiles(t)
	u, err := newUStructure(hp, bp, store.TypeUStructure, 1)
	if err != nil {
		t.Fatalf("newUStructure: %v", err)
	}
	xEvt := u.AddEvent("<x_x>", []bool{true}, []bool{true})
	u.AddStateAt("s1", false, nil, true, 1)
	u.AddStateAt("s2", true, nil, false, 2)
	u.AddTransition(1, xEvt, 2)

	hpOut, bpOut := tempFiles(t)
	out, err := Crush(hpOut, bpOut, u, 1, CostSum)
	if err != nil {
		t.Fatalf("Crush: %v", err)
	}
	if out.NumberOfStates() != 2 {
		t.Fatalf("expected 2 crush states (no merging possible), got %d", out.NumberOfStates())
	}
	initSt, ok := out.GetState(out.InitialStateID(), true)
	if !ok || len(initSt.Transitions) != 1 {
		t.Fatalf("expected exactly one transition out of the initial crush state, got %+v", initSt)
	}
	targetSt, ok := out.GetState(initSt.Transitions[0].Target, true)
	if !ok || !targetSt.Marked {
		t.Errorf("expected the reachable crush state to carry s2's marked status, got %+v", targetSt)
	}
}

// TestCrushMergesUnobservableClosure builds a 1-controller U-Structure where
// event <x_*> is unobservable to controller 1 (slot 1 silent); states linked
// purely by it must merge into one crush state.
func TestCrushMergesUnobservableClosure(t *testing.T) {
	hp, bp := tempFiles(t)
	u, err := newUStructure(hp, bp, store.TypeUStructure, 1)
	if err != nil {
		t.Fatalf("newUStructure: %v", err)
	}
	privEvt := u.AddEvent("<x_*>", []bool{true}, []bool{true})
	pubEvt := u.AddEvent("<y_y>", []bool{true}, []bool{true})
	u.AddStateAt("s1", false, nil, true, 1)
	u.AddStateAt("s2", false, nil, false, 2)
	u.AddStateAt("s3", true, nil, false, 3)
	u.AddTransition(1, privEvt, 2) // unobservable to controller 1: merges into s1's closure
	u.AddTransition(2, pubEvt, 3)

	hpOut, bpOut := tempFiles(t)
	out, err := Crush(hpOut, bpOut, u, 1, CostMax)
	if err != nil {
		t.Fatalf("Crush: %v", err)
	}
	if out.NumberOfStates() != 2 {
		t.Fatalf("expected 2 crush states ({s1,s2} merged, {s3} alone), got %d", out.NumberOfStates())
	}
	initSt, ok := out.GetState(out.InitialStateID(), true)
	if !ok || len(initSt.Transitions) != 1 {
		t.Fatalf("expected one outgoing transition from the merged initial crush state, got %+v", initSt)
	}
}
