package operation

import (
	"path/filepath"
	"testing"

	"github.com/oisee/ustructctl/pkg/automaton"
	"github.com/oisee/ustructctl/pkg/event"
)

func tempFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "h.bin"), filepath.Join(dir, "b.bin")
}

func buildLinearAutomaton(t *testing.T) *automaton.Automaton {
	t.Helper()
	hp, bp := tempFiles(t)
	a, err := automaton.New(hp, bp, automaton.Options{StateCapacity: 8, TransitionCapacity: 2, LabelLength: 8, NControllers: 1, ClearFiles: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	evID := a.AddEvent("a", []bool{true}, []bool{true})
	a.AddStateAt("s1", false, nil, true, 1)
	a.AddStateAt("s2", true, nil, false, 2)
	a.AddStateAt("s3", false, nil, false, 3) // unreachable dead state
	a.AddTransition(1, event.EventId(evID), 2)
	return a
}

func TestRunTrimDropsUnreachableState(t *testing.T) {
	a := buildLinearAutomaton(t)
	hp, bp := tempFiles(t)
	res, err := Run(Config{Kind: KindTrim, A: a, OutHeaderPath: hp, OutBodyPath: bp})
	if err != nil {
		t.Fatalf("Run(trim): %v", err)
	}
	if res.Automaton.NumberOfStates() != 2 {
		t.Errorf("expected trim to drop the unreachable state, got %d states", res.Automaton.NumberOfStates())
	}
}

func TestRunMissingOperand(t *testing.T) {
	hp, bp := tempFiles(t)
	if _, err := Run(Config{Kind: KindTrim, OutHeaderPath: hp, OutBodyPath: bp}); err != ErrMissingOperand {
		t.Errorf("Run with nil A = %v, want ErrMissingOperand", err)
	}
}

func TestRunMissingOutputPath(t *testing.T) {
	a := buildLinearAutomaton(t)
	if _, err := Run(Config{Kind: KindTrim, A: a}); err != ErrMissingOutputPath {
		t.Errorf("Run with no output paths = %v, want ErrMissingOutputPath", err)
	}
}

func TestRunIntersectControllerMismatchPropagates(t *testing.T) {
	a := buildLinearAutomaton(t)
	hp, bp := tempFiles(t)
	b, err := automaton.New(hp, bp, automaton.Options{StateCapacity: 8, TransitionCapacity: 2, LabelLength: 8, NControllers: 2, ClearFiles: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	outHp, outBp := tempFiles(t)
	_, err = Run(Config{Kind: KindIntersect, A: a, B: b, OutHeaderPath: outHp, OutBodyPath: outBp})
	if err != automaton.ErrControllerMismatch {
		t.Errorf("Run(intersect) with mismatched controllers = %v, want ErrControllerMismatch", err)
	}
}
