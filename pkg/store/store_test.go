package store

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func tempPaths(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "h.bin"), filepath.Join(dir, "b.bin")
}

func TestHeaderRoundTrip(t *testing.T) {
	h := NewHeader(TypeUStructure, 2)
	h.NStates = 7
	h.EventCapacity = 16
	h.StateCapacity = 255
	h.TransitionCapacity = 4
	h.LabelLength = 8
	h.InitialState = 1
	h.Events.Add("a", []bool{true, false}, []bool{false, true})
	h.Events.Add("<a_a_*>", []bool{true, true}, []bool{true, true})
	h.BadTransitions = []TransitionData{{InitialState: 1, Event: 2, TargetState: 3}}
	h.UnconditionalViolations = []TransitionData{{InitialState: 5, Event: 1, TargetState: 4}}
	h.PotentialCommunications = []CommunicationData{{
		Transition: TransitionData{InitialState: 1, Event: 2, TargetState: 2},
		Roles:      []Role{RoleSender, RoleReceiver},
	}}
	h.NashCommunications = []NashCommunicationData{{
		Communication: CommunicationData{
			Transition: TransitionData{InitialState: 1, Event: 2, TargetState: 2},
			Roles:      []Role{RoleSender, RoleReceiver},
		},
		Cost:        42,
		Probability: 0.5,
	}}
	h.DisablementDecisions = []DisablementData{{
		Transition: TransitionData{InitialState: 1, Event: 2, TargetState: 2},
		Disables:   []bool{true, false},
	}}

	encoded := h.Encode()
	got, err := DecodeHeader(encoded)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}

	if got.NStates != h.NStates || got.EventCapacity != h.EventCapacity ||
		got.StateCapacity != h.StateCapacity || got.TransitionCapacity != h.TransitionCapacity ||
		got.LabelLength != h.LabelLength || got.InitialState != h.InitialState ||
		got.NControllers != h.NControllers {
		t.Errorf("scalar fields mismatch: got %+v, want %+v", got, h)
	}
	if got.Events.Len() != h.Events.Len() {
		t.Fatalf("event count mismatch: got %d, want %d", got.Events.Len(), h.Events.Len())
	}
	if diff := cmp.Diff(h.BadTransitions, got.BadTransitions); diff != "" {
		t.Errorf("BadTransitions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(h.UnconditionalViolations, got.UnconditionalViolations); diff != "" {
		t.Errorf("UnconditionalViolations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(h.PotentialCommunications, got.PotentialCommunications); diff != "" {
		t.Errorf("PotentialCommunications mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(h.NashCommunications, got.NashCommunications); diff != "" {
		t.Errorf("NashCommunications mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(h.DisablementDecisions, got.DisablementDecisions); diff != "" {
		t.Errorf("DisablementDecisions mismatch (-want +got):\n%s", diff)
	}
}

func TestHeaderRoundTripAutomatonHasNoExtraTables(t *testing.T) {
	h := NewHeader(TypeAutomaton, 1)
	h.Events.Add("a", []bool{true}, []bool{true})
	h.BadTransitions = []TransitionData{{InitialState: 1, Event: 1, TargetState: 2}}

	got, err := DecodeHeader(h.Encode())
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if len(got.UnconditionalViolations) != 0 || len(got.PotentialCommunications) != 0 {
		t.Error("plain Automaton header should not carry U-Structure tables")
	}
}

func TestStateRecordRoundTrip(t *testing.T) {
	h := NewHeader(TypeAutomaton, 1)
	h.LabelLength = 10
	h.TransitionCapacity = 3
	h.EventCapacity = 16
	h.StateCapacity = 255

	rec := StateRecord{
		Exists: true,
		Marked: true,
		Label:  "zero",
		Transitions: []InBodyTransition{
			{Event: 1, Target: 2},
			{Event: 3, Target: 4},
		},
	}
	buf := EncodeStateRecord(h, rec)
	if len(buf) != h.NBytesPerState() {
		t.Fatalf("encoded record size = %d, want %d", len(buf), h.NBytesPerState())
	}
	got := DecodeStateRecord(h, buf)
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("state record round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStateRecordNotExists(t *testing.T) {
	h := NewHeader(TypeAutomaton, 1)
	h.LabelLength = 4
	h.TransitionCapacity = 2
	buf := EncodeStateRecord(h, StateRecord{Exists: false})
	got := DecodeStateRecord(h, buf)
	if got.Exists {
		t.Error("expected Exists=false")
	}
}

func TestStoreCreateWriteReadState(t *testing.T) {
	hp, bp := tempPaths(t)
	s, err := Create(hp, bp, TypeAutomaton, 10, 2, 8, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()

	rec := StateRecord{Exists: true, Marked: true, Label: "zero", Transitions: []InBodyTransition{{Event: 1, Target: 2}}}
	if err := s.WriteState(1, rec); err != nil {
		t.Fatalf("WriteState: %v", err)
	}

	got, err := s.ReadState(1)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreReopenPreservesState(t *testing.T) {
	hp, bp := tempPaths(t)
	s, err := Create(hp, bp, TypeAutomaton, 10, 2, 8, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec := StateRecord{Exists: true, Label: "s1"}
	if err := s.WriteState(1, rec); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(hp, bp)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.ReadState(1)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if got.Label != "s1" || !got.Exists {
		t.Errorf("got %+v after reopen", got)
	}
}

func TestStoreGrowsLabelLength(t *testing.T) {
	hp, bp := tempPaths(t)
	s, err := Create(hp, bp, TypeAutomaton, 10, 2, 2, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()

	long := "a-much-longer-label-than-two-bytes"
	if err := s.WriteState(1, StateRecord{Exists: true, Label: long}); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if s.Header().LabelLength < uint32(len(long)) {
		t.Errorf("expected LabelLength to grow to >= %d, got %d", len(long), s.Header().LabelLength)
	}
	got, err := s.ReadState(1)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if got.Label != long {
		t.Errorf("got label %q, want %q", got.Label, long)
	}
}

func TestStoreGrowsPreservesExistingStates(t *testing.T) {
	hp, bp := tempPaths(t)
	s, err := Create(hp, bp, TypeAutomaton, 300, 1, 4, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()

	if err := s.WriteState(1, StateRecord{Exists: true, Label: "one"}); err != nil {
		t.Fatalf("WriteState(1): %v", err)
	}
	if err := s.WriteState(2, StateRecord{Exists: true, Label: "two", Transitions: []InBodyTransition{{Event: 1, Target: 1}}}); err != nil {
		t.Fatalf("WriteState(2): %v", err)
	}
	// Triggers transition-capacity growth.
	if err := s.WriteState(2, StateRecord{
		Exists: true, Label: "two",
		Transitions: []InBodyTransition{{Event: 1, Target: 1}, {Event: 2, Target: 3}},
	}); err != nil {
		t.Fatalf("WriteState(2) grow: %v", err)
	}

	got1, err := s.ReadState(1)
	if err != nil {
		t.Fatalf("ReadState(1): %v", err)
	}
	if got1.Label != "one" {
		t.Errorf("state 1 label corrupted after growth: %+v", got1)
	}
}

func TestStoreGrowsStateCapacityWidensStateId(t *testing.T) {
	hp, bp := tempPaths(t)
	s, err := Create(hp, bp, TypeAutomaton, 10, 1, 4, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()

	if s.Header().StateCapacity != 255 {
		t.Fatalf("expected initial capacity 255, got %d", s.Header().StateCapacity)
	}
	if err := s.WriteState(1000, StateRecord{Exists: true, Label: "big"}); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if s.Header().StateCapacity != 65535 {
		t.Errorf("expected capacity to widen to 65535, got %d", s.Header().StateCapacity)
	}
	got, err := s.ReadState(1000)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if got.Label != "big" {
		t.Errorf("got %+v", got)
	}
}

func TestBodyReadRecordPastEOFIsZero(t *testing.T) {
	_, bp := tempPaths(t)
	b, err := CreateBody(bp, 4)
	if err != nil {
		t.Fatalf("CreateBody: %v", err)
	}
	defer b.Close()
	rec, err := b.ReadRecord(5)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	for _, c := range rec {
		if c != 0 {
			t.Fatalf("expected all-zero record, got %v", rec)
		}
	}
}
