package event

import "testing"

func TestEventSetAddDuplicateReturnsZero(t *testing.T) {
	s := NewEventSet()
	id1 := s.Add("a", []bool{true}, []bool{true})
	if id1 == 0 {
		t.Fatal("expected non-zero id for first add")
	}
	id2 := s.Add("a", []bool{false}, []bool{false})
	if id2 != 0 {
		t.Errorf("expected 0 for duplicate label, got %d", id2)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 event after duplicate add, got %d", s.Len())
	}
}

func TestEventSetInsertionOrder(t *testing.T) {
	s := NewEventSet()
	s.Add("b", []bool{true}, []bool{true})
	s.Add("a", []bool{true}, []bool{true})
	s.Add("g", []bool{true}, []bool{true})

	var labels []string
	s.Each(func(e *Event) bool {
		labels = append(labels, e.Label)
		return true
	})
	want := []string{"b", "a", "g"}
	for i, w := range want {
		if labels[i] != w {
			t.Errorf("position %d: got %q, want %q", i, labels[i], w)
		}
	}
}

func TestEventEqualityByLabel(t *testing.T) {
	s := NewEventSet()
	id := s.Add("x", []bool{true, false}, []bool{false, true})
	ev := s.Get(id)
	if ev.Label != "x" {
		t.Errorf("label mismatch: %q", ev.Label)
	}
	// Re-adding under a fresh set and different id should still compare
	// equal by label.
	s2 := NewEventSet()
	s2.AddWithID(99, "x", []bool{true, false}, []bool{false, true})
	ev2 := s2.Get(99)
	if ev2.Label != ev.Label {
		t.Error("events with same label should be considered equal by label")
	}
	if ev.ID == ev2.ID {
		t.Skip("ids happen to coincide in this case; equality is by label regardless")
	}
}

func TestGetTotalOverRange(t *testing.T) {
	s := NewEventSet()
	a := s.Add("a", []bool{true}, []bool{true})
	b := s.Add("b", []bool{true}, []bool{true})
	for _, id := range []EventId{a, b} {
		if s.Get(id) == nil {
			t.Errorf("getEvent(%d) should be total for ids in [1,|E|]", id)
		}
	}
}

func TestObservableControllableFlags(t *testing.T) {
	s := NewEventSet()
	id := s.Add("o", []bool{true, false, true}, []bool{false, true, true})
	ev := s.Get(id)
	if !ev.IsObservableTo(0) || ev.IsObservableTo(1) || !ev.IsObservableTo(2) {
		t.Error("observable flags mismatch")
	}
	if ev.IsControllableBy(0) || !ev.IsControllableBy(1) || !ev.IsControllableBy(2) {
		t.Error("controllable flags mismatch")
	}
}

func TestRemove(t *testing.T) {
	s := NewEventSet()
	a := s.Add("a", []bool{true}, []bool{true})
	s.Add("b", []bool{true}, []bool{true})
	s.Remove(a)
	if s.Get(a) != nil {
		t.Error("expected event removed")
	}
	if s.ByLabel("a") != nil {
		t.Error("expected label index cleared")
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 remaining event, got %d", s.Len())
	}
}
