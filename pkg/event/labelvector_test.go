package event

import (
	"reflect"
	"testing"
)

func TestParseLabelVector(t *testing.T) {
	tests := []struct {
		label string
		want  LabelVector
		ok    bool
	}{
		{"<a_b_*>", LabelVector{"a", "b", "*"}, true},
		{"<a,b,*>", LabelVector{"a", "b", "*"}, true},
		{"a", nil, false},
		{"<a>", LabelVector{"a"}, true},
		{"", nil, false},
	}
	for _, tc := range tests {
		got, ok := ParseLabelVector(tc.label)
		if ok != tc.ok {
			t.Errorf("ParseLabelVector(%q) ok = %v, want %v", tc.label, ok, tc.ok)
			continue
		}
		if ok && !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseLabelVector(%q) = %v, want %v", tc.label, got, tc.want)
		}
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		a, b LabelVector
		want bool
	}{
		{LabelVector{"a", "*"}, LabelVector{"a", "b"}, true},
		{LabelVector{"a", "b"}, LabelVector{"a", "c"}, false},
		{LabelVector{"*", "*"}, LabelVector{"x", "y"}, true},
		{LabelVector{"a"}, LabelVector{"a", "b"}, false},
	}
	for _, tc := range tests {
		if got := Compatible(tc.a, tc.b); got != tc.want {
			t.Errorf("Compatible(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestJoin(t *testing.T) {
	got := Join(LabelVector{"a", "*", "*"}, LabelVector{"*", "b", "*"})
	want := LabelVector{"a", "b", "*"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Join = %v, want %v", got, want)
	}
}

func TestUnobservableTo(t *testing.T) {
	tests := []struct {
		v    LabelVector
		ctrl int
		want bool
	}{
		{LabelVector{"a", "a", "*"}, 1, false},
		{LabelVector{"a", "a", "*"}, 2, true},
		{LabelVector{"*", "b", "*"}, 1, true}, // slot 0 silent => unobservable everywhere
	}
	for _, tc := range tests {
		if got := tc.v.UnobservableTo(tc.ctrl); got != tc.want {
			t.Errorf("UnobservableTo(%v, %d) = %v, want %v", tc.v, tc.ctrl, got, tc.want)
		}
	}
}

func TestGenerateLeastUpperBounds(t *testing.T) {
	s := NewEventSet()
	s.Add("<a_*>", []bool{true, true}, []bool{true, true})
	s.Add("<*_b>", []bool{true, true}, []bool{true, true})
	s.Add("<c_c>", []bool{true, true}, []bool{true, true})

	lubs := GenerateLeastUpperBounds(s)
	found := false
	for _, l := range lubs {
		if l.String() == "<a_b>" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected <a_b> among least upper bounds, got %v", lubs)
	}
}
