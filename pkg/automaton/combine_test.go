package automaton

import (
	"testing"

	"github.com/oisee/ustructctl/pkg/store"
)

// Combined-ID packing worked example.
func TestCombineIDsPacking(t *testing.T) {
	ids := []store.StateId{4, 2, 7}
	got := CombineIDs(ids, 7)
	if got != 279 {
		t.Fatalf("CombineIDs(%v, 7) = %d, want 279", ids, got)
	}
}

func TestSeparateIDsPacking(t *testing.T) {
	got := SeparateIDs(279, 7, 3)
	want := []store.StateId{4, 2, 7}
	if len(got) != len(want) {
		t.Fatalf("SeparateIDs(279,7,3) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SeparateIDs(279,7,3) = %v, want %v", got, want)
		}
	}
}

func TestCombineSeparateRoundTrip(t *testing.T) {
	cases := [][]store.StateId{
		{1, 1, 1},
		{0, 0},
		{7, 7, 7, 7},
		{3, 0, 5, 2},
	}
	for _, list := range cases {
		combined := CombineIDs(list, 7)
		back := SeparateIDs(combined, 7, len(list))
		for i := range list {
			if back[i] != list[i] {
				t.Errorf("round trip of %v: got %v", list, back)
				break
			}
		}
	}
}

func TestCombine2(t *testing.T) {
	// combine(id1,id2) = (id2-1)*n1 + id1
	got := Combine2(2, 3, 5)
	want := store.StateId((3-1)*5 + 2)
	if got != want {
		t.Fatalf("Combine2(2,3,5) = %d, want %d", got, want)
	}
}
