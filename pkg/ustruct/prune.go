package ustruct

import (
	"github.com/oisee/ustructctl/pkg/event"
	"github.com/oisee/ustructctl/pkg/store"
)

// pruneFrame is one entry of Prune's explicit depth-bounded walk stack.
type pruneFrame struct {
	id    store.StateId
	depth int
	found []bool // length K; found[i] = slot i+1 already claimed
}

// Prune starts from startID and walks outgoing transitions to depth K (the
// source automaton's controller count), removing every transition whose
// vectorized event is compatible with commVec under the slots already
// claimed by `found`, except that a transition literally present in
// protocol is never removed at depth 0. Incompatible transitions abort
// that branch without being touched. The result is a fresh
// PrunedUStructure; u is left unmodified.
//
// A state can be reached via more than one (depth, found) context along
// different branches, and the removal decision for its outgoing edges
// depends on that context, not on the state alone — so frames are
// deduplicated by (id, found), not by id.
func Prune(headerPath, bodyPath string, u *UStructure, protocol []store.TransitionData, commVec event.LabelVector, startID store.StateId) (*UStructure, error) {
	cloned, err := u.CloneTo(headerPath, bodyPath, store.TypePrunedUStructure)
	if err != nil {
		return nil, err
	}
	out := &UStructure{Automaton: cloned}
	k := out.NumberOfControllers()

	inProtocol := func(td store.TransitionData) bool {
		for _, p := range protocol {
			if p == td {
				return true
			}
		}
		return false
	}

	visited := map[visitKey]bool{}
	stack := []pruneFrame{{startID, 0, make([]bool, k)}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.depth > k {
			continue
		}
		key := visitKey{f.id, foundBitmask(f.found)}
		if visited[key] {
			continue
		}
		visited[key] = true

		st, ok := out.GetState(f.id, true)
		if !ok {
			continue
		}
		for _, t := range st.Transitions {
			ev := out.GetEvent(t.Event)
			if ev == nil {
				continue
			}
			vec, isVec := ev.LabelVector()
			if !isVec {
				continue
			}
			td := store.TransitionData{InitialState: f.id, Event: uint32(t.Event), TargetState: t.Target}

			compatible, newFound := compatibleUnderFound(vec, commVec, f.found)
			if !compatible {
				continue
			}
			if f.depth == 0 && inProtocol(td) {
				stack = append(stack, pruneFrame{t.Target, f.depth + 1, newFound})
				continue
			}
			out.RemoveTransition(f.id, t.Event, t.Target)
			stack = append(stack, pruneFrame{t.Target, f.depth + 1, newFound})
		}
	}
	return out, nil
}

// visitKey identifies a (state, claimed-slot context) pair for dedup: the
// same state reached with a different found bitmask is a distinct branch
// with its own removal decisions.
type visitKey struct {
	id    store.StateId
	found uint64
}

// foundBitmask packs found (length K) into a uint64, one bit per slot.
func foundBitmask(found []bool) uint64 {
	var mask uint64
	for i, b := range found {
		if b {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// compatibleUnderFound checks vec against commVec only at slots already
// claimed in found, then returns found OR'd in with vec's newly non-silent
// controller slots.
func compatibleUnderFound(vec, commVec event.LabelVector, found []bool) (bool, []bool) {
	newFound := append([]bool(nil), found...)
	for i := 1; i <= len(found) && i < len(vec); i++ {
		if found[i-1] && vec[i] != event.SilentSlot && (i >= len(commVec) || vec[i] != commVec[i]) {
			return false, found
		}
	}
	for i := 1; i <= len(found) && i < len(vec); i++ {
		if vec[i] != event.SilentSlot {
			newFound[i-1] = true
		}
	}
	return true, newFound
}
