package automaton

import (
	"github.com/pkg/errors"

	"github.com/oisee/ustructctl/pkg/store"
)

// Accessible returns the set of state ids reachable from the initial state
// by forward transitions, including the initial state itself. Returns nil
// if no initial state is set.
func (a *Automaton) Accessible() map[store.StateId]bool {
	init := a.InitialStateID()
	if init == 0 {
		return nil
	}
	seen := map[store.StateId]bool{init: true}
	stack := []store.StateId{init}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		st, ok := a.GetState(id, true)
		if !ok {
			continue
		}
		for _, t := range st.Transitions {
			if !seen[t.Target] {
				seen[t.Target] = true
				stack = append(stack, t.Target)
			}
		}
	}
	return seen
}

// Coaccessible returns the set of state ids from which some marked state is
// reachable. It walks the transition relation backwards: build an inverted
// adjacency list, then forward-reach from every marked state over it.
func (a *Automaton) Coaccessible() map[store.StateId]bool {
	inverse := map[store.StateId][]store.StateId{}
	var marked []store.StateId
	n := a.NumberOfStates()
	for id := store.StateId(1); uint64(id) <= n; id++ {
		st, ok := a.GetState(id, true)
		if !ok {
			continue
		}
		if st.Marked {
			marked = append(marked, id)
		}
		for _, t := range st.Transitions {
			inverse[t.Target] = append(inverse[t.Target], id)
		}
	}

	seen := map[store.StateId]bool{}
	var stack []store.StateId
	for _, m := range marked {
		if !seen[m] {
			seen[m] = true
			stack = append(stack, m)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, pred := range inverse[id] {
			if !seen[pred] {
				seen[pred] = true
				stack = append(stack, pred)
			}
		}
	}
	return seen
}

// Trim is the intersection of Accessible and Coaccessible: states that are
// both reachable from the initial state and can reach a marked state.
func (a *Automaton) Trim() map[store.StateId]bool {
	acc := a.Accessible()
	if acc == nil {
		return nil
	}
	co := a.Coaccessible()
	out := map[store.StateId]bool{}
	for id := range acc {
		if co[id] {
			out[id] = true
		}
	}
	return out
}

// BuildSubset materializes the states named by keep (plus their transitions
// restricted to targets also in keep) into a fresh Automaton at
// headerPath/bodyPath, renumbered densely starting at 1 in ascending
// original-id order. It backs Accessible/Coaccessible/Trim's "build a copy
// containing only..." step.
func (a *Automaton) BuildSubset(headerPath, bodyPath string, keep map[store.StateId]bool) (*Automaton, error) {
	var ordered []store.StateId
	n := a.NumberOfStates()
	for id := store.StateId(1); uint64(id) <= n; id++ {
		if keep[id] {
			ordered = append(ordered, id)
		}
	}
	remap := make(map[store.StateId]store.StateId, len(ordered))
	for i, id := range ordered {
		remap[id] = store.StateId(i + 1)
	}

	h := a.store.Header()
	out, err := New(headerPath, bodyPath, Options{
		StateCapacity:      uint64(len(ordered)),
		TransitionCapacity: h.TransitionCapacity,
		LabelLength:        h.LabelLength,
		NControllers:       int(h.NControllers),
		ClearFiles:         true,
	})
	if err != nil {
		return nil, err
	}
	for _, ev := range a.GetEvents() {
		out.AddEvent(ev.Label, ev.Observable, ev.Controllable)
	}

	init, initOK := remap[a.InitialStateID()]
	for _, oldID := range ordered {
		st, _ := a.GetState(oldID, true)
		newID := remap[oldID]
		var trs []Transition
		for _, t := range st.Transitions {
			if nt, ok := remap[t.Target]; ok {
				trs = append(trs, Transition{Event: t.Event, Target: nt})
			}
		}
		if !out.AddStateAt(st.Label, st.Marked, trs, initOK && newID == init, newID) {
			out.Close()
			return nil, errors.Errorf("automaton: failed to materialize state %d into subset", oldID)
		}
	}

	oh := out.store.Header()
	oh.BadTransitions = remapTransitionListFiltered(remap, h.BadTransitions)
	if err := out.store.Flush(); err != nil {
		out.Close()
		return nil, err
	}
	return out, nil
}

// remapTransitionListFiltered translates each transition through remap,
// dropping any whose start or target state did not survive into the kept
// set (remap only holds entries for surviving states).
func remapTransitionListFiltered(remap map[store.StateId]store.StateId, list []store.TransitionData) []store.TransitionData {
	var out []store.TransitionData
	for _, td := range list {
		start, startOK := remap[td.InitialState]
		target, targetOK := remap[td.TargetState]
		if !startOK || !targetOK {
			continue
		}
		out = append(out, store.TransitionData{InitialState: start, Event: td.Event, TargetState: target})
	}
	return out
}
