package ustruct

import (
	"strings"

	"github.com/oisee/ustructctl/pkg/automaton"
	"github.com/oisee/ustructctl/pkg/event"
	"github.com/oisee/ustructctl/pkg/store"
)

// SynchronizedComposition runs a worklist pop-loop over plant g, producing
// a U-Structure whose states are (K+1)-tuples of g-states (slot 0 the
// plant's view, slots 1..K each controller's estimate) and whose events
// are vectorized labels `<e0_..._eK>`. Returns nil, nil if g has no
// initial state.
func SynchronizedComposition(headerPath, bodyPath string, g *automaton.Automaton) (*UStructure, error) {
	if g.InitialStateID() == 0 {
		return nil, nil
	}
	k := g.NumberOfControllers()
	n := g.NumberOfStates()

	u, err := newUStructure(headerPath, bodyPath, store.TypeUStructure, k)
	if err != nil {
		return nil, err
	}

	s0 := g.InitialStateID()
	tuple0 := make([]store.StateId, k+1)
	for i := range tuple0 {
		tuple0[i] = s0
	}
	initID := automaton.CombineIDs(tuple0, n)
	u.AddStateAt(tupleLabel(g, tuple0), false, nil, true, initID)

	visited := map[store.StateId]bool{initID: true}
	stack := []store.StateId{initID}

	for len(stack) > 0 {
		cid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		tuple := automaton.SeparateIDs(cid, n, k+1)
		stepSynchronizedState(u, g, cid, tuple, n, k, visited, &stack)
	}

	DiscoverPotentialCommunications(u)
	return u, nil
}

// stepSynchronizedState expands one popped composite state: plant-driven
// moves (step 1, including violation-flag bookkeeping) followed by
// controller-private moves on events unobservable to that controller
// (step 2). Shared by SynchronizedComposition and
// SynchronizedCompositionResumable so both walk identically.
func stepSynchronizedState(u *UStructure, g *automaton.Automaton, cid store.StateId, tuple []store.StateId, n uint64, k int, visited map[store.StateId]bool, stack *[]store.StateId) {
	plantSt, ok := g.GetState(tuple[0], true)
	if !ok {
		return
	}
	for _, t1 := range plantSt.Transitions {
		ev := g.GetEvent(t1.Event)
		if ev == nil {
			continue
		}
		newTuple := make([]store.StateId, k+1)
		newTuple[0] = t1.Target
		vec := make([]string, k+1)
		vec[0] = ev.Label
		matched := true
		for i := 1; i <= k; i++ {
			if ev.IsObservableTo(i - 1) {
				target, ok := matchingTarget(g, tuple[i], ev.Label)
				if !ok {
					matched = false
					break
				}
				newTuple[i] = target
				vec[i] = ev.Label
			} else {
				newTuple[i] = tuple[i]
				vec[i] = event.SilentSlot
			}
		}
		if !matched {
			continue
		}

		b0 := g.IsBadTransition(tuple[0], t1.Event, t1.Target)
		isUncond := b0
		if isUncond {
			for i := 1; i <= k; i++ {
				if !ev.IsControllableBy(i - 1) {
					continue
				}
				if g.IsBadTransition(tuple[i], t1.Event, newTuple[i]) {
					isUncond = false
					break
				}
			}
		}
		nCtrl := 0
		for i := 0; i < k; i++ {
			if ev.IsControllableBy(i) {
				nCtrl++
			}
		}
		isCond := !b0 && nCtrl >= 2
		if isCond {
			for i := 1; i <= k; i++ {
				if !ev.IsControllableBy(i - 1) {
					continue
				}
				if !g.IsBadTransition(tuple[i], t1.Event, newTuple[i]) {
					isCond = false
					break
				}
			}
		}

		u.emitTransition(g, cid, tuple, newTuple, vec, visited, stack)
		target := automaton.CombineIDs(newTuple, n)
		vecEv := u.vectorEventID(vec, k)
		if isUncond {
			u.AddUnconditionalViolation(cid, vecEv, target)
		}
		if isCond {
			u.AddConditionalViolation(cid, vecEv, target)
		}
	}

	for i := 1; i <= k; i++ {
		stI, ok := g.GetState(tuple[i], true)
		if !ok {
			continue
		}
		for _, t2 := range stI.Transitions {
			ev := g.GetEvent(t2.Event)
			if ev == nil || ev.IsObservableTo(i-1) {
				continue
			}
			newTuple := append([]store.StateId(nil), tuple...)
			newTuple[i] = t2.Target
			vec := make([]string, k+1)
			for j := range vec {
				vec[j] = event.SilentSlot
			}
			vec[i] = ev.Label
			u.emitTransition(g, cid, tuple, newTuple, vec, visited, stack)
		}
	}
}

// emitTransition materializes newTuple as a (possibly new) U-Structure
// state, registers/reuses the vectorized event for vec, and adds the
// transition from cid, pushing newTuple's composite id onto the worklist
// if this is its first visit.
func (u *UStructure) emitTransition(g *automaton.Automaton, cid store.StateId, tuple, newTuple []store.StateId, vec []string, visited map[store.StateId]bool, stack *[]store.StateId) {
	n := g.NumberOfStates()
	targetID := automaton.CombineIDs(newTuple, n)
	if !visited[targetID] {
		u.AddStateAt(tupleLabel(g, newTuple), false, nil, false, targetID)
		visited[targetID] = true
		*stack = append(*stack, targetID)
	}
	k := len(tuple) - 1
	evID := u.vectorEventID(vec, k)
	u.AddTransition(cid, evID, targetID)
}

// vectorEventID returns the EventId for vectorized label vec, registering
// it in the U-Structure's event set on first use. All observability/
// controllability flags on a vectorized event are set true, since the
// U-Structure treats the combined event opaquely.
func (u *UStructure) vectorEventID(vec []string, k int) event.EventId {
	label := event.LabelVector(vec).String()
	if ev := u.GetEventByLabel(label); ev != nil {
		return ev.ID
	}
	obs := make([]bool, k)
	ctrl := make([]bool, k)
	for i := range obs {
		obs[i] = true
		ctrl[i] = true
	}
	return u.AddEvent(label, obs, ctrl)
}

// matchingTarget finds the target of the (only, under the determinism
// assumption) transition out of state from on event label, if any.
func matchingTarget(g *automaton.Automaton, from store.StateId, label string) (store.StateId, bool) {
	st, ok := g.GetState(from, true)
	if !ok {
		return 0, false
	}
	for _, t := range st.Transitions {
		if ev := g.GetEvent(t.Event); ev != nil && ev.Label == label {
			return t.Target, true
		}
	}
	return 0, false
}

// tupleLabel joins the component states' labels with '_': a composite
// state's label is L0_L1_..._LK.
func tupleLabel(g *automaton.Automaton, tuple []store.StateId) string {
	labels := make([]string, len(tuple))
	for i, id := range tuple {
		if st, ok := g.GetState(id, false); ok {
			labels[i] = st.Label
		}
	}
	return strings.Join(labels, "_")
}
