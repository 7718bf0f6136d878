package automaton

import (
	"fmt"

	"github.com/oisee/ustructctl/pkg/store"
)

// pairWork is a composite-state worklist entry shared by Intersection and
// Union: (id1,id2) are the component state ids the combined state packs.
type pairWork struct {
	id1, id2 store.StateId
}

// Intersection computes the synchronous product of a and b on their common
// alphabet (event equality by label). It fails with ErrControllerMismatch
// if the two operands carry different controller counts. New state ids are
// composite via Combine2; a combined state is marked iff both components
// are marked, initial iff both components are initial. Every pair of
// same-labeled transitions out of a combined state's components produces
// one transition between the corresponding combined states.
func Intersection(headerPath, bodyPath string, a, b *Automaton) (*Automaton, error) {
	if a.NumberOfControllers() != b.NumberOfControllers() {
		return nil, ErrControllerMismatch
	}
	if a.InitialStateID() == 0 || b.InitialStateID() == 0 {
		return nil, nil
	}

	common := map[string]bool{}
	for _, ev := range a.GetEvents() {
		if b.GetEventByLabel(ev.Label) != nil {
			common[ev.Label] = true
		}
	}

	out, err := New(headerPath, bodyPath, Options{
		StateCapacity:      1,
		TransitionCapacity: 1,
		LabelLength:        1,
		NControllers:       a.NumberOfControllers(),
		ClearFiles:         true,
	})
	if err != nil {
		return nil, err
	}
	for _, ev := range a.GetEvents() {
		if common[ev.Label] {
			out.AddEvent(ev.Label, ev.Observable, ev.Controllable)
		}
	}

	n1 := a.NumberOfStates()
	visited := map[store.StateId]bool{}
	queue := []pairWork{{a.InitialStateID(), b.InitialStateID()}}
	isInitial := true
	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]
		cid := Combine2(w.id1, w.id2, n1)
		if visited[cid] {
			isInitial = false
			continue
		}
		visited[cid] = true

		st1, _ := a.GetState(w.id1, true)
		st2, _ := b.GetState(w.id2, true)
		out.AddStateAt(fmt.Sprintf("%s_%s", st1.Label, st2.Label), st1.Marked && st2.Marked, nil, isInitial, cid)
		isInitial = false

		for _, t1 := range st1.Transitions {
			ev1 := a.GetEvent(t1.Event)
			if ev1 == nil || !common[ev1.Label] {
				continue
			}
			for _, t2 := range st2.Transitions {
				ev2 := b.GetEvent(t2.Event)
				if ev2 == nil || ev2.Label != ev1.Label {
					continue
				}
				target := Combine2(t1.Target, t2.Target, n1)
				outEv := out.GetEventByLabel(ev1.Label)
				if outEv == nil {
					continue
				}
				out.AddTransition(cid, outEv.ID, target)
				if !visited[target] {
					queue = append(queue, pairWork{t1.Target, t2.Target})
				}
			}
		}
	}
	return out, nil
}
