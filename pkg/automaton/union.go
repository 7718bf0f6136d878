package automaton

import (
	"fmt"

	"github.com/oisee/ustructctl/pkg/store"
)

// Union computes the parallel composition of a and b: on a shared event
// both components must move together; on an event private to one operand,
// only that operand moves and the other's component stays put. The
// combined-ID scheme and marked/initial rules are the same as Intersection;
// the result's event set is the union of both operands'.
func Union(headerPath, bodyPath string, a, b *Automaton) (*Automaton, error) {
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
		out.AddEvent(ev.Label, ev.Observable, ev.Controllable)
	}
	for _, ev := range b.GetEvents() {
		if out.GetEventByLabel(ev.Label) == nil {
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
			continue
		}
		visited[cid] = true

		st1, _ := a.GetState(w.id1, true)
		st2, _ := b.GetState(w.id2, true)
		out.AddStateAt(fmt.Sprintf("%s_%s", st1.Label, st2.Label), st1.Marked && st2.Marked, nil, isInitial, cid)
		isInitial = false

		enqueue := func(target store.StateId, evLabel string) {
			outEv := out.GetEventByLabel(evLabel)
			if outEv == nil {
				return
			}
			out.AddTransition(cid, outEv.ID, target)
			if !visited[target] {
				queue = append(queue, pairWorkFromCombined(target, n1))
			}
		}

		for _, t1 := range st1.Transitions {
			ev1 := a.GetEvent(t1.Event)
			if ev1 == nil {
				continue
			}
			if common[ev1.Label] {
				for _, t2 := range st2.Transitions {
					ev2 := b.GetEvent(t2.Event)
					if ev2 == nil || ev2.Label != ev1.Label {
						continue
					}
					target := Combine2(t1.Target, t2.Target, n1)
					enqueue(target, ev1.Label)
				}
				continue
			}
			// Private to a: b stays at w.id2.
			target := Combine2(t1.Target, w.id2, n1)
			enqueue(target, ev1.Label)
		}
		for _, t2 := range st2.Transitions {
			ev2 := b.GetEvent(t2.Event)
			if ev2 == nil || common[ev2.Label] {
				continue // shared events already handled from a's side.
			}
			// Private to b: a stays at w.id1.
			target := Combine2(w.id1, t2.Target, n1)
			enqueue(target, ev2.Label)
		}
	}
	return out, nil
}

// pairWorkFromCombined recovers the (id1,id2) pair packed by Combine2, the
// inverse of combine(id1,id2) = (id2-1)*n1 + id1.
func pairWorkFromCombined(combined store.StateId, n1 uint64) pairWork {
	v := uint64(combined)
	id1 := (v-1)%n1 + 1
	id2 := (v-1)/n1 + 1
	return pairWork{store.StateId(id1), store.StateId(id2)}
}
