package ustruct

import (
	"sort"
	"strings"

	"github.com/oisee/ustructctl/pkg/automaton"
	"github.com/oisee/ustructctl/pkg/event"
	"github.com/oisee/ustructctl/pkg/store"
)

// CostPolicy selects how Crush combines Nash-communication costs when
// several source transitions merge into one crush-transition.
type CostPolicy int

const (
	CostMax CostPolicy = iota
	CostSum
	CostAverage
)

// Crush performs subset construction over the indistinguishability
// controller controllerIndex (1-indexed, matching LabelVector.UnobservableTo)
// induces on u. Output states are closures of u-states under
// controllerIndex-unobservable transitions; output transitions exist for
// every event observable to controllerIndex that leads from some member of
// the source closure to a nonempty reachable closure.
func Crush(headerPath, bodyPath string, u *UStructure, controllerIndex int, combineCosts CostPolicy) (*UStructure, error) {
	h := u.Store().Header()
	maxId := u.NumberOfStates()

	out, err := newUStructure(headerPath, bodyPath, store.TypePrunedUStructure, int(h.NControllers))
	if err != nil {
		return nil, err
	}

	ids := map[uint64]store.StateId{}
	closures := map[store.StateId][]store.StateId{} // crush-id -> member original ids

	closureOf := func(start store.StateId) []store.StateId {
		seen := map[store.StateId]bool{start: true}
		stack := []store.StateId{start}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			st, ok := u.GetState(id, true)
			if !ok {
				continue
			}
			for _, t := range st.Transitions {
				ev := u.GetEvent(t.Event)
				if ev == nil {
					continue
				}
				vec, isVec := ev.LabelVector()
				if !isVec || !vec.UnobservableTo(controllerIndex) {
					continue
				}
				if !seen[t.Target] {
					seen[t.Target] = true
					stack = append(stack, t.Target)
				}
			}
		}
		out := make([]store.StateId, 0, len(seen))
		for id := range seen {
			out = append(out, id)
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out
	}

	getOrCreateCrushState := func(members []store.StateId) (store.StateId, bool) {
		key := uint64(automaton.CombineIDs(members, maxId))
		if id, ok := ids[key]; ok {
			return id, false
		}
		label := crushLabel(u.Automaton, members)
		marked := false
		for _, m := range members {
			if st, ok := u.GetState(m, false); ok && st.Marked {
				marked = true
				break
			}
		}
		id := store.StateId(len(ids) + 1)
		out.AddStateAt(label, marked, nil, len(ids) == 0, id)
		ids[key] = id
		closures[id] = members
		return id, true
	}

	initMembers := closureOf(u.InitialStateID())
	initID, _ := getOrCreateCrushState(initMembers)

	visited := map[store.StateId]bool{}
	stack := []store.StateId{initID}
	for len(stack) > 0 {
		cid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cid] {
			continue
		}
		visited[cid] = true
		members := closures[cid]

		for _, ev := range u.GetEvents() {
			vec, isVec := ev.LabelVector()
			if !isVec || vec.UnobservableTo(controllerIndex) {
				continue
			}
			var reached []store.StateId
			reachedSet := map[store.StateId]bool{}
			var costs []int64
			var probs []float64
			for _, m := range members {
				st, ok := u.GetState(m, true)
				if !ok {
					continue
				}
				for _, t := range st.Transitions {
					if t.Event != ev.ID {
						continue
					}
					closure := closureOf(t.Target)
					for _, c := range closure {
						if !reachedSet[c] {
							reachedSet[c] = true
							reached = append(reached, c)
						}
					}
					for _, nd := range u.NashCommunications() {
						if nd.Communication.Transition.InitialState == m && nd.Communication.Transition.Event == uint32(ev.ID) {
							costs = append(costs, nd.Cost)
							probs = append(probs, nd.Probability)
						}
					}
				}
			}
			if len(reached) == 0 {
				continue
			}
			sort.Slice(reached, func(i, j int) bool { return reached[i] < reached[j] })
			targetID, isNew := getOrCreateCrushState(reached)
			outEv := out.GetEventByLabel(ev.Label)
			var outEvID event.EventId
			if outEv == nil {
				outEvID = out.AddEvent(ev.Label, ev.Observable, ev.Controllable)
			} else {
				outEvID = outEv.ID
			}
			out.AddTransition(cid, outEvID, targetID)
			if len(costs) > 0 {
				combinedCost, combinedProb := combineCosts.apply(costs, probs)
				out.AddNashCommunication(cid, outEvID, targetID, make([]store.Role, h.NControllers), combinedCost, combinedProb)
			}
			if isNew {
				stack = append(stack, targetID)
			}
		}
	}
	return out, nil
}

// apply combines a set of costs/probabilities per the policy: MAX, SUM
// (saturating well below int64 overflow), or AVERAGE. Probabilities
// always sum, capped at 1.
func (p CostPolicy) apply(costs []int64, probs []float64) (int64, float64) {
	var sum int64
	var max int64
	for _, c := range costs {
		if c > max {
			max = c
		}
		if c > (1<<62)-sum {
			sum = 1 << 62 // saturate well below overflow.
		} else {
			sum += c
		}
	}
	var probSum float64
	for _, pr := range probs {
		probSum += pr
	}
	if probSum > 1 {
		probSum = 1
	}
	switch p {
	case CostMax:
		return max, probSum
	case CostSum:
		return sum, probSum
	case CostAverage:
		k := int64(len(costs))
		if k == 0 {
			return 0, probSum
		}
		return sum / k, probSum
	default:
		return sum, probSum
	}
}

// crushLabel joins member states' labels, sorted canonically, as
// `<L_a,L_b,...>`.
func crushLabel(g *automaton.Automaton, members []store.StateId) string {
	labels := make([]string, 0, len(members))
	for _, id := range members {
		if st, ok := g.GetState(id, false); ok {
			labels = append(labels, st.Label)
		}
	}
	sort.Strings(labels)
	return "<" + strings.Join(labels, ",") + ">"
}
