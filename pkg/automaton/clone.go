package automaton

import (
	"github.com/pkg/errors"

	"github.com/oisee/ustructctl/pkg/store"
)

// CloneTo copies every state, transition, event, and special-transition
// table into a fresh automaton of kind t at headerPath/bodyPath, preserving
// state and event ids exactly (no renumbering). Used by pkg/ustruct's
// Prune (U-Structure -> Pruned U-Structure), which needs a full working
// copy to mutate independently of the source.
func (a *Automaton) CloneTo(headerPath, bodyPath string, t store.AutomatonType) (*Automaton, error) {
	h := a.store.Header()
	out, err := NewOfType(headerPath, bodyPath, t, Options{
		StateCapacity:      h.StateCapacity,
		TransitionCapacity: h.TransitionCapacity,
		LabelLength:        h.LabelLength,
		NControllers:       int(h.NControllers),
		ClearFiles:         true,
	})
	if err != nil {
		return nil, err
	}
	oh := out.store.Header()

	for _, ev := range a.GetEvents() {
		oh.Events.AddWithID(ev.ID, ev.Label, ev.Observable, ev.Controllable)
	}

	n := a.NumberOfStates()
	for id := store.StateId(1); uint64(id) <= n; id++ {
		st, ok := a.GetState(id, true)
		if !ok {
			continue
		}
		if !out.AddStateAt(st.Label, st.Marked, st.Transitions, id == a.InitialStateID(), id) {
			out.Close()
			return nil, errors.Errorf("automaton: failed to clone state %d", id)
		}
	}

	oh.BadTransitions = append([]store.TransitionData(nil), h.BadTransitions...)
	oh.UnconditionalViolations = append([]store.TransitionData(nil), h.UnconditionalViolations...)
	oh.ConditionalViolations = append([]store.TransitionData(nil), h.ConditionalViolations...)
	oh.SuppressedTransitions = append([]store.TransitionData(nil), h.SuppressedTransitions...)
	oh.PotentialCommunications = append([]store.CommunicationData(nil), h.PotentialCommunications...)
	oh.InvalidCommunications = append([]store.CommunicationData(nil), h.InvalidCommunications...)
	oh.NashCommunications = append([]store.NashCommunicationData(nil), h.NashCommunications...)
	oh.DisablementDecisions = append([]store.DisablementData(nil), h.DisablementDecisions...)
	if err := out.store.Flush(); err != nil {
		out.Close()
		return nil, err
	}
	return out, nil
}
