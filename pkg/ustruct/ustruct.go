// Package ustruct implements synchronized composition of a plant automaton
// with a tuple of controller estimates into a U-Structure, and the prune
// and crush transforms over it.
package ustruct

import (
	"github.com/oisee/ustructctl/pkg/automaton"
	"github.com/oisee/ustructctl/pkg/event"
	"github.com/oisee/ustructctl/pkg/store"
)

// UStructure wraps an Automaton of Kind TypeUStructure or
// TypePrunedUStructure and adds the kind-specific special-transition
// builders/getters beyond the base Automaton builder interface. Embedding
// is preferred over a subclass hierarchy here: every base CRUD/
// reachability/intersection method is inherited unchanged.
type UStructure struct {
	*automaton.Automaton
}

func newUStructure(headerPath, bodyPath string, t store.AutomatonType, nControllers int) (*UStructure, error) {
	a, err := automaton.NewOfType(headerPath, bodyPath, t, automaton.Options{
		StateCapacity:      1,
		TransitionCapacity: 1,
		LabelLength:        1,
		NControllers:       nControllers,
		ClearFiles:         true,
	})
	if err != nil {
		return nil, err
	}
	return &UStructure{Automaton: a}, nil
}

// AddUnconditionalViolation records (start,event,target) in
// unconditionalViolations.
func (u *UStructure) AddUnconditionalViolation(start store.StateId, ev event.EventId, target store.StateId) {
	h := u.Store().Header()
	h.UnconditionalViolations = append(h.UnconditionalViolations, td(start, ev, target))
	_ = u.Store().Flush()
}

// AddConditionalViolation records (start,event,target) in
// conditionalViolations.
func (u *UStructure) AddConditionalViolation(start store.StateId, ev event.EventId, target store.StateId) {
	h := u.Store().Header()
	h.ConditionalViolations = append(h.ConditionalViolations, td(start, ev, target))
	_ = u.Store().Flush()
}

// AddPotentialCommunication records a candidate communication: a transition
// plus the per-controller sender/receiver roles.
func (u *UStructure) AddPotentialCommunication(start store.StateId, ev event.EventId, target store.StateId, roles []store.Role) {
	h := u.Store().Header()
	h.PotentialCommunications = append(h.PotentialCommunications, store.CommunicationData{
		Transition: td(start, ev, target),
		Roles:      append([]store.Role(nil), roles...),
	})
	_ = u.Store().Flush()
}

// AddNashCommunication records a communication with an associated
// non-negative saturating cost and a probability clamped to [0,1].
func (u *UStructure) AddNashCommunication(start store.StateId, ev event.EventId, target store.StateId, roles []store.Role, cost int64, probability float64) {
	if cost < 0 {
		cost = 0
	}
	if probability < 0 {
		probability = 0
	} else if probability > 1 {
		probability = 1
	}
	h := u.Store().Header()
	h.NashCommunications = append(h.NashCommunications, store.NashCommunicationData{
		Communication: store.CommunicationData{
			Transition: td(start, ev, target),
			Roles:      append([]store.Role(nil), roles...),
		},
		Cost:        cost,
		Probability: probability,
	})
	_ = u.Store().Flush()
}

// AddDisablementDecision records, per controller, whether it disables the
// given transition.
func (u *UStructure) AddDisablementDecision(start store.StateId, ev event.EventId, target store.StateId, disables []bool) {
	h := u.Store().Header()
	h.DisablementDecisions = append(h.DisablementDecisions, store.DisablementData{
		Transition: td(start, ev, target),
		Disables:   append([]bool(nil), disables...),
	})
	_ = u.Store().Flush()
}

// UnconditionalViolations, ConditionalViolations, PotentialCommunications,
// NashCommunications, and DisablementDecisions expose the corresponding
// header tables read-only.
func (u *UStructure) UnconditionalViolations() []store.TransitionData {
	return u.Store().Header().UnconditionalViolations
}
func (u *UStructure) ConditionalViolations() []store.TransitionData {
	return u.Store().Header().ConditionalViolations
}
func (u *UStructure) PotentialCommunications() []store.CommunicationData {
	return u.Store().Header().PotentialCommunications
}
func (u *UStructure) NashCommunications() []store.NashCommunicationData {
	return u.Store().Header().NashCommunications
}
func (u *UStructure) DisablementDecisions() []store.DisablementData {
	return u.Store().Header().DisablementDecisions
}

func td(start store.StateId, ev event.EventId, target store.StateId) store.TransitionData {
	return store.TransitionData{InitialState: start, Event: uint32(ev), TargetState: target}
}
