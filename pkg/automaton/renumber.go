package automaton

import (
	"os"

	natomic "github.com/natefinch/atomic"
	"github.com/pkg/errors"

	"github.com/oisee/ustructctl/pkg/event"
	"github.com/oisee/ustructctl/pkg/store"
)

// RenumberStates compacts the automaton's state ids to a dense 1..nStates
// range, preserving relative order, and rewrites every reference to a
// StateId: in-body transition targets, the initial-state pointer, and every
// special-transition table the header carries, so that every state in
// [1,nStates] exists with no gaps afterward. It rewrites headerPath/bodyPath
// in place via a temp-file-then-atomic-swap,
// mirroring the capacity-growth rewrite in pkg/store.
func (a *Automaton) RenumberStates() error {
	if a.headerPath == "" || a.bodyPath == "" {
		return errors.New("automaton: RenumberStates requires an automaton opened by path")
	}

	h := a.store.Header()
	remap := map[store.StateId]store.StateId{}
	var next uint64
	for id := store.StateId(1); uint64(id) <= h.StateCapacity; id++ {
		if a.StateExists(id) {
			next++
			remap[id] = store.StateId(next)
		}
	}

	tmpHeader := a.headerPath + ".renumber.tmp"
	tmpBody := a.bodyPath + ".renumber.tmp"
	newStore, err := store.Create(tmpHeader, tmpBody, h.Type, next, h.TransitionCapacity, h.LabelLength, int(h.NControllers))
	if err != nil {
		return err
	}
	nh := newStore.Header()
	nh.Events = h.Events

	for oldID, newID := range remap {
		rec, err := a.store.ReadState(oldID)
		if err != nil {
			newStore.Close()
			os.Remove(tmpHeader)
			os.Remove(tmpBody)
			return err
		}
		for i, t := range rec.Transitions {
			rec.Transitions[i].Target = remapOr(remap, t.Target)
		}
		if err := newStore.WriteState(newID, rec); err != nil {
			newStore.Close()
			os.Remove(tmpHeader)
			os.Remove(tmpBody)
			return err
		}
	}

	nh.NStates = next
	nh.InitialState = remapOr(remap, h.InitialState)
	nh.BadTransitions = remapTransitionList(remap, h.BadTransitions)
	nh.UnconditionalViolations = remapTransitionList(remap, h.UnconditionalViolations)
	nh.ConditionalViolations = remapTransitionList(remap, h.ConditionalViolations)
	nh.SuppressedTransitions = remapTransitionList(remap, h.SuppressedTransitions)
	nh.PotentialCommunications = remapCommunicationList(remap, h.PotentialCommunications)
	nh.InvalidCommunications = remapCommunicationList(remap, h.InvalidCommunications)
	nh.NashCommunications = remapNashList(remap, h.NashCommunications)
	nh.DisablementDecisions = remapDisablementList(remap, h.DisablementDecisions)
	if err := newStore.Flush(); err != nil {
		newStore.Close()
		os.Remove(tmpHeader)
		os.Remove(tmpBody)
		return err
	}
	if err := newStore.Close(); err != nil {
		return err
	}
	if err := a.store.Close(); err != nil {
		return err
	}
	if err := natomic.ReplaceFile(tmpBody, a.bodyPath); err != nil {
		return errors.Wrap(err, "automaton: atomic body swap during renumber")
	}
	if err := natomic.ReplaceFile(tmpHeader, a.headerPath); err != nil {
		return errors.Wrap(err, "automaton: atomic header swap during renumber")
	}

	reopened, err := store.Open(a.headerPath, a.bodyPath)
	if err != nil {
		return err
	}
	a.store = reopened
	return nil
}

func remapOr(remap map[store.StateId]store.StateId, id store.StateId) store.StateId {
	if id == 0 {
		return 0
	}
	if n, ok := remap[id]; ok {
		return n
	}
	return id
}

func remapTransitionList(remap map[store.StateId]store.StateId, list []store.TransitionData) []store.TransitionData {
	if list == nil {
		return nil
	}
	out := make([]store.TransitionData, len(list))
	for i, td := range list {
		out[i] = store.TransitionData{
			InitialState: remapOr(remap, td.InitialState),
			Event:        td.Event,
			TargetState:  remapOr(remap, td.TargetState),
		}
	}
	return out
}

func remapCommunicationList(remap map[store.StateId]store.StateId, list []store.CommunicationData) []store.CommunicationData {
	if list == nil {
		return nil
	}
	out := make([]store.CommunicationData, len(list))
	for i, cd := range list {
		out[i] = store.CommunicationData{
			Transition: remapTransitionList(remap, []store.TransitionData{cd.Transition})[0],
			Roles:      cd.Roles,
		}
	}
	return out
}

func remapNashList(remap map[store.StateId]store.StateId, list []store.NashCommunicationData) []store.NashCommunicationData {
	if list == nil {
		return nil
	}
	out := make([]store.NashCommunicationData, len(list))
	for i, nd := range list {
		out[i] = store.NashCommunicationData{
			Communication: remapCommunicationList(remap, []store.CommunicationData{nd.Communication})[0],
			Cost:          nd.Cost,
			Probability:   nd.Probability,
		}
	}
	return out
}

func remapDisablementList(remap map[store.StateId]store.StateId, list []store.DisablementData) []store.DisablementData {
	if list == nil {
		return nil
	}
	out := make([]store.DisablementData, len(list))
	for i, dd := range list {
		out[i] = store.DisablementData{
			Transition: remapTransitionList(remap, []store.TransitionData{dd.Transition})[0],
			Disables:   dd.Disables,
		}
	}
	return out
}

// RemoveInactiveEvents drops every event with no transition referencing it
// anywhere in the body or in any special-transition table, compacting the
// remaining events to a dense 1..m id range and remapping every stored
// event-id reference accordingly. It does not check the automaton's kind.
// Idempotent, since a second pass finds every remaining event already
// active.
func (a *Automaton) RemoveInactiveEvents() error {
	if a.headerPath == "" || a.bodyPath == "" {
		return errors.New("automaton: RemoveInactiveEvents requires an automaton opened by path")
	}

	h := a.store.Header()
	active := map[event.EventId]bool{}
	n := a.NumberOfStates()
	for id := store.StateId(1); uint64(id) <= n; id++ {
		st, ok := a.GetState(id, true)
		if !ok {
			continue
		}
		for _, t := range st.Transitions {
			active[t.Event] = true
		}
	}
	markActive := func(list []store.TransitionData) {
		for _, td := range list {
			active[event.EventId(td.Event)] = true
		}
	}
	markActive(h.BadTransitions)
	markActive(h.UnconditionalViolations)
	markActive(h.ConditionalViolations)
	markActive(h.SuppressedTransitions)
	for _, cd := range h.PotentialCommunications {
		active[event.EventId(cd.Transition.Event)] = true
	}
	for _, cd := range h.InvalidCommunications {
		active[event.EventId(cd.Transition.Event)] = true
	}
	for _, nd := range h.NashCommunications {
		active[event.EventId(nd.Communication.Transition.Event)] = true
	}
	for _, dd := range h.DisablementDecisions {
		active[event.EventId(dd.Transition.Event)] = true
	}

	evRemap := map[event.EventId]event.EventId{}
	newSet := event.NewEventSet()
	var nextID event.EventId
	for _, ev := range h.Events.All() {
		if !active[ev.ID] {
			continue
		}
		nextID++
		evRemap[ev.ID] = nextID
		newSet.AddWithID(nextID, ev.Label, ev.Observable, ev.Controllable)
	}
	if len(evRemap) == h.Events.Len() {
		// Nothing to drop or renumber; still idempotent to return early.
		return nil
	}

	tmpHeader := a.headerPath + ".inactive.tmp"
	tmpBody := a.bodyPath + ".inactive.tmp"
	newStore, err := store.Create(tmpHeader, tmpBody, h.Type, h.StateCapacity, h.TransitionCapacity, h.LabelLength, int(h.NControllers))
	if err != nil {
		return err
	}
	nh := newStore.Header()
	nh.Events = newSet
	nh.NStates = h.NStates
	nh.InitialState = h.InitialState

	remapEv := func(e uint32) uint32 { return uint32(evRemap[event.EventId(e)]) }
	for id := store.StateId(1); uint64(id) <= n; id++ {
		rec, err := a.store.ReadState(id)
		if err != nil {
			newStore.Close()
			os.Remove(tmpHeader)
			os.Remove(tmpBody)
			return err
		}
		if !rec.Exists {
			continue
		}
		for i, t := range rec.Transitions {
			rec.Transitions[i].Event = remapEv(t.Event)
		}
		if err := newStore.WriteState(id, rec); err != nil {
			newStore.Close()
			os.Remove(tmpHeader)
			os.Remove(tmpBody)
			return err
		}
	}

	remapTD := func(td store.TransitionData) store.TransitionData {
		td.Event = remapEv(td.Event)
		return td
	}
	remapTDList := func(list []store.TransitionData) []store.TransitionData {
		if list == nil {
			return nil
		}
		out := make([]store.TransitionData, len(list))
		for i, td := range list {
			out[i] = remapTD(td)
		}
		return out
	}
	nh.BadTransitions = remapTDList(h.BadTransitions)
	nh.UnconditionalViolations = remapTDList(h.UnconditionalViolations)
	nh.ConditionalViolations = remapTDList(h.ConditionalViolations)
	nh.SuppressedTransitions = remapTDList(h.SuppressedTransitions)
	for _, cd := range h.PotentialCommunications {
		nh.PotentialCommunications = append(nh.PotentialCommunications, store.CommunicationData{Transition: remapTD(cd.Transition), Roles: cd.Roles})
	}
	for _, cd := range h.InvalidCommunications {
		nh.InvalidCommunications = append(nh.InvalidCommunications, store.CommunicationData{Transition: remapTD(cd.Transition), Roles: cd.Roles})
	}
	for _, nd := range h.NashCommunications {
		nh.NashCommunications = append(nh.NashCommunications, store.NashCommunicationData{
			Communication: store.CommunicationData{Transition: remapTD(nd.Communication.Transition), Roles: nd.Communication.Roles},
			Cost:          nd.Cost,
			Probability:   nd.Probability,
		})
	}
	for _, dd := range h.DisablementDecisions {
		nh.DisablementDecisions = append(nh.DisablementDecisions, store.DisablementData{Transition: remapTD(dd.Transition), Disables: dd.Disables})
	}

	if err := newStore.Flush(); err != nil {
		newStore.Close()
		os.Remove(tmpHeader)
		os.Remove(tmpBody)
		return err
	}
	if err := newStore.Close(); err != nil {
		return err
	}
	if err := a.store.Close(); err != nil {
		return err
	}
	if err := natomic.ReplaceFile(tmpBody, a.bodyPath); err != nil {
		return errors.Wrap(err, "automaton: atomic body swap during inactive-event removal")
	}
	if err := natomic.ReplaceFile(tmpHeader, a.headerPath); err != nil {
		return errors.Wrap(err, "automaton: atomic header swap during inactive-event removal")
	}

	reopened, err := store.Open(a.headerPath, a.bodyPath)
	if err != nil {
		return err
	}
	a.store = reopened
	return nil
}
