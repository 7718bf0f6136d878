// Package event implements event identity and the label-vector algebra
// (observability/controllability per controller, vector compatibility and
// join) that drives synchronized composition and crush.
package event

import "github.com/pkg/errors"

// EventId identifies an Event within one automaton, in [1, EVENT_CAP].
// 0 is reserved as "null".
type EventId uint32

// Event is identified by its Label; IDs are assigned in insertion order and
// may be reassigned on relabel/renumber. Equality between events is by
// label, never by ID.
type Event struct {
	ID           EventId
	Label        string
	Observable   []bool // length nControllers
	Controllable []bool // length nControllers
}

// NumControllers returns K, the number of controllers this event carries
// per-controller flags for.
func (e *Event) NumControllers() int {
	return len(e.Observable)
}

// IsObservableTo reports whether controller i observes this event.
func (e *Event) IsObservableTo(i int) bool {
	return i >= 0 && i < len(e.Observable) && e.Observable[i]
}

// IsControllableBy reports whether controller i can control this event.
func (e *Event) IsControllableBy(i int) bool {
	return i >= 0 && i < len(e.Controllable) && e.Controllable[i]
}

// LabelVector reports whether the event's label is a vectorized label
// (`<a_b_*>` form); see ParseLabelVector.
func (e *Event) LabelVector() (LabelVector, bool) {
	return ParseLabelVector(e.Label)
}

// ErrDuplicateLabel names a label collision. No EventSet operation returns
// it: Add reports a duplicate label with a 0 id, the builder layer's
// sentinel contract.
var ErrDuplicateLabel = errors.New("event: duplicate label")

// EventSet holds an automaton's event catalog. Iteration (Each) is always
// in insertion order: header writes and builder-script generation require
// it to be stable, even though correctness elsewhere doesn't depend on it.
type EventSet struct {
	byLabel map[string]EventId
	byID    map[EventId]*Event
	order   []EventId
	nextID  EventId
}

// NewEventSet returns an empty event set.
func NewEventSet() *EventSet {
	return &EventSet{
		byLabel: make(map[string]EventId),
		byID:    make(map[EventId]*Event),
	}
}

// Add registers a new event with the given label and per-controller
// observable/controllable flags. It returns 0 if the label is already
// present. obs and ctrl must have equal length (K); the caller owns
// validating K against the automaton's nControllers.
func (s *EventSet) Add(label string, obs, ctrl []bool) EventId {
	if _, exists := s.byLabel[label]; exists {
		return 0
	}
	s.nextID++
	id := s.nextID
	ev := &Event{
		ID:           id,
		Label:        label,
		Observable:   append([]bool(nil), obs...),
		Controllable: append([]bool(nil), ctrl...),
	}
	s.byLabel[label] = id
	s.byID[id] = ev
	s.order = append(s.order, id)
	return id
}

// AddWithID registers an event at an explicit ID, used when decoding a
// header's event table or when a renumber pass must preserve an external
// numbering. It overwrites any prior entry at that ID.
func (s *EventSet) AddWithID(id EventId, label string, obs, ctrl []bool) {
	if _, exists := s.byID[id]; !exists {
		s.order = append(s.order, id)
	}
	ev := &Event{
		ID:           id,
		Label:        label,
		Observable:   append([]bool(nil), obs...),
		Controllable: append([]bool(nil), ctrl...),
	}
	s.byLabel[label] = id
	s.byID[id] = ev
	if id > s.nextID {
		s.nextID = id
	}
}

// Get returns the event for id, or nil if none exists. Lookup is total for
// id in [1,|E|]; a nil return for an id outside that range signals caller
// error, not a valid "no event" state.
func (s *EventSet) Get(id EventId) *Event {
	return s.byID[id]
}

// ByLabel returns the event with the given label, or nil.
func (s *EventSet) ByLabel(label string) *Event {
	id, ok := s.byLabel[label]
	if !ok {
		return nil
	}
	return s.byID[id]
}

// Len returns the number of events in the set.
func (s *EventSet) Len() int {
	return len(s.order)
}

// Each calls fn for every event in insertion order. fn should return false
// to stop iteration early.
func (s *EventSet) Each(fn func(*Event) bool) {
	for _, id := range s.order {
		if !fn(s.byID[id]) {
			return
		}
	}
}

// All returns a snapshot slice of all events in insertion order.
func (s *EventSet) All() []*Event {
	out := make([]*Event, 0, len(s.order))
	s.Each(func(e *Event) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Remove deletes the event with the given id, if present, compacting the
// iteration order. Callers needing a dense 1..m renumbering (see
// automaton.RemoveInactiveEvents) do that separately.
func (s *EventSet) Remove(id EventId) {
	ev, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	delete(s.byLabel, ev.Label)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
