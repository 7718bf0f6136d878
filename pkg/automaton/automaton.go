// Package automaton implements the base automaton: state/event/transition
// CRUD over a disk-backed store.Store, ID allocation, capacity growth
// (delegated to store.Store), reachability queries, accessibility /
// co-accessibility / trim, and binary intersection / union.
package automaton

import (
	"github.com/pkg/errors"

	"github.com/oisee/ustructctl/pkg/event"
	"github.com/oisee/ustructctl/pkg/store"
)

// MaxStateCapacity mirrors store.MaxStateCapacity; re-exported so callers
// building against this package need not import pkg/store directly.
const MaxStateCapacity = store.MaxStateCapacity

// Transition is the detached (event, target) view of an outgoing edge.
type Transition struct {
	Event  event.EventId
	Target store.StateId
}

// State is the decoded, in-memory view of one automaton state.
type State struct {
	ID          store.StateId
	Label       string
	Marked      bool
	Transitions []Transition // nil unless requested
}

// Automaton is one concrete type for all automaton kinds (plain,
// U-Structure, Pruned U-Structure), tagged rather than split into a
// subclass hierarchy. pkg/ustruct embeds this type and dispatches its own
// kind-specific operations on Kind().
type Automaton struct {
	store *store.Store

	// headerPath/bodyPath may be empty for automatons built via FromStore;
	// RenumberStates requires them to perform its in-place atomic file
	// swap.
	headerPath string
	bodyPath   string
}

// Options configures Automaton construction. ClearFiles selects between
// creating fresh (truncating any existing files) and opening existing
// files as-is.
type Options struct {
	StateCapacity      uint64
	TransitionCapacity uint32
	LabelLength        uint32
	NControllers       int
	ClearFiles         bool
}

// New constructs an Automaton per Options, creating fresh files when
// ClearFiles is set and opening existing ones (ignoring the capacity
// fields, which are then read from the file) otherwise.
func New(headerPath, bodyPath string, opts Options) (*Automaton, error) {
	return NewOfType(headerPath, bodyPath, store.TypeAutomaton, opts)
}

// NewOfType is New generalized over AutomatonType; pkg/ustruct uses it to
// allocate TypeUStructure/TypePrunedUStructure-tagged stores through the
// same Options/capacity-growth machinery plain automata use.
func NewOfType(headerPath, bodyPath string, t store.AutomatonType, opts Options) (*Automaton, error) {
	if opts.ClearFiles {
		s, err := store.Create(headerPath, bodyPath, t, opts.StateCapacity, opts.TransitionCapacity, opts.LabelLength, opts.NControllers)
		if err != nil {
			return nil, err
		}
		return &Automaton{store: s, headerPath: headerPath, bodyPath: bodyPath}, nil
	}
	return Open(headerPath, bodyPath)
}

// Open opens an existing automaton's header+body pair.
func Open(headerPath, bodyPath string) (*Automaton, error) {
	s, err := store.Open(headerPath, bodyPath)
	if err != nil {
		return nil, err
	}
	return &Automaton{store: s, headerPath: headerPath, bodyPath: bodyPath}, nil
}

// FromStore wraps an already-open store.Store of any Kind.
// headerPath/bodyPath may be empty if the store's backing paths are not
// known to the caller; RenumberStates/RemoveInactiveEvents then refuse.
func FromStore(s *store.Store, headerPath, bodyPath string) *Automaton {
	return &Automaton{store: s, headerPath: headerPath, bodyPath: bodyPath}
}

// Store exposes the underlying persistent store for packages (pkg/ustruct,
// pkg/operation) that need to read/write kind-specific special-transition
// tables this package doesn't itself interpret.
func (a *Automaton) Store() *store.Store { return a.store }

// Kind reports which automaton-family this store holds.
func (a *Automaton) Kind() store.AutomatonType { return a.store.Header().Type }

// Close releases the automaton's file handles.
func (a *Automaton) Close() error { return a.store.Close() }

// NumberOfStates returns the number of states added so far.
func (a *Automaton) NumberOfStates() uint64 { return a.store.Header().NStates }

// NumberOfControllers returns K.
func (a *Automaton) NumberOfControllers() int { return int(a.store.Header().NControllers) }

// InitialStateID returns the initial state id, or 0 if unspecified.
func (a *Automaton) InitialStateID() store.StateId { return a.store.Header().InitialState }

// SetInitialStateID sets the initial state pointer directly; used by
// operations (intersection, union, synchronized composition) that compute
// the initial composite state without going through AddState's
// isInitial flag.
func (a *Automaton) SetInitialStateID(id store.StateId) error {
	a.store.Header().InitialState = id
	return a.store.Flush()
}

// AddEvent registers a new event; returns 0 if label is a duplicate.
func (a *Automaton) AddEvent(label string, observable, controllable []bool) event.EventId {
	h := a.store.Header()
	id := h.Events.Add(label, observable, controllable)
	if id == 0 {
		return 0
	}
	if err := a.store.EnsureEventCapacity(int(id)); err != nil {
		h.Events.Remove(id)
		return 0
	}
	if err := a.store.Flush(); err != nil {
		h.Events.Remove(id)
		return 0
	}
	return id
}

// GetEvent returns the event with the given id, or nil.
func (a *Automaton) GetEvent(id event.EventId) *event.Event {
	return a.store.Header().Events.Get(id)
}

// GetEventByLabel returns the event with the given label, or nil.
func (a *Automaton) GetEventByLabel(label string) *event.Event {
	return a.store.Header().Events.ByLabel(label)
}

// GetEvents returns all events in insertion order.
func (a *Automaton) GetEvents() []*event.Event {
	return a.store.Header().Events.All()
}

// StateExists reports whether id names a real (non-padding) state record.
func (a *Automaton) StateExists(id store.StateId) bool {
	if id == 0 || uint64(id) > a.store.Header().StateCapacity {
		return false
	}
	rec, err := a.store.ReadState(id)
	if err != nil {
		return false
	}
	return rec.Exists
}

// GetState returns the decoded state at id, including its transitions iff
// withTransitions is true. ok is false if the slot does not hold a real
// state.
func (a *Automaton) GetState(id store.StateId, withTransitions bool) (State, bool) {
	rec, err := a.store.ReadState(id)
	if err != nil || !rec.Exists {
		return State{}, false
	}
	st := State{ID: id, Label: rec.Label, Marked: rec.Marked}
	if withTransitions {
		st.Transitions = make([]Transition, len(rec.Transitions))
		for i, t := range rec.Transitions {
			st.Transitions[i] = Transition{Event: event.EventId(t.Event), Target: t.Target}
		}
	}
	return st, true
}

// AddState appends a new state at nStates+1, optionally marking it
// initial. Returns 0 if the resulting id would exceed the store's maximum
// state capacity or label exceeds the maximum label length.
func (a *Automaton) AddState(label string, marked, isInitial bool) store.StateId {
	h := a.store.Header()
	newID := store.StateId(h.NStates + 1)
	if uint64(newID) > store.MaxStateCapacity || len(label) > store.MaxLabelLength {
		return 0
	}
	if !a.AddStateAt(label, marked, nil, isInitial, newID) {
		return 0
	}
	return newID
}

// AddStateAt places a state record at an explicit id, used by product
// operations that compute composite ids directly. It is a no-op (returns
// true without writing) if the slot already holds a real record.
// Capacities are grown to fit as needed.
func (a *Automaton) AddStateAt(label string, marked bool, transitions []Transition, isInitial bool, id store.StateId) bool {
	if id == 0 || len(label) > store.MaxLabelLength {
		return false
	}
	if a.StateExists(id) {
		return true
	}
	rec := storeRecordFrom(label, marked, transitions)
	if err := a.store.WriteState(id, rec); err != nil {
		return false
	}
	h := a.store.Header()
	if uint64(id) > h.NStates {
		h.NStates = uint64(id)
	}
	if isInitial {
		h.InitialState = id
	}
	if err := a.store.Flush(); err != nil {
		return false
	}
	return true
}

// AddTransition appends (eventId, targetId) to startId's outgoing
// transition list, growing transitionCapacity if necessary. Returns false
// if startId does not exist.
func (a *Automaton) AddTransition(startId store.StateId, eventId event.EventId, targetId store.StateId) bool {
	st, ok := a.GetState(startId, true)
	if !ok {
		return false
	}
	st.Transitions = append(st.Transitions, Transition{Event: eventId, Target: targetId})
	rec := storeRecordFrom(st.Label, st.Marked, st.Transitions)
	return a.store.WriteState(startId, rec) == nil
}

// RemoveTransition deletes the first (eventId,targetId) outgoing edge
// matching ev/target from startId's transition list. Returns false if
// startId does not exist or no such transition is present.
func (a *Automaton) RemoveTransition(startId store.StateId, eventId event.EventId, targetId store.StateId) bool {
	st, ok := a.GetState(startId, true)
	if !ok {
		return false
	}
	idx := -1
	for i, t := range st.Transitions {
		if t.Event == eventId && t.Target == targetId {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	st.Transitions = append(st.Transitions[:idx], st.Transitions[idx+1:]...)
	rec := storeRecordFrom(st.Label, st.Marked, st.Transitions)
	return a.store.WriteState(startId, rec) == nil
}

// MarkTransitionAsBad records (startId, eventId, targetId) in
// badTransitions. This is an annotation only; it does not require the
// transition to already exist in the body (producers are responsible for
// also calling AddTransition).
func (a *Automaton) MarkTransitionAsBad(startId store.StateId, eventId event.EventId, targetId store.StateId) {
	h := a.store.Header()
	h.BadTransitions = append(h.BadTransitions, storeTD(startId, eventId, targetId))
	_ = a.store.Flush()
}

// IsBadTransition reports whether (startId, eventId, targetId) has been
// marked bad.
func (a *Automaton) IsBadTransition(startId store.StateId, eventId event.EventId, targetId store.StateId) bool {
	want := storeTD(startId, eventId, targetId)
	for _, td := range a.store.Header().BadTransitions {
		if td == want {
			return true
		}
	}
	return false
}

func storeTD(start store.StateId, ev event.EventId, target store.StateId) store.TransitionData {
	return store.TransitionData{InitialState: start, Event: uint32(ev), TargetState: target}
}

func storeRecordFrom(label string, marked bool, transitions []Transition) store.StateRecord {
	rec := store.StateRecord{Exists: true, Marked: marked, Label: label}
	for _, t := range transitions {
		rec.Transitions = append(rec.Transitions, store.InBodyTransition{Event: uint32(t.Event), Target: t.Target})
	}
	return rec
}

// ErrControllerMismatch is returned by Intersection/Union when the two
// operands have different controller counts.
var ErrControllerMismatch = errors.New("automaton: controller count mismatch")
