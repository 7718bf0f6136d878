package store

import (
	"bytes"
	"os"

	natomic "github.com/natefinch/atomic"
	"github.com/pkg/errors"
)

// Capacity ceilings, chosen generously enough that no realistic synthesis
// workload hits them, while still bounding a single body record to a sane
// size.
const (
	MaxLabelLength        = 4096
	MaxTransitionCapacity = 1 << 20
	MaxStateCapacity      = ^uint64(0) // 256^8 - 1
)

// Store owns one automaton's Header file and Body file. File handles are
// acquired at construction (Create/Open) and must be released by an
// explicit Close on all exit paths, including error paths from any
// write-growing step.
type Store struct {
	headerPath string
	bodyPath   string
	header     *Header
	body       *Body
}

// Create allocates a brand-new store, writing an initial header and an
// empty (all-zero) body sized for the given capacities.
func Create(headerPath, bodyPath string, t AutomatonType, stateCapacity uint64, transitionCapacity uint32, labelLength uint32, nControllers int) (*Store, error) {
	h := NewHeader(t, nControllers)
	h.StateCapacity = normalizeStateCapacity(stateCapacity)
	h.TransitionCapacity = transitionCapacity
	h.LabelLength = labelLength
	h.EventCapacity = 16

	s := &Store{headerPath: headerPath, bodyPath: bodyPath, header: h}

	body, err := CreateBody(bodyPath, h.NBytesPerState())
	if err != nil {
		return nil, err
	}
	s.body = body
	// Pre-extend the body to the full capacity so ReadRecord/WriteRecord
	// never have to special-case a short file for in-range, unwritten
	// slots.
	if err := s.extendBody(h.StateCapacity); err != nil {
		s.body.Close()
		return nil, err
	}
	if err := s.writeHeader(); err != nil {
		s.body.Close()
		return nil, err
	}
	return s, nil
}

// Open opens an existing store, reading its header to recover layout
// parameters before opening the body file at the matching record size.
func Open(headerPath, bodyPath string) (*Store, error) {
	raw, err := os.ReadFile(headerPath)
	if err != nil {
		return nil, errors.Wrapf(err, "store: read header %s", headerPath)
	}
	h, err := DecodeHeader(raw)
	if err != nil {
		return nil, err
	}
	body, err := OpenBody(bodyPath, h.NBytesPerState())
	if err != nil {
		return nil, err
	}
	return &Store{headerPath: headerPath, bodyPath: bodyPath, header: h, body: body}, nil
}

// Header returns the store's live header. Callers may read it freely;
// mutations to capacity-affecting fields must go through Ensure* so the
// body layout stays consistent.
func (s *Store) Header() *Header { return s.header }

// Flush rewrites the header file. Callers that mutate metadata directly
// through Header() (new event, new special-transition annotation, initial-
// state pointer) must call Flush afterward; WriteState does this
// automatically as part of writing a state record.
func (s *Store) Flush() error { return s.writeHeader() }

// Close releases the body file handle. The header file is not held open:
// writeHeader replaces it whole on every metadata change.
func (s *Store) Close() error {
	return s.body.Close()
}

// writeHeader serializes and atomically replaces the header file; it runs
// on every metadata change.
func (s *Store) writeHeader() error {
	data := s.header.Encode()
	if err := natomic.WriteFile(s.headerPath, bytes.NewReader(data)); err != nil {
		return errors.Wrapf(err, "store: write header %s", s.headerPath)
	}
	return nil
}

// ReadState decodes the state record at id.
func (s *Store) ReadState(id StateId) (StateRecord, error) {
	buf, err := s.body.ReadRecord(id)
	if err != nil {
		return StateRecord{}, err
	}
	return DecodeStateRecord(s.header, buf), nil
}

// WriteState grows capacities as needed and then encodes and writes the
// record at id, rewriting the header afterward.
func (s *Store) WriteState(id StateId, rec StateRecord) error {
	if err := s.EnsureStateCapacity(id); err != nil {
		return err
	}
	if err := s.EnsureLabelLength(len(rec.Label)); err != nil {
		return err
	}
	if err := s.EnsureTransitionCapacity(len(rec.Transitions)); err != nil {
		return err
	}
	buf := EncodeStateRecord(s.header, rec)
	if err := s.body.WriteRecord(id, buf); err != nil {
		return err
	}
	return s.writeHeader()
}

// EnsureLabelLength grows LabelLength (and rewrites the body) if n exceeds
// the current capacity, up to MaxLabelLength.
func (s *Store) EnsureLabelLength(n int) error {
	if n <= int(s.header.LabelLength) {
		return nil
	}
	if n > MaxLabelLength {
		return errors.Errorf("store: label length %d exceeds MAX_LABEL_LENGTH %d", n, MaxLabelLength)
	}
	return s.growBody(func(h *Header) { h.LabelLength = uint32(n) })
}

// EnsureTransitionCapacity grows TransitionCapacity (and rewrites the
// body) if n exceeds the current capacity, up to MaxTransitionCapacity.
func (s *Store) EnsureTransitionCapacity(n int) error {
	if n <= int(s.header.TransitionCapacity) {
		return nil
	}
	if n > MaxTransitionCapacity {
		return errors.Errorf("store: transition count %d exceeds MAX_TRANSITION_CAPACITY %d", n, MaxTransitionCapacity)
	}
	return s.growBody(func(h *Header) { h.TransitionCapacity = uint32(n) })
}

// EnsureStateCapacity grows StateCapacity (and, if nBytesPerStateId must
// widen, rewrites the body) so that id is addressable.
func (s *Store) EnsureStateCapacity(id StateId) error {
	if uint64(id) <= s.header.StateCapacity {
		return nil
	}
	if uint64(id) > MaxStateCapacity {
		return errors.Errorf("store: state id %d exceeds MAX_STATE_CAPACITY", id)
	}
	newCap := normalizeStateCapacity(uint64(id))
	return s.growBody(func(h *Header) { h.StateCapacity = newCap })
}

// EnsureEventCapacity grows EventCapacity (and rewrites the body, whether
// or not nBytesPerEventId widens) so a new event id up to n is addressable.
// Unlike StateCapacity's fixed (256^k)-1 steps, EventCapacity has no
// stated stepping rule, so it grows by amortized doubling.
func (s *Store) EnsureEventCapacity(n int) error {
	if n <= int(s.header.EventCapacity) {
		return nil
	}
	newCap := uint32(n)
	if doubled := s.header.EventCapacity * 2; doubled > newCap {
		newCap = doubled
	}
	return s.growBody(func(h *Header) { h.EventCapacity = newCap })
}

// normalizeStateCapacity returns the smallest (256^k)-1 >= min, k in 1..8,
// so StateId always fits in a whole number of bytes.
func normalizeStateCapacity(min uint64) uint64 {
	for k := 1; k <= 8; k++ {
		var cap uint64
		if k == 8 {
			cap = ^uint64(0)
		} else {
			cap = uint64(1)<<(uint(k)*8) - 1
		}
		if cap >= min {
			return cap
		}
	}
	return ^uint64(0)
}

// growBody applies mutate to a copy of the header's capacity fields, then
// performs the full body rewrite a capacity grow requires: every existing
// record is re-decoded under the old layout and re-encoded under the new
// one, written to a temp file, and atomically swapped in for the live
// body file.
func (s *Store) growBody(mutate func(*Header)) error {
	oldHeader := *s.header
	newHeader := oldHeader
	mutate(&newHeader)
	// Events map/transition tables are shared by reference with the
	// header struct; re-point the copies so mutate() above, which only
	// touches scalar capacity fields, can't accidentally diverge them.
	newHeader.Events = oldHeader.Events

	newRecordSize := newHeader.NBytesPerState()
	tmpPath := s.bodyPath + ".grow.tmp"
	newBody, err := CreateBody(tmpPath, newRecordSize)
	if err != nil {
		return err
	}

	oldCap := oldHeader.StateCapacity
	for id := uint64(1); id <= oldCap; id++ {
		rec, err := s.ReadState(StateId(id))
		if err != nil {
			newBody.Close()
			os.Remove(tmpPath)
			return err
		}
		if !rec.Exists {
			continue
		}
		buf := EncodeStateRecord(&newHeader, rec)
		if err := newBody.WriteRecord(StateId(id), buf); err != nil {
			newBody.Close()
			os.Remove(tmpPath)
			return err
		}
	}
	if err := newBody.Sync(); err != nil {
		newBody.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := newBody.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := s.body.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := natomic.ReplaceFile(tmpPath, s.bodyPath); err != nil {
		return errors.Wrap(err, "store: atomic body swap")
	}

	reopened, err := OpenBody(s.bodyPath, newRecordSize)
	if err != nil {
		return err
	}
	s.body = reopened
	*s.header = newHeader
	return s.writeHeader()
}

// extendBody pre-extends the body file to hold cap slots of zero bytes,
// so subsequent reads of in-range but never-written slots see a
// well-formed "does not exist" record rather than a short read.
func (s *Store) extendBody(cap uint64) error {
	if cap == 0 {
		return nil
	}
	zero := make([]byte, s.body.RecordSize())
	return s.body.WriteRecord(StateId(cap), zero)
}

