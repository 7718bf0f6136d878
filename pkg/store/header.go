package store

import (
	"github.com/pkg/errors"

	"github.com/oisee/ustructctl/pkg/bytecodec"
	"github.com/oisee/ustructctl/pkg/event"
)

// headerFixedSize is the 45-byte fixed prefix every header starts with,
// before the variable-length event and special-transition trailer.
const headerFixedSize = 1 + 8 + 4 + 8 + 4 + 4 + 8 + 4 + 4

// ErrCorruptHeader is wrapped around any header decode failure where the
// bytes on disk are inconsistent with the declared field widths or counts.
var ErrCorruptHeader = errors.New("store: corrupt header")

// Header holds an automaton's metadata, its event catalog, and its
// special-transition annotation tables.
type Header struct {
	Type               AutomatonType
	NStates            uint64
	EventCapacity      uint32
	StateCapacity      uint64
	TransitionCapacity uint32
	LabelLength        uint32
	InitialState       StateId
	NControllers       uint32
	Events             *event.EventSet

	BadTransitions []TransitionData

	// U-Structure / Pruned U-Structure only.
	UnconditionalViolations []TransitionData
	ConditionalViolations   []TransitionData
	PotentialCommunications []CommunicationData
	InvalidCommunications   []CommunicationData
	NashCommunications      []NashCommunicationData
	DisablementDecisions    []DisablementData
	SuppressedTransitions   []TransitionData
}

// NewHeader returns a freshly initialized Header of the given type and
// controller count, with an empty event set.
func NewHeader(t AutomatonType, nControllers int) *Header {
	return &Header{
		Type:         t,
		NControllers: uint32(nControllers),
		Events:       event.NewEventSet(),
	}
}

// NBytesPerStateId is the minimum k with 256^k-1 >= StateCapacity.
func (h *Header) NBytesPerStateId() int {
	return bytecodec.MinWidth(h.StateCapacity)
}

// NBytesPerEventId is sized analogously from EventCapacity.
func (h *Header) NBytesPerEventId() int {
	return bytecodec.MinWidth(uint64(h.EventCapacity))
}

// NBytesPerState is the fixed body-record size: flag byte + label bytes +
// transition slots.
func (h *Header) NBytesPerState() int {
	return 1 + int(h.LabelLength) + int(h.TransitionCapacity)*(h.NBytesPerEventId()+h.NBytesPerStateId())
}

// hasUStructureTables reports whether this header's type carries the
// U-Structure/Pruned-U-Structure special-transition tables beyond
// BadTransitions.
func (h *Header) hasUStructureTables() bool {
	return h.Type == TypeUStructure || h.Type == TypePrunedUStructure
}

// Encode serializes the header to its on-disk byte representation.
func (h *Header) Encode() []byte {
	buf := make([]byte, headerFixedSize)
	buf[0] = byte(h.Type)
	bytecodec.PutUint(buf, 1, h.NStates, 8)
	bytecodec.PutUint(buf, 9, uint64(h.EventCapacity), 4)
	bytecodec.PutUint(buf, 13, h.StateCapacity, 8)
	bytecodec.PutUint(buf, 21, uint64(h.TransitionCapacity), 4)
	bytecodec.PutUint(buf, 25, uint64(h.LabelLength), 4)
	bytecodec.PutUint(buf, 29, uint64(h.InitialState), 8)
	bytecodec.PutUint(buf, 37, uint64(h.NControllers), 4)
	nEvents := 0
	if h.Events != nil {
		nEvents = h.Events.Len()
	}
	bytecodec.PutUint(buf, 41, uint64(nEvents), 4)

	k := int(h.NControllers)
	if h.Events != nil {
		h.Events.Each(func(e *event.Event) bool {
			rec := make([]byte, 2*k+4+len(e.Label))
			for i := 0; i < k; i++ {
				if e.Observable[i] {
					rec[2*i] = 1
				}
				if e.Controllable[i] {
					rec[2*i+1] = 1
				}
			}
			bytecodec.PutUint(rec, 2*k, uint64(len(e.Label)), 4)
			copy(rec[2*k+4:], e.Label)
			buf = append(buf, rec...)
			return true
		})
	}

	writeTransitionTable := func(list []TransitionData) {
		head := make([]byte, 4)
		bytecodec.PutUint(head, 0, uint64(len(list)), 4)
		buf = append(buf, head...)
		for _, td := range list {
			rec := make([]byte, transitionDataSize)
			encodeTransitionData(rec, 0, td)
			buf = append(buf, rec...)
		}
	}
	writeCommunicationTable := func(list []CommunicationData) {
		head := make([]byte, 4)
		bytecodec.PutUint(head, 0, uint64(len(list)), 4)
		buf = append(buf, head...)
		for _, cd := range list {
			rec := make([]byte, communicationDataSize(k))
			encodeCommunicationData(rec, 0, cd)
			buf = append(buf, rec...)
		}
	}
	writeNashTable := func(list []NashCommunicationData) {
		head := make([]byte, 4)
		bytecodec.PutUint(head, 0, uint64(len(list)), 4)
		buf = append(buf, head...)
		for _, nd := range list {
			rec := make([]byte, nashCommunicationDataSize(k))
			encodeNashCommunicationData(rec, 0, nd)
			buf = append(buf, rec...)
		}
	}
	writeDisablementTable := func(list []DisablementData) {
		head := make([]byte, 4)
		bytecodec.PutUint(head, 0, uint64(len(list)), 4)
		buf = append(buf, head...)
		for _, dd := range list {
			rec := make([]byte, disablementDataSize(k))
			encodeDisablementData(rec, 0, dd)
			buf = append(buf, rec...)
		}
	}

	writeTransitionTable(h.BadTransitions)
	if h.hasUStructureTables() {
		writeTransitionTable(h.UnconditionalViolations)
		writeTransitionTable(h.ConditionalViolations)
		writeCommunicationTable(h.PotentialCommunications)
		writeCommunicationTable(h.InvalidCommunications)
		writeNashTable(h.NashCommunications)
		writeDisablementTable(h.DisablementDecisions)
		writeTransitionTable(h.SuppressedTransitions)
	}

	return buf
}

// DecodeHeader parses the on-disk byte representation written by Encode.
func DecodeHeader(buf []byte) (*Header, error) {
	if len(buf) < headerFixedSize {
		return nil, errors.Wrap(ErrCorruptHeader, "fixed prefix truncated")
	}
	h := &Header{
		Type:               AutomatonType(buf[0]),
		NStates:            bytecodec.ReadUint(buf, 1, 8),
		EventCapacity:      uint32(bytecodec.ReadUint(buf, 9, 4)),
		StateCapacity:      bytecodec.ReadUint(buf, 13, 8),
		TransitionCapacity: uint32(bytecodec.ReadUint(buf, 21, 4)),
		LabelLength:        uint32(bytecodec.ReadUint(buf, 25, 4)),
		InitialState:       StateId(bytecodec.ReadUint(buf, 29, 8)),
		NControllers:       uint32(bytecodec.ReadUint(buf, 37, 4)),
	}
	nEvents := int(bytecodec.ReadUint(buf, 41, 4))
	k := int(h.NControllers)

	off := headerFixedSize
	h.Events = event.NewEventSet()
	for i := 0; i < nEvents; i++ {
		if off+2*k+4 > len(buf) {
			return nil, errors.Wrap(ErrCorruptHeader, "event table truncated")
		}
		obs := make([]bool, k)
		ctrl := make([]bool, k)
		for j := 0; j < k; j++ {
			obs[j] = buf[off+2*j] != 0
			ctrl[j] = buf[off+2*j+1] != 0
		}
		off += 2 * k
		labelLen := int(bytecodec.ReadUint(buf, off, 4))
		off += 4
		if off+labelLen > len(buf) {
			return nil, errors.Wrap(ErrCorruptHeader, "event label truncated")
		}
		label := string(buf[off : off+labelLen])
		off += labelLen
		h.Events.AddWithID(event.EventId(i+1), label, obs, ctrl)
	}

	readTransitionTable := func() ([]TransitionData, error) {
		if off+4 > len(buf) {
			return nil, errors.Wrap(ErrCorruptHeader, "transition table count truncated")
		}
		n := int(bytecodec.ReadUint(buf, off, 4))
		off += 4
		out := make([]TransitionData, n)
		for i := 0; i < n; i++ {
			if off+transitionDataSize > len(buf) {
				return nil, errors.Wrap(ErrCorruptHeader, "transition record truncated")
			}
			out[i] = decodeTransitionData(buf, off)
			off += transitionDataSize
		}
		return out, nil
	}
	readCommunicationTable := func() ([]CommunicationData, error) {
		if off+4 > len(buf) {
			return nil, errors.Wrap(ErrCorruptHeader, "communication table count truncated")
		}
		n := int(bytecodec.ReadUint(buf, off, 4))
		off += 4
		sz := communicationDataSize(k)
		out := make([]CommunicationData, n)
		for i := 0; i < n; i++ {
			if off+sz > len(buf) {
				return nil, errors.Wrap(ErrCorruptHeader, "communication record truncated")
			}
			out[i] = decodeCommunicationData(buf, off, k)
			off += sz
		}
		return out, nil
	}
	readNashTable := func() ([]NashCommunicationData, error) {
		if off+4 > len(buf) {
			return nil, errors.Wrap(ErrCorruptHeader, "nash table count truncated")
		}
		n := int(bytecodec.ReadUint(buf, off, 4))
		off += 4
		sz := nashCommunicationDataSize(k)
		out := make([]NashCommunicationData, n)
		for i := 0; i < n; i++ {
			if off+sz > len(buf) {
				return nil, errors.Wrap(ErrCorruptHeader, "nash record truncated")
			}
			out[i] = decodeNashCommunicationData(buf, off, k)
			off += sz
		}
		return out, nil
	}
	readDisablementTable := func() ([]DisablementData, error) {
		if off+4 > len(buf) {
			return nil, errors.Wrap(ErrCorruptHeader, "disablement table count truncated")
		}
		n := int(bytecodec.ReadUint(buf, off, 4))
		off += 4
		sz := disablementDataSize(k)
		out := make([]DisablementData, n)
		for i := 0; i < n; i++ {
			if off+sz > len(buf) {
				return nil, errors.Wrap(ErrCorruptHeader, "disablement record truncated")
			}
			out[i] = decodeDisablementData(buf, off, k)
			off += sz
		}
		return out, nil
	}

	var err error
	if h.BadTransitions, err = readTransitionTable(); err != nil {
		return nil, err
	}
	if h.hasUStructureTables() {
		if h.UnconditionalViolations, err = readTransitionTable(); err != nil {
			return nil, err
		}
		if h.ConditionalViolations, err = readTransitionTable(); err != nil {
			return nil, err
		}
		if h.PotentialCommunications, err = readCommunicationTable(); err != nil {
			return nil, err
		}
		if h.InvalidCommunications, err = readCommunicationTable(); err != nil {
			return nil, err
		}
		if h.NashCommunications, err = readNashTable(); err != nil {
			return nil, err
		}
		if h.DisablementDecisions, err = readDisablementTable(); err != nil {
			return nil, err
		}
		if h.SuppressedTransitions, err = readTransitionTable(); err != nil {
			return nil, err
		}
	}

	return h, nil
}
