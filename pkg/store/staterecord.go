package store

import "github.com/oisee/ustructctl/pkg/bytecodec"

// Flag bits within a state record's byte 0. Bit 0 is MARKED, bit 1 is
// EXISTS; ENABLEMENT/DISABLEMENT are reserved for
// U-Structure variants and carried through the format for bit-exact
// round-trips even though no operation in this package sets them on a
// plain Automaton.
const (
	FlagMarked      uint8 = 0b0001
	FlagExists      uint8 = 0b0010
	FlagEnablement  uint8 = 0b0100
	FlagDisablement uint8 = 0b1000
)

// InBodyTransition is the compact (event, target) pair stored inside a
// state record; the owning state supplies the initial endpoint.
type InBodyTransition struct {
	Event  uint32 // EventId
	Target StateId
}

// StateRecord is the decoded form of one body-file slot.
type StateRecord struct {
	Exists      bool
	Marked      bool
	Enablement  bool
	Disablement bool
	Label       string
	Transitions []InBodyTransition
}

// EncodeStateRecord writes rec into a freshly allocated buffer sized to
// the header's current NBytesPerState: byte 0 flags, then labelLength
// label bytes (zero-padded, 0-terminated early), then transitionCapacity
// (event,target) pairs (eventId==0 terminates early).
func EncodeStateRecord(h *Header, rec StateRecord) []byte {
	size := h.NBytesPerState()
	buf := make([]byte, size)
	if !rec.Exists {
		return buf
	}

	var flags uint8 = FlagExists
	if rec.Marked {
		flags |= FlagMarked
	}
	if rec.Enablement {
		flags |= FlagEnablement
	}
	if rec.Disablement {
		flags |= FlagDisablement
	}
	buf[0] = flags

	labelBytes := []byte(rec.Label)
	if len(labelBytes) > int(h.LabelLength) {
		labelBytes = labelBytes[:h.LabelLength]
	}
	copy(buf[1:1+int(h.LabelLength)], labelBytes)

	evW := h.NBytesPerEventId()
	stW := h.NBytesPerStateId()
	trOff := 1 + int(h.LabelLength)
	trStride := evW + stW
	n := len(rec.Transitions)
	if n > int(h.TransitionCapacity) {
		n = int(h.TransitionCapacity)
	}
	for i := 0; i < n; i++ {
		off := trOff + i*trStride
		bytecodec.PutUint(buf, off, uint64(rec.Transitions[i].Event), evW)
		bytecodec.PutUint(buf, off+evW, uint64(rec.Transitions[i].Target), stW)
	}
	return buf
}

// DecodeStateRecord parses a body-file slot previously written by
// EncodeStateRecord, according to h's current layout parameters.
func DecodeStateRecord(h *Header, buf []byte) StateRecord {
	flags := buf[0]
	rec := StateRecord{
		Exists:      flags&FlagExists != 0,
		Marked:      flags&FlagMarked != 0,
		Enablement:  flags&FlagEnablement != 0,
		Disablement: flags&FlagDisablement != 0,
	}
	if !rec.Exists {
		return rec
	}

	labelField := buf[1 : 1+int(h.LabelLength)]
	end := len(labelField)
	for i, c := range labelField {
		if c == 0 {
			end = i
			break
		}
	}
	rec.Label = string(labelField[:end])

	evW := h.NBytesPerEventId()
	stW := h.NBytesPerStateId()
	trOff := 1 + int(h.LabelLength)
	trStride := evW + stW
	for i := 0; i < int(h.TransitionCapacity); i++ {
		off := trOff + i*trStride
		ev := uint32(bytecodec.ReadUint(buf, off, evW))
		if ev == 0 {
			break
		}
		target := StateId(bytecodec.ReadUint(buf, off+evW, stW))
		rec.Transitions = append(rec.Transitions, InBodyTransition{Event: ev, Target: target})
	}
	return rec
}
