// Package store implements the two-file, fixed-record persistent layout
// for automata: a Header file (metadata, event table, special-transition
// annotation tables) and a Body file (an array of fixed-width state
// records addressed by StateId). This package is the only place that
// layout is encoded/decoded.
package store

import "github.com/oisee/ustructctl/pkg/bytecodec"

// AutomatonType tags which special-transition tables a Header carries and
// in what order.
type AutomatonType uint8

const (
	TypeAutomaton       AutomatonType = 0
	TypeUStructure      AutomatonType = 1
	TypePrunedUStructure AutomatonType = 2
)

func (t AutomatonType) String() string {
	switch t {
	case TypeAutomaton:
		return "Automaton"
	case TypeUStructure:
		return "UStructure"
	case TypePrunedUStructure:
		return "PrunedUStructure"
	default:
		return "Unknown"
	}
}

// Role is a controller's part in a CommunicationData triple.
type Role uint8

const (
	RoleNone     Role = 0
	RoleSender   Role = 1
	RoleReceiver Role = 2
)

// StateId identifies a state within an automaton; 0 means "unspecified"
// where used as an initial-state pointer.
type StateId uint64

// transitionDataSize is the fixed 20-byte encoding of a TransitionData:
// initial state (8) + event id (4) + target state (8).
const transitionDataSize = 8 + 4 + 8

// TransitionData is the detached form of a transition with all three IDs,
// used in header-level special-transition lists (in-body transitions only
// store event+target, since the owning state supplies the initial state).
type TransitionData struct {
	InitialState StateId
	Event        uint32 // EventId, but stored at fixed 4-byte width here
	TargetState  StateId
}

func encodeTransitionData(buf []byte, off int, td TransitionData) {
	bytecodec.PutUint(buf, off, uint64(td.InitialState), 8)
	bytecodec.PutUint(buf, off+8, uint64(td.Event), 4)
	bytecodec.PutUint(buf, off+12, uint64(td.TargetState), 8)
}

func decodeTransitionData(buf []byte, off int) TransitionData {
	return TransitionData{
		InitialState: StateId(bytecodec.ReadUint(buf, off, 8)),
		Event:        uint32(bytecodec.ReadUint(buf, off+8, 4)),
		TargetState:  StateId(bytecodec.ReadUint(buf, off+12, 8)),
	}
}

// CommunicationData is a TransitionData plus a per-controller role vector;
// exactly one controller is Sender.
type CommunicationData struct {
	Transition TransitionData
	Roles      []Role // length K, K = source automaton's controller count
}

func communicationDataSize(k int) int { return transitionDataSize + k }

func encodeCommunicationData(buf []byte, off int, cd CommunicationData) {
	encodeTransitionData(buf, off, cd.Transition)
	for i, r := range cd.Roles {
		buf[off+transitionDataSize+i] = byte(r)
	}
}

func decodeCommunicationData(buf []byte, off, k int) CommunicationData {
	roles := make([]Role, k)
	for i := 0; i < k; i++ {
		roles[i] = Role(buf[off+transitionDataSize+i])
	}
	return CommunicationData{
		Transition: decodeTransitionData(buf, off),
		Roles:      roles,
	}
}

// NashCommunicationData extends CommunicationData with a saturating cost
// and a probability, both encoded as raw f64 bit patterns.
type NashCommunicationData struct {
	Communication CommunicationData
	Cost          int64   // non-negative, saturating
	Probability   float64 // clamped to [0,1]
}

func nashCommunicationDataSize(k int) int {
	return transitionDataSize + 8 + 8 + k
}

func encodeNashCommunicationData(buf []byte, off int, nd NashCommunicationData) {
	encodeTransitionData(buf, off, nd.Communication.Transition)
	bytecodec.PutFloat64(buf, off+transitionDataSize, float64(nd.Cost))
	bytecodec.PutFloat64(buf, off+transitionDataSize+8, nd.Probability)
	for i, r := range nd.Communication.Roles {
		buf[off+transitionDataSize+16+i] = byte(r)
	}
}

func decodeNashCommunicationData(buf []byte, off, k int) NashCommunicationData {
	roles := make([]Role, k)
	for i := 0; i < k; i++ {
		roles[i] = Role(buf[off+transitionDataSize+16+i])
	}
	cost := bytecodec.ReadFloat64(buf, off+transitionDataSize)
	prob := bytecodec.ReadFloat64(buf, off+transitionDataSize+8)
	return NashCommunicationData{
		Communication: CommunicationData{
			Transition: decodeTransitionData(buf, off),
			Roles:      roles,
		},
		Cost:        int64(cost),
		Probability: prob,
	}
}

// DisablementData is a TransitionData plus, per controller, whether that
// controller disables it (1) or not (0).
type DisablementData struct {
	Transition TransitionData
	Disables   []bool // length K
}

func disablementDataSize(k int) int { return transitionDataSize + k }

func encodeDisablementData(buf []byte, off int, dd DisablementData) {
	encodeTransitionData(buf, off, dd.Transition)
	for i, b := range dd.Disables {
		if b {
			buf[off+transitionDataSize+i] = 1
		} else {
			buf[off+transitionDataSize+i] = 0
		}
	}
}

func decodeDisablementData(buf []byte, off, k int) DisablementData {
	dis := make([]bool, k)
	for i := 0; i < k; i++ {
		dis[i] = buf[off+transitionDataSize+i] != 0
	}
	return DisablementData{
		Transition: decodeTransitionData(buf, off),
		Disables:   dis,
	}
}
