// Package operation is the programmatic external interface boundary: one
// Config struct per call, validated up front, dispatched to the
// corresponding pkg/automaton/pkg/ustruct function. A small parameter
// struct, a function that sequences the sub-steps and returns a result, no
// hidden global state.
package operation

import (
	"github.com/pkg/errors"

	"github.com/oisee/ustructctl/pkg/automaton"
	"github.com/oisee/ustructctl/pkg/store"
	"github.com/oisee/ustructctl/pkg/ustruct"
)

// Kind selects which operation Run performs.
type Kind int

const (
	KindTrim Kind = iota
	KindAccessible
	KindCoaccessible
	KindIntersect
	KindUnion
	KindSynthesize
	KindPrune
	KindCrush
	KindRenumber
	KindRemoveInactiveEvents
)

// Config parametrizes one Run call. Which fields are required depends on
// Kind; Run validates before dispatching. OutHeaderPath/OutBodyPath name
// the result files for operations that build a new automaton (every Kind
// except Renumber/RemoveInactiveEvents, which mutate A in place).
type Config struct {
	Kind Kind

	A *automaton.Automaton // primary operand (plant, or the automaton to trim/renumber)
	B *automaton.Automaton // second operand, for Intersect/Union

	U *ustruct.UStructure // primary operand for Prune/Crush

	OutHeaderPath string
	OutBodyPath   string

	// Prune-specific.
	Protocol         []store.TransitionData
	CommunicationVec []string
	StartID          store.StateId

	// Crush-specific.
	ControllerIndex int
	CostPolicy      ustruct.CostPolicy
}

// ErrMissingOperand is returned when a Kind's required operand(s) are nil.
var ErrMissingOperand = errors.New("operation: missing required operand")

// ErrMissingOutputPath is returned when a result-producing Kind has no
// output paths set.
var ErrMissingOutputPath = errors.New("operation: missing output header/body path")

// Result carries whichever of the two output shapes an operation produced:
// a plain Automaton (Trim/Accessible/Coaccessible/Intersect/Union/Renumber/
// RemoveInactiveEvents) or a UStructure (Synthesize/Prune/Crush).
type Result struct {
	Automaton *automaton.Automaton
	UStructure *ustruct.UStructure
}

// Run validates cfg and dispatches to the matching pkg/automaton or
// pkg/ustruct function.
func Run(cfg Config) (*Result, error) {
	switch cfg.Kind {
	case KindTrim, KindAccessible, KindCoaccessible:
		if cfg.A == nil {
			return nil, ErrMissingOperand
		}
		if cfg.OutHeaderPath == "" || cfg.OutBodyPath == "" {
			return nil, ErrMissingOutputPath
		}
		var keep map[store.StateId]bool
		switch cfg.Kind {
		case KindTrim:
			keep = cfg.A.Trim()
		case KindAccessible:
			keep = cfg.A.Accessible()
		case KindCoaccessible:
			keep = cfg.A.Coaccessible()
		}
		if keep == nil {
			return nil, errors.New("operation: automaton has no initial state")
		}
		out, err := cfg.A.BuildSubset(cfg.OutHeaderPath, cfg.OutBodyPath, keep)
		if err != nil {
			return nil, err
		}
		return &Result{Automaton: out}, nil

	case KindIntersect, KindUnion:
		if cfg.A == nil || cfg.B == nil {
			return nil, ErrMissingOperand
		}
		if cfg.OutHeaderPath == "" || cfg.OutBodyPath == "" {
			return nil, ErrMissingOutputPath
		}
		var out *automaton.Automaton
		var err error
		if cfg.Kind == KindIntersect {
			out, err = automaton.Intersection(cfg.OutHeaderPath, cfg.OutBodyPath, cfg.A, cfg.B)
		} else {
			out, err = automaton.Union(cfg.OutHeaderPath, cfg.OutBodyPath, cfg.A, cfg.B)
		}
		if err != nil {
			return nil, err
		}
		return &Result{Automaton: out}, nil

	case KindSynthesize:
		if cfg.A == nil {
			return nil, ErrMissingOperand
		}
		if cfg.OutHeaderPath == "" || cfg.OutBodyPath == "" {
			return nil, ErrMissingOutputPath
		}
		u, err := ustruct.SynchronizedComposition(cfg.OutHeaderPath, cfg.OutBodyPath, cfg.A)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, errors.New("operation: plant automaton has no initial state")
		}
		return &Result{UStructure: u}, nil

	case KindPrune:
		if cfg.U == nil {
			return nil, ErrMissingOperand
		}
		if cfg.OutHeaderPath == "" || cfg.OutBodyPath == "" {
			return nil, ErrMissingOutputPath
		}
		if cfg.StartID == 0 {
			return nil, errors.New("operation: prune requires a start state id")
		}
		out, err := ustruct.Prune(cfg.OutHeaderPath, cfg.OutBodyPath, cfg.U, cfg.Protocol, cfg.CommunicationVec, cfg.StartID)
		if err != nil {
			return nil, err
		}
		return &Result{UStructure: out}, nil

	case KindCrush:
		if cfg.U == nil {
			return nil, ErrMissingOperand
		}
		if cfg.OutHeaderPath == "" || cfg.OutBodyPath == "" {
			return nil, ErrMissingOutputPath
		}
		if cfg.ControllerIndex < 1 || cfg.ControllerIndex > cfg.U.NumberOfControllers() {
			return nil, errors.Errorf("operation: controller index %d out of range [1,%d]", cfg.ControllerIndex, cfg.U.NumberOfControllers())
		}
		out, err := ustruct.Crush(cfg.OutHeaderPath, cfg.OutBodyPath, cfg.U, cfg.ControllerIndex, cfg.CostPolicy)
		if err != nil {
			return nil, err
		}
		return &Result{UStructure: out}, nil

	case KindRenumber:
		if cfg.A == nil {
			return nil, ErrMissingOperand
		}
		if err := cfg.A.RenumberStates(); err != nil {
			return nil, err
		}
		return &Result{Automaton: cfg.A}, nil

	case KindRemoveInactiveEvents:
		if cfg.A == nil {
			return nil, ErrMissingOperand
		}
		if err := cfg.A.RemoveInactiveEvents(); err != nil {
			return nil, err
		}
		return &Result{Automaton: cfg.A}, nil

	default:
		return nil, errors.Errorf("operation: unknown kind %d", cfg.Kind)
	}
}
