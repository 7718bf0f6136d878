package ustruct

import (
	"encoding/gob"
	"os"

	"github.com/oisee/ustructctl/pkg/automaton"
	"github.com/oisee/ustructctl/pkg/store"
)

// WalkCheckpoint is the resumable state of a SynchronizedComposition
// pop-loop: the U-Structure's own header/body files already hold every
// state and transition discovered so far, so only the worklist position
// needs to survive a restart.
type WalkCheckpoint struct {
	Visited map[store.StateId]bool
	Stack   []store.StateId
}

// SaveCheckpoint writes walk state to path via create-then-gob-encode.
func SaveCheckpoint(path string, ckpt *WalkCheckpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(ckpt)
}

// LoadCheckpoint reads walk state previously written by SaveCheckpoint.
func LoadCheckpoint(path string) (*WalkCheckpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var ckpt WalkCheckpoint
	if err := gob.NewDecoder(f).Decode(&ckpt); err != nil {
		return nil, err
	}
	return &ckpt, nil
}

// SynchronizedCompositionResumable runs the same pop-loop as
// SynchronizedComposition but saves a WalkCheckpoint to checkpointPath every
// checkpointEvery popped states, and resumes from it if checkpointPath
// already exists (meaning headerPath/bodyPath already hold a partially
// built U-Structure from an earlier, interrupted run). checkpointEvery <= 0
// disables periodic saving; the final checkpoint is always removed on
// successful completion.
func SynchronizedCompositionResumable(headerPath, bodyPath, checkpointPath string, g *automaton.Automaton, checkpointEvery int) (*UStructure, error) {
	if g.InitialStateID() == 0 {
		return nil, nil
	}
	k := g.NumberOfControllers()
	n := g.NumberOfStates()

	var u *UStructure
	var visited map[store.StateId]bool
	var stack []store.StateId

	if ckpt, err := LoadCheckpoint(checkpointPath); err == nil {
		a, err := automaton.Open(headerPath, bodyPath)
		if err != nil {
			return nil, err
		}
		u = &UStructure{Automaton: a}
		visited = ckpt.Visited
		stack = ckpt.Stack
	} else {
		fresh, err := newUStructure(headerPath, bodyPath, store.TypeUStructure, k)
		if err != nil {
			return nil, err
		}
		u = fresh
		s0 := g.InitialStateID()
		tuple0 := make([]store.StateId, k+1)
		for i := range tuple0 {
			tuple0[i] = s0
		}
		initID := automaton.CombineIDs(tuple0, n)
		u.AddStateAt(tupleLabel(g, tuple0), false, nil, true, initID)
		visited = map[store.StateId]bool{initID: true}
		stack = []store.StateId{initID}
	}

	popped := 0
	for len(stack) > 0 {
		cid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		tuple := automaton.SeparateIDs(cid, n, k+1)

		stepSynchronizedState(u, g, cid, tuple, n, k, visited, &stack)

		popped++
		if checkpointEvery > 0 && popped%checkpointEvery == 0 {
			if err := SaveCheckpoint(checkpointPath, &WalkCheckpoint{Visited: visited, Stack: stack}); err != nil {
				return nil, err
			}
		}
	}

	DiscoverPotentialCommunications(u)
	_ = os.Remove(checkpointPath)
	return u, nil
}
