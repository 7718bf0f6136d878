package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/oisee/ustructctl/pkg/automaton"
	"github.com/oisee/ustructctl/pkg/event"
	"github.com/oisee/ustructctl/pkg/store"
)

// buildFromScript reads a builder script — the minimal line-oriented
// textual input this CLI accepts in place of the out-of-scope GUI-input-
// code parser — and materializes it into a fresh Automaton at
// headerPath/bodyPath.
//
// Grammar (one directive per line, blank lines and lines starting with #
// ignored):
//
//	event <label> <obs...> <ctrl...>   obs/ctrl: one 0/1 per controller
//	state <label> [marked] [initial]
//	transition <from> <event> <to>
//	bad <from> <event> <to>            also adds the transition
func buildFromScript(path, headerPath, bodyPath string, nControllers int) (*automaton.Automaton, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script %s: %w", path, err)
	}
	defer f.Close()

	a, err := automaton.New(headerPath, bodyPath, automaton.Options{
		StateCapacity:      255,
		TransitionCapacity: 8,
		LabelLength:        64,
		NControllers:       nControllers,
		ClearFiles:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("create automaton: %w", err)
	}

	stateIDs := map[string]store.StateId{}
	eventIDs := map[string]event.EventId{}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "event":
			if err := buildEventLine(a, fields, nControllers, eventIDs); err != nil {
				return nil, fmt.Errorf("script line %d: %w", lineNo, err)
			}
		case "state":
			if err := buildStateLine(a, fields, stateIDs); err != nil {
				return nil, fmt.Errorf("script line %d: %w", lineNo, err)
			}
		case "transition", "bad":
			if err := buildTransitionLine(a, fields, stateIDs, eventIDs); err != nil {
				return nil, fmt.Errorf("script line %d: %w", lineNo, err)
			}
		default:
			return nil, fmt.Errorf("script line %d: unknown directive %q", lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return a, nil
}

func buildEventLine(a *automaton.Automaton, fields []string, nControllers int, eventIDs map[string]event.EventId) error {
	if len(fields) != 2+2*nControllers {
		return fmt.Errorf("event wants label + %d obs + %d ctrl flags, got %d fields", nControllers, nControllers, len(fields)-1)
	}
	label := fields[1]
	obs, err := parseBoolFlags(fields[2 : 2+nControllers])
	if err != nil {
		return err
	}
	ctrl, err := parseBoolFlags(fields[2+nControllers : 2+2*nControllers])
	if err != nil {
		return err
	}
	id := a.AddEvent(label, obs, ctrl)
	if id == 0 {
		return fmt.Errorf("duplicate event %q", label)
	}
	eventIDs[label] = id
	return nil
}

func buildStateLine(a *automaton.Automaton, fields []string, stateIDs map[string]store.StateId) error {
	if len(fields) < 2 {
		return fmt.Errorf("state wants a label")
	}
	label := fields[1]
	marked := containsFlag(fields[2:], "marked")
	isInitial := containsFlag(fields[2:], "initial")
	id := a.AddState(label, marked, isInitial)
	if id == 0 {
		return fmt.Errorf("could not add state %q", label)
	}
	stateIDs[label] = id
	return nil
}

func buildTransitionLine(a *automaton.Automaton, fields []string, stateIDs map[string]store.StateId, eventIDs map[string]event.EventId) error {
	if len(fields) != 4 {
		return fmt.Errorf("%s wants from, event, to", fields[0])
	}
	from, ok := stateIDs[fields[1]]
	if !ok {
		return fmt.Errorf("unknown state %q", fields[1])
	}
	evID, ok := eventIDs[fields[2]]
	if !ok {
		return fmt.Errorf("unknown event %q", fields[2])
	}
	to, ok := stateIDs[fields[3]]
	if !ok {
		return fmt.Errorf("unknown state %q", fields[3])
	}
	if !a.AddTransition(from, evID, to) {
		return fmt.Errorf("could not add transition %s-%s->%s", fields[1], fields[2], fields[3])
	}
	if fields[0] == "bad" {
		a.MarkTransitionAsBad(from, evID, to)
	}
	return nil
}

func parseBoolFlags(fields []string) ([]bool, error) {
	out := make([]bool, len(fields))
	for i, raw := range fields {
		switch raw {
		case "1":
			out[i] = true
		case "0":
			out[i] = false
		default:
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid flag %q (want 0/1/true/false)", raw)
			}
			out[i] = v
		}
	}
	return out, nil
}

func containsFlag(fields []string, want string) bool {
	for _, f := range fields {
		if f == want {
			return true
		}
	}
	return false
}
