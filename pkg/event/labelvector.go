package event

import "strings"

// SilentSlot is the label-vector element meaning "silent in this slot".
const SilentSlot = "*"

// LabelVector is the parsed form of a vectorized event label `<a_b_*>`.
// Slot 0 is the plant/system's view; slots 1..K are per-controller.
type LabelVector []string

// ParseLabelVector parses label as a vectorized label if it starts with '<'
// and ends with '>'; the interior splits on '_' or ',' (both separators are
// accepted on read; String always renders with '_'). It returns ok=false
// for a plain (non-vectorized) label.
func ParseLabelVector(label string) (LabelVector, bool) {
	if len(label) < 2 || label[0] != '<' || label[len(label)-1] != '>' {
		return nil, false
	}
	inner := label[1 : len(label)-1]
	sep := "_"
	if strings.Contains(inner, ",") && !strings.Contains(inner, "_") {
		sep = ","
	}
	parts := strings.Split(inner, sep)
	return LabelVector(parts), true
}

// String renders the label vector in canonical `<a_b_*>` form.
func (v LabelVector) String() string {
	return "<" + strings.Join([]string(v), "_") + ">"
}

// Compatible reports whether two label vectors of equal length agree at
// every position (equal elements, or at least one side is the silent
// slot). Vectors of unequal length are never compatible.
func Compatible(a, b LabelVector) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == SilentSlot || b[i] == SilentSlot || a[i] == b[i] {
			continue
		}
		return false
	}
	return true
}

// Join computes the positionwise least-upper-bound of two compatible label
// vectors: at each slot, the non-silent element (both silent yields
// silent). The caller must ensure Compatible(a, b) first; Join does not
// itself re-validate compatibility in the interest of not duplicating the
// linear scan.
func Join(a, b LabelVector) LabelVector {
	out := make(LabelVector, len(a))
	for i := range a {
		if a[i] != SilentSlot {
			out[i] = a[i]
		} else {
			out[i] = b[i]
		}
	}
	return out
}

// UnobservableTo reports whether a label vector is silent to controller i:
// slot 0 (the plant/system observation) is silent, OR slot i is silent.
// i is 1-indexed into the controller slots (slot 0 is the plant).
func (v LabelVector) UnobservableTo(controllerIndex int) bool {
	if len(v) == 0 {
		return true
	}
	if v[0] == SilentSlot {
		return true
	}
	if controllerIndex < 0 || controllerIndex >= len(v) {
		return true
	}
	return v[controllerIndex] == SilentSlot
}

// GenerateLeastUpperBounds enumerates, for every compatible pair of events
// in set, the joined label vector. Treated as a debug-only routine: it
// returns a value rather than printing, so a caller — here, the CLI's
// `inspect --lub` flag — can decide how to present it; it is not part of
// the Operation driver's contract.
func GenerateLeastUpperBounds(set *EventSet) []LabelVector {
	var vectors []LabelVector
	set.Each(func(e *Event) bool {
		if lv, ok := e.LabelVector(); ok {
			vectors = append(vectors, lv)
		}
		return true
	})

	var out []LabelVector
	seen := make(map[string]bool)
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			if !Compatible(vectors[i], vectors[j]) {
				continue
			}
			joined := Join(vectors[i], vectors[j])
			key := joined.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, joined)
		}
	}
	return out
}
