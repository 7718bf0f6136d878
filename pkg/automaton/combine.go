package automaton

import "github.com/oisee/ustructctl/pkg/store"

// Combine2 computes the composite state id used by Intersection/Union:
// combine(id1,id2) = (id2-1)*n1 + id1, where n1 is the number of states in
// the first operand.
func Combine2(id1, id2 store.StateId, n1 uint64) store.StateId {
	return store.StateId((uint64(id2)-1)*n1 + uint64(id1))
}

// CombineIDs packs a (K+1)-tuple of component ids into one composite id
// using base (maxId+1) positional encoding, Horner's-method with ids[0] as
// the highest-order digit: combineIDs([4,2,7], maxId=7) == 279, since
// 279 == ((4*8)+2)*8+7.
func CombineIDs(ids []store.StateId, maxId uint64) store.StateId {
	base := maxId + 1
	var combined uint64
	for _, id := range ids {
		combined = combined*base + uint64(id)
	}
	return store.StateId(combined)
}

// SeparateIDs is the inverse of CombineIDs: given the composite id, the
// base, and the tuple arity, it recovers the component ids by repeated
// division. separateIDs(combineIDs(list, maxId), maxId) == list.
func SeparateIDs(combined store.StateId, maxId uint64, arity int) []store.StateId {
	base := maxId + 1
	v := uint64(combined)
	out := make([]store.StateId, arity)
	for i := arity - 1; i >= 0; i-- {
		out[i] = store.StateId(v % base)
		v /= base
	}
	return out
}
