package ustruct

import (
	"github.com/oisee/ustructctl/pkg/event"
	"github.com/oisee/ustructctl/pkg/store"
)

// DiscoverPotentialCommunications scans every U-Structure state's outgoing
// transitions and records a potential communication for each pair of
// same-source transitions whose vectorized event labels are compatible and
// whose slot-0 entries differ in kind: one observable to the plant
// (non-`*`), the other controller-private (`*` in slot 0). The private
// transition's mover is recorded as Sender, every other controller as
// Receiver — exactly one Sender per communication. Computed lazily, after
// the synchronized-composition walk completes.
func DiscoverPotentialCommunications(u *UStructure) {
	k := u.NumberOfControllers()
	n := u.NumberOfStates()
	for id := store.StateId(1); uint64(id) <= n; id++ {
		st, ok := u.GetState(id, true)
		if !ok {
			continue
		}
		for _, t1 := range st.Transitions {
			ev1 := u.GetEvent(t1.Event)
			if ev1 == nil {
				continue
			}
			v1, isVec1 := ev1.LabelVector()
			if !isVec1 {
				continue
			}
			for _, t2 := range st.Transitions {
				ev2 := u.GetEvent(t2.Event)
				if ev2 == nil || ev2.ID == ev1.ID {
					continue
				}
				v2, isVec2 := ev2.LabelVector()
				if !isVec2 || !event.Compatible(v1, v2) {
					continue
				}
				publicIdx, privateIdx := -1, -1
				if v1[0] != event.SilentSlot && v2[0] == event.SilentSlot {
					publicIdx, privateIdx = 0, 1
				} else if v2[0] != event.SilentSlot && v1[0] == event.SilentSlot {
					publicIdx, privateIdx = 1, 0
				} else {
					continue
				}
				_ = publicIdx
				privVec, privTD := v1, store.TransitionData{InitialState: id, Event: t1.Event, TargetState: t1.Target}
				if privateIdx == 1 {
					privVec, privTD = v2, store.TransitionData{InitialState: id, Event: t2.Event, TargetState: t2.Target}
				}
				roles := make([]store.Role, k)
				for i := 1; i <= k && i < len(privVec); i++ {
					if privVec[i] != event.SilentSlot {
						roles[i-1] = store.RoleSender
					} else {
						roles[i-1] = store.RoleReceiver
					}
				}
				addPotentialCommunicationIfNew(u, privTD, roles)
			}
		}
	}
}

func addPotentialCommunicationIfNew(u *UStructure, td store.TransitionData, roles []store.Role) {
	for _, cd := range u.PotentialCommunications() {
		if cd.Transition == td {
			return
		}
	}
	u.AddPotentialCommunication(td.InitialState, event.EventId(td.Event), td.TargetState, roles)
}
