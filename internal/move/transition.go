package move

import "sitedocs/internal/store"

type Transition string

const (
	TransitionNone               Transition = "none"
	TransitionAssignToFolder     Transition = "assign-to-folder"
	TransitionPairIntoSlot       Transition = "pair-into-slot"
	TransitionAssignToRowFolder  Transition = "assign-to-row-folder"
	TransitionUnassignFromFolder Transition = "unassign-from-folder"
	TransitionReorderFolder      Transition = "reorder-folder"
	TransitionUnassignFromSlot   Transition = "unassign-from-slot"
	TransitionUnsupported        Transition = "unsupported"
)

// fromPool reports transitions whose failure is an assignment error.
func (t Transition) fromPool() bool {
	switch t {
	case TransitionAssignToFolder, TransitionPairIntoSlot, TransitionAssignToRowFolder:
		return true
	}
	return false
}

// Classify maps an intent onto a transition. destRow is the pairing row
// under the drop point and is only consulted for pair-slot destinations.
func Classify(intent Intent, destRow *store.PairingRow) Transition {
	src, dst := intent.Source, intent.Dest
	if sameEndpoint(src, dst) {
		return TransitionNone
	}

	switch src.Kind {
	case EndpointPool:
		switch dst.Kind {
		case EndpointFolder:
			return TransitionAssignToFolder
		case EndpointPairSlot:
			if destRow == nil {
				return TransitionUnsupported
			}
			if destRow.SlotAt(dst.Slot).Empty() {
				return TransitionPairIntoSlot
			}
			return TransitionAssignToRowFolder
		}
	case EndpointFolder:
		switch dst.Kind {
		case EndpointPool:
			return TransitionUnassignFromFolder
		case EndpointFolder:
			if src.FolderID == dst.FolderID {
				return TransitionReorderFolder
			}
		}
	case EndpointPairSlot:
		if dst.Kind == EndpointPool {
			return TransitionUnassignFromSlot
		}
	}
	return TransitionUnsupported
}

// sameEndpoint is the no-op guard: same container and, for folders, the
// same position.
func sameEndpoint(a, b Endpoint) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case EndpointPool:
		return true
	case EndpointFolder:
		return a.FolderID == b.FolderID && a.Index == b.Index
	case EndpointPairSlot:
		return a.RowID == b.RowID && a.Slot == b.Slot
	}
	return false
}
