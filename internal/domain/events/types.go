package events

type Kind string

const (
	KindRecordAdded    Kind = "RecordAdded"
	KindAccessGranted  Kind = "AccessGranted"
	KindAccessRevoked  Kind = "AccessRevoked"
	KindRecordAccessed Kind = "RecordAccessed"
)

func (k Kind) Valid() bool {
	switch k {
	case KindRecordAdded, KindAccessGranted, KindAccessRevoked, KindRecordAccessed:
		return true
	default:
		return false
	}
}

// RequiresDoctor indica si el evento involucra a un médico.
func (k Kind) RequiresDoctor() bool {
	return k != KindRecordAdded
}
