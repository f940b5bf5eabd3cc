package model

import "time"

// TimedActionKind identifies which punitive state a TimedAction reverses.
type TimedActionKind string

const (
	KindMute      TimedActionKind = "mute"
	KindTimeout   TimedActionKind = "timeout"
	KindMuteActor TimedActionKind = "mute_actor"
)

// Valid reports whether k is one of the known kinds.
func (k TimedActionKind) Valid() bool {
	switch k {
	case KindMute, KindTimeout, KindMuteActor:
		return true
	}
	return false
}

// TimedAction is a punitive state with a scheduled reversal.
// At most one exists per (SubjectID, Kind).
type TimedAction struct {
	SubjectID string          `json:"subjectId"`
	Kind      TimedActionKind `json:"kind"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Reason    string          `json:"reason"`
}

// TimedActionKey is the identity of a TimedAction in the active set.
type TimedActionKey struct {
	SubjectID string
	Kind      TimedActionKind
}

func (a TimedAction) Key() TimedActionKey {
	return TimedActionKey{SubjectID: a.SubjectID, Kind: a.Kind}
}

func (k TimedActionKey) String() string {
	return k.SubjectID + "/" + string(k.Kind)
}
