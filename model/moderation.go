package model

import "time"

// InfractionRecord is a single warning. Immutable once created.
// TargetID is implied by the key it is stored under.
type InfractionRecord struct {
	TargetID  string    `json:"-"`
	Reason    string    `json:"reason"`
	IssuerID  string    `json:"issuerId"`
	Timestamp time.Time `json:"timestamp"`
}

// PunitiveState is the derived punitive status of a user.
type PunitiveState string

const (
	StateNone     PunitiveState = "none"
	StateMuted    PunitiveState = "muted"
	StateTimedOut PunitiveState = "timed_out"
)

// ModerationRecord is a read-only view of everything known about one user.
type ModerationRecord struct {
	UserID        string             `json:"userId"`
	Infractions   []InfractionRecord `json:"infractions"`
	State         PunitiveState      `json:"state"`
	Expiry        *time.Time         `json:"expiry,omitempty"`
	PermanentMute bool               `json:"permanentMute"`
	TimedActions  []TimedAction      `json:"timedActions"`
}

// WarningCount is the authoritative warning count.
func (r ModerationRecord) WarningCount() int {
	return len(r.Infractions)
}

// Snapshot is the durable state of the moderation engine.
type Snapshot struct {
	Warnings         map[string][]InfractionRecord `json:"warnings"`
	CaseCounter      int64                         `json:"caseCounter"`
	ScheduledActions []TimedAction                 `json:"scheduledActions"`
	PermanentMutes   []string                      `json:"permanentMutes"`
}

// NewSnapshot returns the empty state used when nothing has been persisted yet.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Warnings:         make(map[string][]InfractionRecord),
		ScheduledActions: []TimedAction{},
		PermanentMutes:   []string{},
	}
}
