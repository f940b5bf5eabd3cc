package model

import "time"

// CaseAction names the moderation action a case id was issued for.
type CaseAction string

const (
	ActionWarn          CaseAction = "warn"
	ActionClearWarnings CaseAction = "clear_warnings"
	ActionMute          CaseAction = "mute"
	ActionUnmute        CaseAction = "unmute"
	ActionTimeout       CaseAction = "timeout"
	ActionUntimeout     CaseAction = "untimeout"
	ActionCheckWarnings CaseAction = "check_warnings"
	ActionMuteActor     CaseAction = "mute_actor"
	ActionKick          CaseAction = "kick"
	ActionBan           CaseAction = "ban"
)

// CaseEntry is one line of the moderation audit trail.
// The table will be named 'cases'.
type CaseEntry struct {
	CaseID    int64         `json:"caseId"`
	Action    CaseAction    `json:"action"`
	TargetID  string        `json:"targetId"`
	ActorID   string        `json:"actorId"`
	Reason    string        `json:"reason"`
	Duration  time.Duration `json:"duration,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// CaseFilter narrows a case log query. Zero fields are ignored.
type CaseFilter struct {
	CaseID   int64
	TargetID string
	ActorID  string
	Since    time.Time
	Limit    int
}

// Match reports whether c satisfies every non-zero field of f except Limit.
func (f CaseFilter) Match(c CaseEntry) bool {
	if f.CaseID != 0 && c.CaseID != f.CaseID {
		return false
	}
	if f.TargetID != "" && c.TargetID != f.TargetID {
		return false
	}
	if f.ActorID != "" && c.ActorID != f.ActorID {
		return false
	}
	if !f.Since.IsZero() && c.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}
