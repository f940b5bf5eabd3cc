package moderation

import (
	"time"

	"eclipse-warden/model"
)

type Status string

const (
	StatusApplied Status = "applied"
	StatusBlocked Status = "blocked"
	// StatusNoop means the request was valid but changed nothing.
	StatusNoop Status = "noop"
)

// Outcome is what an engine operation hands back for rendering and logging.
// The engine never notifies anyone itself.
type Outcome struct {
	CaseID   int64            `json:"caseId,omitempty"`
	Action   model.CaseAction `json:"action"`
	Status   Status           `json:"status"`
	TargetID string           `json:"targetId"`
	ActorID  string           `json:"actorId"`
	Reason   string           `json:"reason,omitempty"`
	// Duration is the effective duration; zero for instant or standing actions.
	Duration  time.Duration `json:"duration,omitempty"`
	ExpiresAt *time.Time    `json:"expiresAt,omitempty"`

	WarningCount  int                      `json:"warningCount"`
	PreviousCount int                      `json:"previousCount,omitempty"`
	Warnings      []model.InfractionRecord `json:"warnings,omitempty"`

	// Escalation is the automatic punishment a warning triggered.
	Escalation *Outcome `json:"escalation,omitempty"`
	// CounterPunishment is the mute applied to an actor who targeted a
	// protected member.
	CounterPunishment *Outcome `json:"counterPunishment,omitempty"`

	// Enforced is false when the platform call failed after the state change
	// was recorded.
	Enforced bool `json:"enforced"`
}

func (o *Outcome) Blocked() bool {
	return o != nil && o.Status == StatusBlocked
}

func (o *Outcome) caseEntry(at time.Time) model.CaseEntry {
	return model.CaseEntry{
		CaseID:    o.CaseID,
		Action:    o.Action,
		TargetID:  o.TargetID,
		ActorID:   o.ActorID,
		Reason:    o.Reason,
		Duration:  o.Duration,
		CreatedAt: at,
	}
}
