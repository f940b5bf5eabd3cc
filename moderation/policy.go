package moderation

import (
	"time"

	"eclipse-warden/model"
)

// Escalation is the automatic punishment decided for a warning count.
type Escalation struct {
	Punish   bool
	Kind     model.TimedActionKind
	Duration time.Duration
}

// Policy maps a fresh warning count to an automatic punishment.
type Policy struct {
	Threshold int
	Punish    model.AutoPunishConfig
}

func NewPolicy(cfg model.ModerationConfig) Policy {
	return Policy{Threshold: cfg.WarningThreshold, Punish: cfg.AutoPunish}
}

// Decide fires only on the warning that reaches the threshold. Later warnings
// decide nothing until the history is cleared and the count climbs back.
func (p Policy) Decide(newCount int) Escalation {
	if p.Threshold <= 0 || newCount != p.Threshold {
		return Escalation{}
	}
	return Escalation{Punish: true, Kind: p.Punish.Kind, Duration: p.Punish.Duration}
}
