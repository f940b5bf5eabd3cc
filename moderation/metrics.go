package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var casesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_cases_issued",
	Help: "Number of case ids issued, by action",
}, []string{"action"})

var blockedAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_blocked_attempts",
	Help: "Number of actions refused because the target is protected",
}, []string{"action"})

var escalationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_escalations",
	Help: "Number of automatic punishments triggered by the warning threshold",
}, []string{"kind"})

var timedActionsFired = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_timed_actions_fired",
	Help: "Number of timed actions reversed on expiry",
}, []string{"kind"})

var timedActionsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_timed_actions_cancelled",
	Help: "Number of timed actions cancelled before expiry",
}, []string{"kind"})

var timedActionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "moderation_timed_actions_active",
	Help: "Number of timed actions currently scheduled",
}, []string{"kind"})

var persistenceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_persistence_errors",
	Help: "Number of failed store operations",
}, []string{"op"})

var enforcementErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_enforcement_errors",
	Help: "Number of platform calls that failed after state was recorded",
}, []string{"op"})
