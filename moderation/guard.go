package moderation

import "strings"

// Member is one side of a moderation request: who acts or who is acted on.
// Roles are role names resolved by the caller.
type Member struct {
	ID     string
	Roles  []string
	System bool
}

// SystemActor is the automatic escalation path. The guard never blocks it.
var SystemActor = Member{ID: "system", System: true}

type Verdict int

const (
	Allowed Verdict = iota
	Blocked
)

// GuardDecision is the result of checking an actor against a target.
type GuardDecision struct {
	Verdict Verdict
	// CounterPunish is set when the actor should be muted for the attempt.
	// It is never set when the actor is protected as well.
	CounterPunish bool
	ActorID       string
	TargetID      string
	Action        string
}

// Guard decides which members are protected from moderator actions and who
// counts as a moderator. Role names compare case-insensitively.
type Guard struct {
	protected  map[string]struct{}
	moderators map[string]struct{}
}

func NewGuard(protectedRoles, moderatorRoles []string) *Guard {
	return &Guard{
		protected:  roleSet(protectedRoles),
		moderators: roleSet(moderatorRoles),
	}
}

func roleSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func hasAny(set map[string]struct{}, roles []string) bool {
	for _, r := range roles {
		if _, ok := set[strings.ToLower(strings.TrimSpace(r))]; ok {
			return true
		}
	}
	return false
}

func (g *Guard) IsProtected(m Member) bool {
	return hasAny(g.protected, m.Roles)
}

func (g *Guard) IsModerator(m Member) bool {
	return m.System || hasAny(g.moderators, m.Roles)
}

// Check reports whether actor may take action against target.
func (g *Guard) Check(action string, actor, target Member) GuardDecision {
	d := GuardDecision{Verdict: Allowed, ActorID: actor.ID, TargetID: target.ID, Action: action}
	if actor.System || !g.IsProtected(target) {
		return d
	}
	d.Verdict = Blocked
	d.CounterPunish = !g.IsProtected(actor)
	return d
}
