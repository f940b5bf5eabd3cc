package moderation

import (
	"testing"
	"time"

	"eclipse-warden/model"

	"github.com/stretchr/testify/assert"
)

func TestGuardCheck(t *testing.T) {
	g := NewGuard([]string{"Owner", "Co-Owner"}, []string{"Moderator"})

	tests := []struct {
		name          string
		actor, target Member
		verdict       Verdict
		counter       bool
	}{
		{"moderator on member", mod, user, Allowed, false},
		{"moderator on owner", mod, owner, Blocked, true},
		{"role names ignore case", mod, Member{ID: "x", Roles: []string{"co-owner"}}, Blocked, true},
		{"owner on owner", owner, Member{ID: "o2", Roles: []string{"Co-Owner"}}, Blocked, false},
		{"system on owner", SystemActor, owner, Allowed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Check("mute", tt.actor, tt.target)
			assert.Equal(t, tt.verdict, d.Verdict)
			assert.Equal(t, tt.counter, d.CounterPunish)
			assert.Equal(t, tt.actor.ID, d.ActorID)
			assert.Equal(t, tt.target.ID, d.TargetID)
		})
	}
}

func TestGuardIsModerator(t *testing.T) {
	g := NewGuard(nil, []string{"Moderator", " "})
	assert.True(t, g.IsModerator(mod))
	assert.True(t, g.IsModerator(SystemActor))
	assert.False(t, g.IsModerator(user))
	assert.False(t, g.IsModerator(Member{ID: "blank", Roles: []string{""}}))
}

func TestPolicyFiresOnlyAtThreshold(t *testing.T) {
	p := Policy{Threshold: 3, Punish: model.AutoPunishConfig{Kind: model.KindTimeout, Duration: time.Hour}}

	for count := 1; count <= 6; count++ {
		esc := p.Decide(count)
		if count == 3 {
			assert.True(t, esc.Punish)
			assert.Equal(t, model.KindTimeout, esc.Kind)
			assert.Equal(t, time.Hour, esc.Duration)
			continue
		}
		assert.False(t, esc.Punish, "count %d", count)
	}

	assert.False(t, Policy{}.Decide(0).Punish)
}
