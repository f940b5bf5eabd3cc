package modcmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"eclipse-warden/model"
	"eclipse-warden/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type guildRoles []*discordgo.Role

func (g guildRoles) GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	return g, nil
}

type fakeGuild struct {
	calls   []string
	until   []*time.Time
	failAll error
}

func (f *fakeGuild) GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.calls = append(f.calls, "add:"+userID+":"+roleID)
	return f.failAll
}

func (f *fakeGuild) GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.calls = append(f.calls, "remove:"+userID+":"+roleID)
	return f.failAll
}

func (f *fakeGuild) GuildMemberTimeout(guildID, userID string, until *time.Time, options ...discordgo.RequestOption) error {
	f.calls = append(f.calls, "timeout:"+userID)
	f.until = append(f.until, until)
	return f.failAll
}

func (f *fakeGuild) GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error {
	f.calls = append(f.calls, "kick:"+userID)
	return f.failAll
}

func (f *fakeGuild) GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error {
	f.calls = append(f.calls, "ban:"+userID)
	return f.failAll
}

func newTestEnforcer(api GuildAPI, notified *[]string) *DiscordEnforcer {
	roles := utils.NewRoleResolver(guildRoles{{ID: "r-muted", Name: "Muted"}, {ID: "r-owner", Name: "Owner"}}, time.Minute)
	return NewDiscordEnforcer(api, roles, "g1", "muted", func(userID string, embed *discordgo.MessageEmbed) error {
		*notified = append(*notified, userID)
		return errors.New("dms closed")
	})
}

func TestDiscordEnforcerMutes(t *testing.T) {
	api := &fakeGuild{}
	var notified []string
	e := newTestEnforcer(api, &notified)
	ctx := context.Background()

	require.NoError(t, e.Apply(ctx, "u1", model.KindMute, nil, "spam"))
	require.NoError(t, e.Apply(ctx, "m1", model.KindMuteActor, nil, "attempt"))
	require.NoError(t, e.Revert(ctx, "u1", model.KindMute))
	assert.Equal(t, []string{"add:u1:r-muted", "add:m1:r-muted", "remove:u1:r-muted"}, api.calls)
	assert.Empty(t, notified)
}

func TestDiscordEnforcerTimeout(t *testing.T) {
	api := &fakeGuild{}
	var notified []string
	e := newTestEnforcer(api, &notified)
	ctx := context.Background()

	assert.Error(t, e.Apply(ctx, "u1", model.KindTimeout, nil, "r"), "a timeout needs an expiry")

	until := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, e.Apply(ctx, "u1", model.KindTimeout, &until, "r"))
	require.NoError(t, e.Revert(ctx, "u1", model.KindTimeout))
	require.Len(t, api.until, 2)
	assert.Equal(t, until, *api.until[0])
	assert.Nil(t, api.until[1], "lifting a timeout clears it")
}

func TestDiscordEnforcerExpelNotifiesFirst(t *testing.T) {
	api := &fakeGuild{}
	var notified []string
	e := newTestEnforcer(api, &notified)
	ctx := context.Background()

	require.NoError(t, e.Expel(ctx, "u1", model.ActionKick, "r"), "a closed DM does not stop the kick")
	require.NoError(t, e.Expel(ctx, "u2", model.ActionBan, "r"))
	assert.Equal(t, []string{"u1", "u2"}, notified)
	assert.Equal(t, []string{"kick:u1", "ban:u2"}, api.calls)

	assert.Error(t, e.Expel(ctx, "u3", model.ActionWarn, "r"))
}

func TestDiscordEnforcerErrors(t *testing.T) {
	api := &fakeGuild{failAll: errors.New("missing permissions")}
	var notified []string
	e := newTestEnforcer(api, &notified)

	err := e.Apply(context.Background(), "u1", model.KindMute, nil, "r")
	assert.ErrorContains(t, err, "missing permissions")

	noRole := NewDiscordEnforcer(&fakeGuild{}, utils.NewRoleResolver(guildRoles{}, time.Minute), "g1", "muted", nil)
	assert.ErrorContains(t, noRole.Apply(context.Background(), "u1", model.KindMute, nil, "r"), "not found")
}
