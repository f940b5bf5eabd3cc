package modcmd

import (
	"testing"
	"time"

	"eclipse-warden/model"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userOpt(id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func TestParseModerationOptions(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name: "timeout",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			userOpt("42"),
			stringOpt("duration", "2h"),
			stringOpt("reason", "spam"),
		},
		Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
			Users:   map[string]*discordgo.User{"42": {ID: "42", Username: "target"}},
			Members: map[string]*discordgo.Member{"42": {Roles: []string{"r1", "r2"}}},
		},
	}

	opts, err := parseModerationOptions(data)
	require.NoError(t, err)
	assert.Equal(t, model.ActionTimeout, opts.Action)
	assert.Equal(t, "target", opts.TargetUser.Username)
	assert.Equal(t, []string{"r1", "r2"}, opts.TargetRoleIDs)
	assert.Equal(t, "spam", opts.Reason)
	assert.Equal(t, 2*time.Hour, opts.Duration)
}

func TestParseModerationOptionsWithoutResolvedMember(t *testing.T) {
	opts, err := parseModerationOptions(discordgo.ApplicationCommandInteractionData{
		Name:    "mute",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{userOpt("7")},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ActionMute, opts.Action)
	assert.Equal(t, "7", opts.TargetUser.ID)
	assert.Empty(t, opts.TargetRoleIDs)
	assert.Zero(t, opts.Duration, "no duration means a standing mute")
	assert.Empty(t, opts.Reason)
}

func TestParseModerationOptionsErrors(t *testing.T) {
	_, err := parseModerationOptions(discordgo.ApplicationCommandInteractionData{Name: "rollcard"})
	assert.Error(t, err)

	_, err = parseModerationOptions(discordgo.ApplicationCommandInteractionData{Name: "warn"})
	assert.ErrorContains(t, err, "member is required")

	_, err = parseModerationOptions(discordgo.ApplicationCommandInteractionData{
		Name:    "timeout",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{userOpt("1"), stringOpt("duration", "soon")},
	})
	assert.ErrorContains(t, err, "invalid duration")
}

func TestIsModerationCommand(t *testing.T) {
	for _, name := range []string{"warn", "clearwarnings", "warnings", "mute", "unmute", "timeout", "untimeout", "kick", "ban"} {
		assert.True(t, IsModerationCommand(name), name)
	}
	assert.False(t, IsModerationCommand("case"))
	assert.False(t, IsModerationCommand("status"))
}

func TestCaseFilter(t *testing.T) {
	filter, title, err := caseFilter([]*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "id", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(12)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), filter.CaseID)
	assert.Equal(t, "Case #12", title)

	filter, _, err = caseFilter([]*discordgo.ApplicationCommandInteractionDataOption{userOpt("9")})
	require.NoError(t, err)
	assert.Equal(t, "9", filter.TargetID)
	assert.Equal(t, caseListLimit, filter.Limit)

	_, _, err = caseFilter(nil)
	assert.Error(t, err)
}

func TestCasePage(t *testing.T) {
	var cases []model.CaseEntry
	for id := int64(12); id >= 1; id-- {
		cases = append(cases, model.CaseEntry{CaseID: id, Action: model.ActionWarn, TargetID: "u1", ActorID: "m1"})
	}

	embed, components := casePage("Latest cases", "u1", cases, 3)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "#2 · warn", embed.Fields[0].Name)
	assert.Equal(t, "Page 3 of 3 · 12 cases", embed.Footer.Text)
	require.Len(t, components, 1)

	embed, components = casePage("Case #4", "", cases[8:9], 1)
	assert.Len(t, embed.Fields, 1)
	assert.Nil(t, embed.Footer)
	assert.Empty(t, components)
}
