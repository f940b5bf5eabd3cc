package modcmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"eclipse-warden/model"
	"eclipse-warden/moderation"
	"eclipse-warden/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	colorWarn    = 0xFFA500
	colorPunish  = 0xFF0000
	colorLift    = 0x00FF00
	colorInfo    = 0x5865F2
	colorBlocked = 0x992D22
)

var actionTitles = map[model.CaseAction]string{
	model.ActionWarn:          "Member warned",
	model.ActionClearWarnings: "Warnings cleared",
	model.ActionMute:          "Member muted",
	model.ActionUnmute:        "Member unmuted",
	model.ActionTimeout:       "Member timed out",
	model.ActionUntimeout:     "Timeout lifted",
	model.ActionCheckWarnings: "Warnings",
	model.ActionMuteActor:     "Moderator muted",
	model.ActionKick:          "Member kicked",
	model.ActionBan:           "Member banned",
}

func actionColor(action model.CaseAction) int {
	switch action {
	case model.ActionWarn:
		return colorWarn
	case model.ActionMute, model.ActionTimeout, model.ActionMuteActor, model.ActionKick, model.ActionBan:
		return colorPunish
	case model.ActionClearWarnings, model.ActionUnmute, model.ActionUntimeout:
		return colorLift
	default:
		return colorInfo
	}
}

func mention(userID string) string {
	if userID == moderation.SystemActor.ID {
		return "Automatic"
	}
	return "<@" + userID + ">"
}

func durationText(out *moderation.Outcome) string {
	if out.ExpiresAt == nil {
		return "permanent"
	}
	return fmt.Sprintf("%s (until <t:%d:f>)", utils.FormatDuration(out.Duration), out.ExpiresAt.Unix())
}

// OutcomeEmbed renders an outcome for the channel and the mod-log.
func OutcomeEmbed(out *moderation.Outcome, now time.Time) *discordgo.MessageEmbed {
	if out.Blocked() {
		return blockedEmbed(out, now)
	}
	if out.Action == model.ActionCheckWarnings {
		return warningsEmbed(out, now)
	}

	embed := &discordgo.MessageEmbed{
		Title: actionTitles[out.Action],
		Color: actionColor(out.Action),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: mention(out.TargetID), Inline: true},
			{Name: "Moderator", Value: mention(out.ActorID), Inline: true},
		},
		Timestamp: now.Format(time.RFC3339),
	}
	if out.Reason != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Reason", Value: out.Reason})
	}

	switch out.Action {
	case model.ActionMute, model.ActionTimeout, model.ActionMuteActor:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Duration", Value: durationText(out), Inline: true})
	case model.ActionWarn:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Warnings", Value: fmt.Sprintf("%d", out.WarningCount), Inline: true})
	case model.ActionClearWarnings:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Cleared", Value: fmt.Sprintf("%d", out.PreviousCount), Inline: true})
	}

	if out.Status == moderation.StatusNoop {
		embed.Description = "Nothing to do."
		embed.Color = colorInfo
	}
	if esc := out.Escalation; esc != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Automatic punishment",
			Value: fmt.Sprintf("%s for %s (case #%d)", esc.Action, durationText(esc), esc.CaseID),
		})
	}
	if !out.Enforced && out.Status == moderation.StatusApplied {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "⚠️ Not enforced",
			Value: "The action is recorded but Discord rejected it. Check the bot's permissions.",
		})
	}
	if out.CaseID != 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Case #%d", out.CaseID)}
	}
	return embed
}

func blockedEmbed(out *moderation.Outcome, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Action refused",
		Description: fmt.Sprintf("%s is protected and cannot be targeted by %s.", mention(out.TargetID), out.Action),
		Color:       colorBlocked,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Attempted by", Value: mention(out.ActorID), Inline: true},
		},
		Timestamp: now.Format(time.RFC3339),
	}
	if cp := out.CounterPunishment; cp != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Consequence",
			Value: fmt.Sprintf("%s was muted for %s (case #%d)", mention(cp.TargetID), durationText(cp), cp.CaseID),
		})
	}
	return embed
}

func warningsEmbed(out *moderation.Outcome, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     actionTitles[model.ActionCheckWarnings],
		Color:     colorInfo,
		Timestamp: now.Format(time.RFC3339),
	}
	if len(out.Warnings) == 0 {
		embed.Description = fmt.Sprintf("%s has no warnings.", mention(out.TargetID))
		return embed
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s has **%d** warning(s).\n\n", mention(out.TargetID), len(out.Warnings)))
	for i, w := range out.Warnings {
		builder.WriteString(fmt.Sprintf("**%d.** %s\n<t:%d:R> by %s\n", i+1, w.Reason, w.Timestamp.Unix(), mention(w.IssuerID)))
	}
	embed.Description = builder.String()
	return embed
}

// NotificationEmbed is the DM sent to the target. It returns nil when the
// outcome should not be announced to them.
func NotificationEmbed(out *moderation.Outcome, guildName string, now time.Time) *discordgo.MessageEmbed {
	if out.Status != moderation.StatusApplied {
		return nil
	}
	var text string
	switch out.Action {
	case model.ActionWarn:
		text = fmt.Sprintf("You have been warned in **%s**. You now have %d warning(s).", guildName, out.WarningCount)
	case model.ActionMute:
		text = fmt.Sprintf("You have been muted in **%s** (%s).", guildName, durationText(out))
	case model.ActionTimeout:
		text = fmt.Sprintf("You have been timed out in **%s** (%s).", guildName, durationText(out))
	default:
		return nil
	}
	embed := &discordgo.MessageEmbed{
		Title:       "Moderation notice",
		Description: text,
		Color:       actionColor(out.Action),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: out.Reason},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Case #%d", out.CaseID)},
		Timestamp: now.Format(time.RFC3339),
	}
	if esc := out.Escalation; esc != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Automatic punishment",
			Value: fmt.Sprintf("You reached the warning limit: %s for %s.", esc.Action, durationText(esc)),
		})
	}
	return embed
}

func expelNotice(action model.CaseAction, reason string) *discordgo.MessageEmbed {
	verb := "kicked from"
	if action == model.ActionBan {
		verb = "banned from"
	}
	return &discordgo.MessageEmbed{
		Title:       "Moderation notice",
		Description: fmt.Sprintf("You have been %s the server.", verb),
		Color:       colorPunish,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: reason},
		},
	}
}

// CaseEmbed lists audit trail entries, newest first.
func CaseEmbed(title string, cases []model.CaseEntry) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: title, Color: colorInfo}
	if len(cases) == 0 {
		embed.Description = "No cases found."
		return embed
	}
	for _, c := range cases {
		value := fmt.Sprintf("**User:** %s\n**Moderator:** %s\n**Reason:** %s\n<t:%d:f>",
			mention(c.TargetID), mention(c.ActorID), c.Reason, c.CreatedAt.Unix())
		if c.Duration > 0 {
			value += "\n**Duration:** " + utils.FormatDuration(c.Duration)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("#%d · %s", c.CaseID, c.Action),
			Value: value,
		})
	}
	return embed
}

// ErrorMessage turns an engine error into the text shown to the moderator.
func ErrorMessage(err error) string {
	var verr *moderation.ValidationError
	switch {
	case errors.Is(err, moderation.ErrForbidden):
		return "You need a moderator role to do this."
	case errors.As(err, &verr):
		return verr.Reason
	case moderation.IsRetryable(err):
		return "The moderation store is unavailable. Nothing was changed, please try again."
	default:
		return "Something went wrong while processing the command."
	}
}
