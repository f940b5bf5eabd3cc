package modcmd

import (
	"errors"
	"fmt"
	"time"

	"eclipse-warden/model"
	"eclipse-warden/utils"

	"github.com/bwmarrin/discordgo"
)

// commandActions maps slash command names to engine actions.
var commandActions = map[string]model.CaseAction{
	"warn":          model.ActionWarn,
	"clearwarnings": model.ActionClearWarnings,
	"warnings":      model.ActionCheckWarnings,
	"mute":          model.ActionMute,
	"unmute":        model.ActionUnmute,
	"timeout":       model.ActionTimeout,
	"untimeout":     model.ActionUntimeout,
	"kick":          model.ActionKick,
	"ban":           model.ActionBan,
}

// IsModerationCommand reports whether name is routed to the engine.
func IsModerationCommand(name string) bool {
	_, ok := commandActions[name]
	return ok
}

// ParsedOptions holds the parsed options of a moderation command.
type ParsedOptions struct {
	Action        model.CaseAction
	TargetUser    *discordgo.User
	TargetRoleIDs []string
	Reason        string
	Duration      time.Duration
}

// parseModerationOptions extracts the command options. Role IDs of the target
// come from the resolved member data Discord sends with the interaction.
func parseModerationOptions(data discordgo.ApplicationCommandInteractionData) (ParsedOptions, error) {
	action, ok := commandActions[data.Name]
	if !ok {
		return ParsedOptions{}, fmt.Errorf("unknown moderation command %q", data.Name)
	}
	optionMap := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		optionMap[opt.Name] = opt
	}

	parsed := ParsedOptions{Action: action}
	userOpt, ok := optionMap["user"]
	if !ok {
		return ParsedOptions{}, errors.New("a member is required")
	}
	parsed.TargetUser = userOpt.UserValue(nil)
	if data.Resolved != nil {
		if u, ok := data.Resolved.Users[parsed.TargetUser.ID]; ok {
			parsed.TargetUser = u
		}
		if m, ok := data.Resolved.Members[parsed.TargetUser.ID]; ok {
			parsed.TargetRoleIDs = m.Roles
		}
	}

	if reasonOpt, ok := optionMap["reason"]; ok {
		parsed.Reason = reasonOpt.StringValue()
	}
	if durationOpt, ok := optionMap["duration"]; ok && durationOpt.StringValue() != "" {
		d, err := utils.ParseDuration(durationOpt.StringValue())
		if err != nil {
			return ParsedOptions{}, fmt.Errorf("invalid duration %q: use forms like 30m, 2h or 7d", durationOpt.StringValue())
		}
		parsed.Duration = d
	}
	return parsed, nil
}
