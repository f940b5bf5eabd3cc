package commands

import (
	"eclipse-warden/commands/defs"

	"github.com/bwmarrin/discordgo"
)

// GenerateCommands returns every slash command the bot registers.
func GenerateCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		defs.Warn,
		defs.ClearWarnings,
		defs.CheckWarnings,
		defs.Mute,
		defs.Unmute,
		defs.TimedMute,
		defs.UntimedMute,
		defs.Kick,
		defs.Ban,
		defs.Case,
		defs.ModStats,
		defs.SystemInfo,
	}
}
