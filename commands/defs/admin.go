package defs

import "github.com/bwmarrin/discordgo"

var SystemInfo = &discordgo.ApplicationCommand{
	Name:                     "status",
	Description:              "Display bot, moderation engine and host status",
	DefaultMemberPermissions: &moderatorPermission,
}
