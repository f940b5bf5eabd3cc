package defs

import "github.com/bwmarrin/discordgo"

var moderatorPermission int64 = discordgo.PermissionModerateMembers

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    true,
	}
}

func reasonOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Reason shown in the mod-log and sent to the member",
		Required:    false,
		MaxLength:   512,
	}
}

func durationOption(required bool, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "duration",
		Description: description,
		Required:    required,
	}
}

var Warn = &discordgo.ApplicationCommand{
	Name:                     "warn",
	Description:              "Warn a member. Reaching the threshold applies an automatic punishment",
	DefaultMemberPermissions: &moderatorPermission,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to warn"),
		reasonOption(),
	},
}

var ClearWarnings = &discordgo.ApplicationCommand{
	Name:                     "clearwarnings",
	Description:              "Clear every warning of a member",
	DefaultMemberPermissions: &moderatorPermission,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member whose warnings to clear"),
		reasonOption(),
	},
}

var CheckWarnings = &discordgo.ApplicationCommand{
	Name:                     "warnings",
	Description:              "Show the warnings of a member",
	DefaultMemberPermissions: &moderatorPermission,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to look up"),
	},
}

var Mute = &discordgo.ApplicationCommand{
	Name:                     "mute",
	Description:              "Give a member the muted role, permanently unless a duration is set",
	DefaultMemberPermissions: &moderatorPermission,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to mute"),
		durationOption(false, "How long, e.g. 30m, 2h, 1d. Empty for a standing mute"),
		reasonOption(),
	},
}

var Unmute = &discordgo.ApplicationCommand{
	Name:                     "unmute",
	Description:              "Lift every mute on a member",
	DefaultMemberPermissions: &moderatorPermission,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to unmute"),
		reasonOption(),
	},
}

var TimedMute = &discordgo.ApplicationCommand{
	Name:                     "timeout",
	Description:              "Time a member out",
	DefaultMemberPermissions: &moderatorPermission,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to time out"),
		durationOption(true, "How long, e.g. 10m, 1h, 7d (at most 28d)"),
		reasonOption(),
	},
}

var UntimedMute = &discordgo.ApplicationCommand{
	Name:                     "untimeout",
	Description:              "Lift a member's timeout early",
	DefaultMemberPermissions: &moderatorPermission,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to release"),
		reasonOption(),
	},
}

var Kick = &discordgo.ApplicationCommand{
	Name:                     "kick",
	Description:              "Kick a member from the server",
	DefaultMemberPermissions: &moderatorPermission,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to kick"),
		reasonOption(),
	},
}

var Ban = &discordgo.ApplicationCommand{
	Name:                     "ban",
	Description:              "Ban a member from the server",
	DefaultMemberPermissions: &moderatorPermission,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to ban"),
		reasonOption(),
	},
}

var Case = &discordgo.ApplicationCommand{
	Name:                     "case",
	Description:              "Look up moderation cases",
	DefaultMemberPermissions: &moderatorPermission,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "id",
			Description: "Case id",
			Required:    false,
		},
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Show the latest cases against this member",
			Required:    false,
		},
	},
}

var ModStats = &discordgo.ApplicationCommand{
	Name:                     "modstats",
	Description:              "Moderation statistics",
	DefaultMemberPermissions: &moderatorPermission,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "period",
			Description: "Window to count cases in",
			Required:    false,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "Last 24 hours", Value: "1d"},
				{Name: "Last 7 days", Value: "7d"},
				{Name: "Last 30 days", Value: "30d"},
			},
		},
	},
}
