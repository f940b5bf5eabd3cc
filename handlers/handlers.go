package handlers

import (
	"log"

	"eclipse-warden/bot"
	"eclipse-warden/handlers/modcmd"
	"eclipse-warden/utils"

	"github.com/bwmarrin/discordgo"
)

func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	addHandlers(b)
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	moderate := func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		modcmd.HandleModerationCommand(s, i, b)
	}
	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"warn":          moderate,
		"clearwarnings": moderate,
		"warnings":      moderate,
		"mute":          moderate,
		"unmute":        moderate,
		"timeout":       moderate,
		"untimeout":     moderate,
		"kick":          moderate,
		"ban":           moderate,
		"case": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			modcmd.HandleCaseCommand(s, i, b)
		},
		"modstats": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			modcmd.HandleModStatsCommand(s, i, b)
		},
		"status": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			SystemInfoHandler(s, i, b)
		},
	}
}

func addHandlers(b *bot.Bot) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v#%v", r.User.Username, r.User.Discriminator)
	})
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
				h(s, i)
			}
		case discordgo.InteractionMessageComponent:
			if modcmd.IsCasePageButton(i.MessageComponentData().CustomID) {
				modcmd.HandleCasePageButton(s, i, b)
			}
		}
	})
	// Renamed or recreated roles change what the guard sees.
	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildRoleUpdate) {
		b.Roles.Invalidate(e.GuildID)
	})
	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildRoleCreate) {
		b.Roles.Invalidate(e.GuildID)
	})
	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildRoleDelete) {
		b.Roles.Invalidate(e.GuildID)
	})
	b.Session.AddHandler(func(s *discordgo.Session, d *discordgo.Disconnect) {
		if err := utils.LogWarn(s, b.GetConfig().LogChannelID, "System", "Gateway", "Disconnected from Discord, reconnecting."); err != nil {
			log.Printf("Failed to send disconnect log: %v", err)
		}
	})
}
