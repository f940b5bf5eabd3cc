package bot

import (
	"log"
	"sync/atomic"
	"time"

	"eclipse-warden/commands"
	"eclipse-warden/model"
	"eclipse-warden/moderation"
	"eclipse-warden/utils"
	"eclipse-warden/utils/database/modstore"

	"github.com/bwmarrin/discordgo"
)

type Bot struct {
	Session            *discordgo.Session
	RegisteredCommands []*discordgo.ApplicationCommand
	config             atomic.Value // *model.Config
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
	Engine             *moderation.Engine
	Store              modstore.Store
	Roles              *utils.RoleResolver
	StartedAt          time.Time
	scheduler          *Scheduler
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

func (b *Bot) GetSession() *discordgo.Session {
	return b.Session
}

func (b *Bot) GetEngine() *moderation.Engine {
	return b.Engine
}

// New prepares the session. The engine is attached later because its
// enforcer needs the session this creates.
func New(cfg *model.Config, store modstore.Store) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	dg.StateEnabled = false

	b := &Bot{
		Session:   dg,
		Store:     store,
		Roles:     utils.NewRoleResolver(dg, 5*time.Minute),
		StartedAt: time.Now(),
	}
	b.config.Store(cfg)
	b.scheduler = NewScheduler(b)
	return b, nil
}

func (b *Bot) Close() {
	log.Println("Gracefully shutting down.")
	b.scheduler.Stop()
	if err := b.Session.Close(); err != nil {
		log.Printf("Error closing Discord session: %v", err)
	}
}

// RegisterCommands overwrites the guild's slash commands with ours.
func (b *Bot) RegisterCommands(guildID string) {
	cmds := commands.GenerateCommands()
	log.Printf("Registering %d commands for guild %s...", len(cmds), guildID)
	registeredCmds, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, guildID, cmds)
	if err != nil {
		log.Printf("cannot register commands for guild '%s': %v", guildID, err)
		return
	}
	b.RegisteredCommands = append(b.RegisteredCommands, registeredCmds...)
}

// UnregisterCommands removes every command the bot owns in a guild.
func (b *Bot) UnregisterCommands(guildID string) {
	registered, err := b.Session.ApplicationCommands(b.Session.State.User.ID, guildID)
	if err != nil {
		log.Printf("Could not fetch registered commands for guild %s: %v", guildID, err)
		return
	}
	for _, cmd := range registered {
		if err := b.Session.ApplicationCommandDelete(b.Session.State.User.ID, guildID, cmd.ID); err != nil {
			log.Printf("Cannot delete '%v' command in guild %s: %v", cmd.Name, guildID, err)
		}
	}
}
