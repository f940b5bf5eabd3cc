package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"eclipse-warden/api"
	"eclipse-warden/utils"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"
)

// Run connects to Discord, registers the commands and serves srv until ctx is
// cancelled.
func (b *Bot) Run(ctx context.Context, srv *api.Server) error {
	if b.Engine == nil {
		return fmt.Errorf("bot has no moderation engine attached")
	}
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	cfg := b.GetConfig()
	if !cfg.DisableCommandUnregister {
		log.Printf("Unregistering commands from guild %s...", cfg.GuildID)
		b.UnregisterCommands(cfg.GuildID)
	}
	b.RegisteredCommands = make([]*discordgo.ApplicationCommand, 0)
	b.RegisterCommands(cfg.GuildID)

	b.scheduler.Start()

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	if err := utils.LogInfo(b.Session, cfg.LogChannelID, "System", "Startup", "Bot has started successfully."); err != nil {
		log.Printf("Failed to send startup log: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(cfg.HTTPAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	b.Close()
	return err
}
