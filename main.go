package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"eclipse-warden/api"
	"eclipse-warden/bot"
	"eclipse-warden/config"
	"eclipse-warden/handlers"
	"eclipse-warden/handlers/modcmd"
	"eclipse-warden/moderation"
	"eclipse-warden/utils"
	"eclipse-warden/utils/database/modstore"

	"github.com/bwmarrin/discordgo"
)

func configLogger(level, format string, writer io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "error":
		lvl = slog.LevelError
	case "warn":
		lvl = slog.LevelWarn
	case "debug":
		lvl = slog.LevelDebug
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var logger *slog.Logger
	if strings.ToLower(format) == "json" {
		logger = slog.New(slog.NewJSONHandler(writer, opts))
	} else {
		logger = slog.New(slog.NewTextHandler(writer, opts))
	}
	slog.SetDefault(logger)
	return logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	logger := configLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if err := os.MkdirAll(cfg.DataDir, os.ModePerm); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	store, err := modstore.Open(cfg.StoreBackend, cfg.DataDir)
	if err != nil {
		log.Fatalf("Error opening moderation store: %v", err)
	}
	defer store.Close()

	b, err := bot.New(cfg, store)
	if err != nil {
		log.Fatalf("Error creating bot: %v", err)
	}

	enforcer := modcmd.NewDiscordEnforcer(b.Session, b.Roles, cfg.GuildID, cfg.Moderation.MutedRoleName,
		func(userID string, embed *discordgo.MessageEmbed) error {
			return utils.SendPrivateEmbedMessage(b.Session, userID, embed)
		})
	eng, err := moderation.New(moderation.Options{
		Store:    store,
		Config:   cfg.Moderation,
		Logger:   logger,
		Enforcer: enforcer,
	})
	if err != nil {
		log.Fatalf("Error creating moderation engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Restoring may revert expired actions, which needs the REST client only.
	if err := eng.Start(ctx); err != nil {
		log.Fatalf("Error restoring moderation state: %v", err)
	}
	defer eng.Close()
	b.Engine = eng

	handlers.Register(b)

	srv := api.NewServer(eng, logger, cfg.APIToken)
	if err := b.Run(ctx, srv); err != nil {
		log.Printf("Bot stopped with error: %v", err)
	}
}
