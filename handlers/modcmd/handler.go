package modcmd

import (
	"context"
	"log"
	"time"

	"eclipse-warden/bot"
	"eclipse-warden/model"
	"eclipse-warden/moderation"
	"eclipse-warden/utils"

	"github.com/bwmarrin/discordgo"
)

const commandTimeout = 15 * time.Second

// resolveMember turns a guild member's role IDs into the role names the
// engine's guard compares against.
func resolveMember(ctx context.Context, b *bot.Bot, guildID, userID string, roleIDs []string) (moderation.Member, error) {
	names, err := b.Roles.Names(ctx, guildID, roleIDs)
	if err != nil {
		return moderation.Member{}, err
	}
	return moderation.Member{ID: userID, Roles: names}, nil
}

// HandleModerationCommand runs warn, mute, timeout, kick, ban and their
// reversals through the engine and renders the outcome.
func HandleModerationCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if i.Member == nil {
		utils.SendErrorResponse(s, i, "This command can only be used in a server.")
		return
	}
	opts, err := parseModerationOptions(i.ApplicationCommandData())
	if err != nil {
		utils.SendErrorResponse(s, i, err.Error())
		return
	}

	// 1. Defer initial response; lookups stay private
	if err := utils.DeferResponse(s, i, opts.Action == model.ActionCheckWarnings); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	// 2. Resolve both sides
	actor, err := resolveMember(ctx, b, i.GuildID, i.Member.User.ID, i.Member.Roles)
	if err != nil {
		log.Printf("Error resolving roles of %s: %v", i.Member.User.ID, err)
		utils.SendFollowUpError(s, i.Interaction, "Could not look up your roles.")
		return
	}
	target, err := resolveMember(ctx, b, i.GuildID, opts.TargetUser.ID, opts.TargetRoleIDs)
	if err != nil {
		log.Printf("Error resolving roles of %s: %v", opts.TargetUser.ID, err)
		utils.SendFollowUpError(s, i.Interaction, "Could not look up the member's roles.")
		return
	}

	// 3. Run the engine
	out, err := b.GetEngine().Invoke(ctx, moderation.Request{
		Action:   opts.Action,
		Actor:    actor,
		Target:   target,
		Reason:   opts.Reason,
		Duration: opts.Duration,
	})
	if out == nil {
		log.Printf("Moderation %s on %s by %s failed: %v", opts.Action, target.ID, actor.ID, err)
		utils.SendFollowUpError(s, i.Interaction, ErrorMessage(err))
		return
	}

	// 4. Respond
	now := time.Now()
	embed := OutcomeEmbed(out, now)
	utils.SendFollowUpEmbeds(s, i.Interaction, embed)
	if err != nil {
		log.Printf("Moderation %s on %s partially failed: %v", opts.Action, target.ID, err)
		sendFollowUpWarning(s, i.Interaction, "The warning was recorded but the automatic punishment could not be applied.")
	}
	if out.Action == model.ActionCheckWarnings || out.Status == moderation.StatusNoop {
		return
	}

	// 5. Notify and log
	notifyTarget(s, i.GuildID, out, now)
	if err := utils.LogEmbed(s, b.GetConfig().LogChannelID, embed); err != nil {
		log.Printf("Failed to post case %d to the mod-log: %v", out.CaseID, err)
	}
}

func sendFollowUpWarning(s *discordgo.Session, i *discordgo.Interaction, message string) {
	_, err := s.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
		Content: "⚠️ " + message,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		log.Printf("Error sending follow-up warning: %v", err)
	}
}

// notifyTarget DMs the member about the action. Closed DMs are common, so
// failures are only logged.
func notifyTarget(s *discordgo.Session, guildID string, out *moderation.Outcome, now time.Time) {
	guildName := "the server"
	if g, err := s.Guild(guildID); err == nil {
		guildName = g.Name
	}
	embed := NotificationEmbed(out, guildName, now)
	if embed == nil {
		return
	}
	if err := utils.SendPrivateEmbedMessage(s, out.TargetID, embed); err != nil {
		log.Printf("Could not notify %s about case %d: %v", out.TargetID, out.CaseID, err)
	}
}
