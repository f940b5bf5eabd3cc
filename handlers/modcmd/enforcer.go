package modcmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"eclipse-warden/model"
	"eclipse-warden/utils"

	"github.com/bwmarrin/discordgo"
)

// GuildAPI is the slice of the Discord session the enforcer calls.
type GuildAPI interface {
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberTimeout(guildID, userID string, until *time.Time, options ...discordgo.RequestOption) error
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
}

// DiscordEnforcer applies engine decisions to the guild: the muted role for
// mutes, the native communication timeout for timeouts, and kick/ban.
type DiscordEnforcer struct {
	api           GuildAPI
	roles         *utils.RoleResolver
	guildID       string
	mutedRoleName string
	// notify tells the member before they lose access to the guild.
	notify func(userID string, embed *discordgo.MessageEmbed) error
}

func NewDiscordEnforcer(api GuildAPI, roles *utils.RoleResolver, guildID, mutedRoleName string, notify func(userID string, embed *discordgo.MessageEmbed) error) *DiscordEnforcer {
	return &DiscordEnforcer{
		api:           api,
		roles:         roles,
		guildID:       guildID,
		mutedRoleName: mutedRoleName,
		notify:        notify,
	}
}

func (d *DiscordEnforcer) mutedRole(ctx context.Context) (string, error) {
	return d.roles.IDByName(ctx, d.guildID, d.mutedRoleName)
}

func (d *DiscordEnforcer) Apply(ctx context.Context, userID string, kind model.TimedActionKind, until *time.Time, reason string) error {
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason)}
	switch kind {
	case model.KindMute, model.KindMuteActor:
		roleID, err := d.mutedRole(ctx)
		if err != nil {
			return err
		}
		if err := d.api.GuildMemberRoleAdd(d.guildID, userID, roleID, opts...); err != nil {
			return fmt.Errorf("failed to add muted role to %s: %w", userID, err)
		}
		return nil
	case model.KindTimeout:
		if until == nil {
			return fmt.Errorf("timeout of %s needs an expiry", userID)
		}
		if err := d.api.GuildMemberTimeout(d.guildID, userID, until, opts...); err != nil {
			return fmt.Errorf("failed to time out %s: %w", userID, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown timed action kind %q", kind)
	}
}

func (d *DiscordEnforcer) Revert(ctx context.Context, userID string, kind model.TimedActionKind) error {
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	switch kind {
	case model.KindMute, model.KindMuteActor:
		roleID, err := d.mutedRole(ctx)
		if err != nil {
			return err
		}
		if err := d.api.GuildMemberRoleRemove(d.guildID, userID, roleID, opts...); err != nil {
			return fmt.Errorf("failed to remove muted role from %s: %w", userID, err)
		}
		return nil
	case model.KindTimeout:
		if err := d.api.GuildMemberTimeout(d.guildID, userID, nil, opts...); err != nil {
			return fmt.Errorf("failed to lift timeout of %s: %w", userID, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown timed action kind %q", kind)
	}
}

// Expel kicks or bans. The member is notified first since a DM cannot reach
// them once they share no guild with the bot.
func (d *DiscordEnforcer) Expel(ctx context.Context, userID string, action model.CaseAction, reason string) error {
	if d.notify != nil {
		if err := d.notify(userID, expelNotice(action, reason)); err != nil {
			log.Printf("Could not notify %s before %s: %v", userID, action, err)
		}
	}
	opts := []discordgo.RequestOption{discordgo.WithContext(ctx)}
	switch action {
	case model.ActionKick:
		if err := d.api.GuildMemberDeleteWithReason(d.guildID, userID, reason, opts...); err != nil {
			return fmt.Errorf("failed to kick %s: %w", userID, err)
		}
	case model.ActionBan:
		if err := d.api.GuildBanCreateWithReason(d.guildID, userID, reason, 0, opts...); err != nil {
			return fmt.Errorf("failed to ban %s: %w", userID, err)
		}
	default:
		return fmt.Errorf("%s does not remove a member", action)
	}
	return nil
}
