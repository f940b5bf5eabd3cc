package modcmd

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"eclipse-warden/bot"
	"eclipse-warden/model"
	"eclipse-warden/tasks"
	"eclipse-warden/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	caseListLimit  = 50
	casesPerPage   = 5
	casePagePrefix = "case_page"
)

// requireModerator answers the interaction itself when the caller lacks a
// moderator role.
func requireModerator(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) bool {
	if i.Member == nil {
		utils.SendErrorResponse(s, i, "This command can only be used in a server.")
		return false
	}
	names, err := b.Roles.Names(ctx, i.GuildID, i.Member.Roles)
	if err != nil {
		log.Printf("Error resolving roles of %s: %v", i.Member.User.ID, err)
		utils.SendErrorResponse(s, i, "Could not look up your roles.")
		return false
	}
	if utils.CheckPermission(names, b.GetConfig().Moderation.ModeratorRoles) != utils.ModeratorPermission {
		utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
		return false
	}
	return true
}

// caseFilter builds the audit trail query for /case.
func caseFilter(options []*discordgo.ApplicationCommandInteractionDataOption) (model.CaseFilter, string, error) {
	filter := model.CaseFilter{Limit: caseListLimit}
	for _, opt := range options {
		switch opt.Name {
		case "id":
			filter.CaseID = opt.IntValue()
		case "user":
			filter.TargetID = opt.UserValue(nil).ID
		}
	}
	switch {
	case filter.CaseID != 0:
		return filter, fmt.Sprintf("Case #%d", filter.CaseID), nil
	case filter.TargetID != "":
		return filter, "Latest cases", nil
	default:
		return filter, "", fmt.Errorf("give a case id or a member")
	}
}

func HandleCaseCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if !requireModerator(ctx, s, i, b) {
		return
	}
	filter, title, err := caseFilter(i.ApplicationCommandData().Options)
	if err != nil {
		utils.SendErrorResponse(s, i, err.Error())
		return
	}
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	cases, err := b.GetEngine().Cases(ctx, filter)
	if err != nil {
		log.Printf("Error querying cases: %v", err)
		utils.SendFollowUpError(s, i.Interaction, ErrorMessage(err))
		return
	}
	embed, components := casePage(title, filter.TargetID, cases, 1)
	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	})
	if err != nil {
		log.Printf("Error sending case list: %v", err)
	}
}

// casePage renders one page of cases. Paging buttons carry the target so a
// click can rebuild the query.
func casePage(title, targetID string, cases []model.CaseEntry, page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	start, end, page, total := utils.Paginate(len(cases), casesPerPage, page)
	embed := CaseEmbed(title, cases[start:end])
	if total > 1 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Page %d of %d · %d cases", page, total, len(cases))}
	}
	components := []discordgo.MessageComponent{}
	if targetID != "" {
		if c := utils.CreatePaginationComponents(page, total, casePagePrefix, targetID); c != nil {
			components = c
		}
	}
	return embed, components
}

// IsCasePageButton reports whether a component interaction belongs to /case.
func IsCasePageButton(customID string) bool {
	return strings.HasPrefix(customID, casePagePrefix+":")
}

// HandleCasePageButton flips a /case listing to another page.
func HandleCasePageButton(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if !requireModerator(ctx, s, i, b) {
		return
	}
	page, args, err := utils.ParsePaginationID(i.MessageComponentData().CustomID, casePagePrefix)
	if err != nil || len(args) != 1 {
		utils.SendErrorResponse(s, i, "This button is no longer valid.")
		return
	}

	filter := model.CaseFilter{TargetID: args[0], Limit: caseListLimit}
	cases, err := b.GetEngine().Cases(ctx, filter)
	if err != nil {
		log.Printf("Error querying cases: %v", err)
		utils.SendErrorResponse(s, i, ErrorMessage(err))
		return
	}
	embed, components := casePage("Latest cases", filter.TargetID, cases, page)
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
	if err != nil {
		log.Printf("Error updating case list: %v", err)
	}
}

func HandleModStatsCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if !requireModerator(ctx, s, i, b) {
		return
	}
	period := 7 * 24 * time.Hour
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "period" {
			if d, err := utils.ParseDuration(opt.StringValue()); err == nil {
				period = d
			}
		}
	}
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	embed, err := tasks.GenerateModerationStatsEmbed(ctx, b.GetEngine(), period, time.Now())
	if err != nil {
		log.Printf("Error generating moderation stats: %v", err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to generate moderation statistics.")
		return
	}
	utils.SendFollowUpEmbeds(s, i.Interaction, embed)
}
