package tasks

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"eclipse-warden/model"
	"eclipse-warden/moderation"
	"eclipse-warden/utils"

	"github.com/bwmarrin/discordgo"
)

// GenerateModerationStatsEmbed summarises the cases issued in the last
// duration together with the engine's current totals.
func GenerateModerationStatsEmbed(ctx context.Context, eng *moderation.Engine, duration time.Duration, now time.Time) (*discordgo.MessageEmbed, error) {
	cases, err := eng.Cases(ctx, model.CaseFilter{Since: now.Add(-duration)})
	if err != nil {
		return nil, fmt.Errorf("failed to read cases for the last %s: %w", duration, err)
	}

	byActor := make(map[string]int)
	byAction := make(map[model.CaseAction]int)
	for _, c := range cases {
		byAction[c.Action]++
		if c.ActorID != moderation.SystemActor.ID {
			byActor[c.ActorID]++
		}
	}

	actors := make([]string, 0, len(byActor))
	for id := range byActor {
		actors = append(actors, id)
	}
	sort.Slice(actors, func(i, j int) bool {
		if byActor[actors[i]] != byActor[actors[j]] {
			return byActor[actors[i]] > byActor[actors[j]]
		}
		return actors[i] < actors[j]
	})

	actions := make([]string, 0, len(byAction))
	for a := range byAction {
		actions = append(actions, string(a))
	}
	sort.Strings(actions)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("### Cases in the last %s\n", utils.FormatDuration(duration)))
	builder.WriteString(fmt.Sprintf("**Total: %d**\n\n", len(cases)))
	if len(actions) > 0 {
		builder.WriteString("**By action:**\n")
		for _, a := range actions {
			builder.WriteString(fmt.Sprintf("- %s: %d\n", a, byAction[model.CaseAction(a)]))
		}
		builder.WriteString("\n")
	}
	if len(actors) > 0 {
		builder.WriteString("**Moderators:**\n")
		for i, id := range actors {
			if i == 10 {
				break
			}
			builder.WriteString(fmt.Sprintf("%d. <@%s>: %d\n", i+1, id, byActor[id]))
		}
	}

	st := eng.Stats(5)
	embed := &discordgo.MessageEmbed{
		Title:       "Moderation report",
		Description: builder.String(),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Last case", Value: fmt.Sprintf("#%d", st.CaseCounter), Inline: true},
			{Name: "Warned members", Value: fmt.Sprintf("%d (%d warnings)", st.TrackedUsers, st.TotalWarnings), Inline: true},
			{Name: "Standing mutes", Value: fmt.Sprintf("%d", st.StandingMutes), Inline: true},
			{Name: "Timed actions", Value: formatActive(st.ActiveTimed), Inline: true},
		},
		Timestamp: now.Format(time.RFC3339),
		Color:     0x00ff00,
	}
	if len(st.TopWarned) > 0 {
		var top strings.Builder
		for _, uc := range st.TopWarned {
			top.WriteString(fmt.Sprintf("<@%s>: %d\n", uc.UserID, uc.Count))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Most warned", Value: top.String()})
	}
	return embed, nil
}

func formatActive(active map[model.TimedActionKind]int) string {
	if len(active) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(active))
	for _, kind := range []model.TimedActionKind{model.KindMute, model.KindTimeout, model.KindMuteActor} {
		if n := active[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", kind, n))
		}
	}
	return strings.Join(parts, ", ")
}

// PostModerationReport sends the periodic report to the mod-log channel.
func PostModerationReport(s *discordgo.Session, channelID string, eng *moderation.Engine, duration time.Duration) {
	if channelID == "" {
		return
	}
	embed, err := GenerateModerationStatsEmbed(context.Background(), eng, duration, time.Now())
	if err != nil {
		log.Printf("Failed to generate moderation report: %v", err)
		return
	}
	if err := utils.LogEmbed(s, channelID, embed); err != nil {
		log.Printf("Failed to send moderation report to channel %s: %v", channelID, err)
	}
}
