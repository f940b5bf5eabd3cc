package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// CreatePaginationComponents creates a set of pagination buttons.
func CreatePaginationComponents(currentPage, totalPages int, customIDPrefix string, args ...string) []discordgo.MessageComponent {
	if totalPages <= 1 {
		return nil
	}

	buttonArgs := ""
	for _, arg := range args {
		buttonArgs += ":" + arg
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Previous",
					Style:    discordgo.PrimaryButton,
					Disabled: currentPage == 1,
					CustomID: fmt.Sprintf("%s:%d%s", customIDPrefix, currentPage-1, buttonArgs),
				},
				discordgo.Button{
					Label:    fmt.Sprintf("%d / %d", currentPage, totalPages),
					Style:    discordgo.SecondaryButton,
					Disabled: true,
					CustomID: fmt.Sprintf("%s:noop%s", customIDPrefix, buttonArgs),
				},
				discordgo.Button{
					Label:    "Next",
					Style:    discordgo.PrimaryButton,
					Disabled: currentPage == totalPages,
					CustomID: fmt.Sprintf("%s:%d%s", customIDPrefix, currentPage+1, buttonArgs),
				},
			},
		},
	}
}

// ParsePaginationID splits a custom ID built by CreatePaginationComponents
// back into its page and extra arguments.
func ParsePaginationID(customID, customIDPrefix string) (int, []string, error) {
	rest, ok := strings.CutPrefix(customID, customIDPrefix+":")
	if !ok {
		return 0, nil, fmt.Errorf("custom id %q does not start with %q", customID, customIDPrefix)
	}
	parts := strings.Split(rest, ":")
	page, err := strconv.Atoi(parts[0])
	if err != nil || page < 1 {
		return 0, nil, fmt.Errorf("invalid page in custom id %q", customID)
	}
	return page, parts[1:], nil
}

// Paginate returns the bounds of page within n items and the page count.
// page is clamped into range.
func Paginate(n, perPage, page int) (start, end, clamped, totalPages int) {
	totalPages = (n + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start = (page - 1) * perPage
	end = start + perPage
	if end > n {
		end = n
	}
	return start, end, page, totalPages
}
