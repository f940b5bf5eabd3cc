package utils

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginationRoundTrip(t *testing.T) {
	assert.Nil(t, CreatePaginationComponents(1, 1, "case_page", "u1"))

	comps := CreatePaginationComponents(2, 3, "case_page", "u1")
	require.Len(t, comps, 1)
	row := comps[0].(discordgo.ActionsRow)
	require.Len(t, row.Components, 3)
	prev := row.Components[0].(discordgo.Button)
	next := row.Components[2].(discordgo.Button)
	assert.Equal(t, "case_page:1:u1", prev.CustomID)
	assert.Equal(t, "case_page:3:u1", next.CustomID)

	page, args, err := ParsePaginationID(next.CustomID, "case_page")
	require.NoError(t, err)
	assert.Equal(t, 3, page)
	assert.Equal(t, []string{"u1"}, args)

	_, _, err = ParsePaginationID("case_page:noop:u1", "case_page")
	assert.Error(t, err)
	_, _, err = ParsePaginationID("other:1", "case_page")
	assert.Error(t, err)
}

func TestPaginate(t *testing.T) {
	start, end, page, total := Paginate(12, 5, 3)
	assert.Equal(t, []int{10, 12, 3, 3}, []int{start, end, page, total})

	start, end, page, total = Paginate(12, 5, 9)
	assert.Equal(t, []int{10, 12, 3, 3}, []int{start, end, page, total})

	start, end, page, total = Paginate(0, 5, 1)
	assert.Equal(t, []int{0, 0, 1, 1}, []int{start, end, page, total})
}
