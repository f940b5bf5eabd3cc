package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoleSource struct {
	roles []*discordgo.Role
	calls int
	err   error
}

func (f *fakeRoleSource) GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.roles, nil
}

func TestRoleResolverNames(t *testing.T) {
	src := &fakeRoleSource{roles: []*discordgo.Role{
		{ID: "1", Name: "Owner"},
		{ID: "2", Name: "muted"},
		{ID: "3", Name: "Senior Moderator"},
	}}
	r := NewRoleResolver(src, time.Minute)
	ctx := context.Background()

	names, err := r.Names(ctx, "g", []string{"3", "9", "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Senior Moderator", "Owner"}, names)

	id, err := r.IDByName(ctx, "g", "MUTED")
	require.NoError(t, err)
	assert.Equal(t, "2", id)
	assert.Equal(t, 1, src.calls, "roles are cached per guild")

	_, err = r.IDByName(ctx, "g", "nope")
	assert.Error(t, err)

	r.Invalidate("g")
	_, err = r.Names(ctx, "g", []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestRoleResolverEmptyAndErrors(t *testing.T) {
	src := &fakeRoleSource{err: errors.New("rate limited")}
	r := NewRoleResolver(src, time.Minute)

	names, err := r.Names(context.Background(), "g", nil)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Zero(t, src.calls)

	_, err = r.Names(context.Background(), "g", []string{"1"})
	assert.ErrorContains(t, err, "rate limited")
}
