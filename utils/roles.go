package utils

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// RoleSource is the part of the Discord session the resolver needs.
type RoleSource interface {
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
}

// RoleResolver maps role IDs to names. The session runs without state, so
// guild roles are fetched from the API and kept for a short while.
type RoleResolver struct {
	source RoleSource
	cache  *expirable.LRU[string, map[string]string]
}

func NewRoleResolver(source RoleSource, ttl time.Duration) *RoleResolver {
	return &RoleResolver{
		source: source,
		cache:  expirable.NewLRU[string, map[string]string](16, nil, ttl),
	}
}

func (r *RoleResolver) guildRoles(ctx context.Context, guildID string) (map[string]string, error) {
	if roles, ok := r.cache.Get(guildID); ok {
		return roles, nil
	}
	list, err := r.source.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles of guild %s: %w", guildID, err)
	}
	roles := make(map[string]string, len(list))
	for _, role := range list {
		roles[role.ID] = role.Name
	}
	r.cache.Add(guildID, roles)
	return roles, nil
}

// Names returns the names of roleIDs. Unknown IDs are skipped.
func (r *RoleResolver) Names(ctx context.Context, guildID string, roleIDs []string) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	roles, err := r.guildRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		if name, ok := roles[id]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// IDByName finds a role by name, ignoring case.
func (r *RoleResolver) IDByName(ctx context.Context, guildID, name string) (string, error) {
	roles, err := r.guildRoles(ctx, guildID)
	if err != nil {
		return "", err
	}
	for id, n := range roles {
		if strings.EqualFold(n, name) {
			return id, nil
		}
	}
	return "", fmt.Errorf("role %q not found in guild %s", name, guildID)
}

// Invalidate drops the cached roles of guildID, e.g. after a role update event.
func (r *RoleResolver) Invalidate(guildID string) {
	r.cache.Remove(guildID)
}
