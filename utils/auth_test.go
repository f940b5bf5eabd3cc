package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckPermission(t *testing.T) {
	mods := []string{"Owner", "Senior Moderator"}
	assert.Equal(t, ModeratorPermission, CheckPermission([]string{"member", "senior moderator"}, mods))
	assert.Equal(t, MemberPermission, CheckPermission([]string{"member"}, mods))
	assert.Equal(t, MemberPermission, CheckPermission(nil, mods))
}
