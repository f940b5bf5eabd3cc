package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"eclipse-warden/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadModerationDefaults(t *testing.T) {
	cfg, err := LoadModeration(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultModerationConfig(), cfg)
}

func TestLoadModerationFile(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "moderation.yaml")
	data := `
protected_roles: [Admin]
moderator_roles: [Admin, Helper]
warning_threshold: 4
auto_punish:
  kind: mute
  duration: 0s
actor_mute_duration: 10m
escalation_respects_protection: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadModeration(path)
	require.NoError(t, err)
	assert.Equal([]string{"Admin"}, cfg.ProtectedRoles)
	assert.Equal([]string{"Admin", "Helper"}, cfg.ModeratorRoles)
	assert.Equal(4, cfg.WarningThreshold)
	assert.Equal(model.KindMute, cfg.AutoPunish.Kind)
	assert.Zero(cfg.AutoPunish.Duration)
	assert.Equal(10*time.Minute, cfg.ActorMuteDuration)
	assert.True(cfg.EscalationRespectsProtection)
	assert.Equal(5*time.Second, cfg.PersistTimeout)
	assert.Equal("muted", cfg.MutedRoleName)
}

func TestLoadModerationEnvOverride(t *testing.T) {
	t.Setenv("MOD_WARNING_THRESHOLD", "5")
	t.Setenv("MOD_AUTO_PUNISH_DURATION", "48h")

	cfg, err := LoadModeration("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.WarningThreshold)
	assert.Equal(t, 48*time.Hour, cfg.AutoPunish.Duration)
}

func TestLoadModerationRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moderation.yaml")
	require.NoError(t, os.WriteFile(path, []byte("warning_threshold: 0\nauto_punish:\n  kind: ban\n"), 0o644))

	_, err := LoadModeration(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warning_threshold")
	assert.Contains(t, err.Error(), "auto_punish.kind")
}

func TestValidateTimeoutCeiling(t *testing.T) {
	cfg := model.DefaultModerationConfig()
	cfg.AutoPunish.Duration = model.MaxTimeout + time.Hour
	assert.Error(t, Validate(cfg))

	cfg.AutoPunish.Duration = model.MaxTimeout
	assert.NoError(t, Validate(cfg))
}
